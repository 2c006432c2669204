package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tobert/halfremembered-launcher/internal/delta"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/utils"
	"github.com/tobert/halfremembered-launcher/models"
)

// SyncRequest names the file to push and where it goes. With Inline set, or
// a non-nil Data, Data is pushed as is (an empty file included) and Source
// only labels the report. An empty Destination defaults to the base name of
// Source.
type SyncRequest struct {
	Source      string
	Inline      bool
	Data        []byte
	Destination string
	Selector    registry.Selector
}

// file is the content of one sync, read once and shared by every target.
type file struct {
	data      []byte
	checksum  string
	mode      uint32
	mtime     int64
	blockSize int
}

// Sync pushes the file to every selected session and reports each outcome.
// The returned error is only for requests that could not start at all; a
// target that fails is a failed outcome in the report.
func (o *Orchestrator) Sync(ctx context.Context, req SyncRequest) (models.SyncReport, error) {
	f, err := o.load(req)
	if err != nil {
		return models.SyncReport{}, err
	}

	destination := req.Destination
	if destination == "" {
		if req.Source == "" {
			return models.SyncReport{}, ErrNoDestination
		}
		destination = filepath.Base(req.Source)
	}

	targets, missing, err := o.targets.Select(req.Selector)
	if err != nil {
		return models.SyncReport{}, err
	}

	requestID := utils.NewID()
	ctx = utils.WithRequestID(ctx, requestID)
	log := o.logger.WithFields("request_id", requestID, "destination", destination)
	log.Info().Int("targets", len(targets)).Int64("size", int64(len(f.data))).Msg("sync started")

	report := models.SyncReport{
		RequestID:   requestID,
		Path:        req.Source,
		Destination: destination,
		Size:        int64(len(f.data)),
		Checksum:    f.checksum,
		StartedAt:   o.clock.Now(),
	}

	report.Outcomes = fanOut(ctx, o, targets, func(ctx context.Context, s *session.Session) models.SyncOutcome {
		return o.pushTo(ctx, s, requestID, destination, f)
	})
	for _, name := range missing {
		report.Outcomes = append(report.Outcomes, models.SyncOutcome{
			Hostname: name,
			Error:    fmt.Sprintf("%s: %s", ErrNoSuchSession, name),
		})
	}

	log.Info().Int("succeeded", report.Succeeded()).Int("failed", report.Failed()).Msg("sync finished")

	if o.history != nil {
		if err := o.history.RecordSync(context.WithoutCancel(ctx), report); err != nil {
			log.Err(err).Str("func", "Orchestrator.Sync").Msg("recording sync history")
		}
	}

	return report, nil
}

func (o *Orchestrator) load(req SyncRequest) (file, error) {
	f := file{mode: 0o644, mtime: o.clock.Now().Unix()}

	switch {
	case req.Inline || req.Data != nil:
		f.data = req.Data
	case req.Source != "":
		info, err := os.Stat(req.Source)
		if err != nil {
			return file{}, fmt.Errorf("reading sync source: %w", err)
		}
		if info.IsDir() {
			return file{}, fmt.Errorf("reading sync source: %s is a directory", req.Source)
		}
		data, err := os.ReadFile(req.Source)
		if err != nil {
			return file{}, fmt.Errorf("reading sync source: %w", err)
		}
		f.data = data
		f.mode = uint32(info.Mode().Perm())
		f.mtime = info.ModTime().Unix()
	default:
		return file{}, ErrNoSource
	}

	f.checksum = delta.Checksum(f.data)
	f.blockSize = delta.ChooseBlockSize(int64(len(f.data)))
	if delta.ValidBlockSize(o.opts.BlockSize) {
		f.blockSize = o.opts.BlockSize
	}

	return f, nil
}

// pushTo runs one sync transaction against s.
func (o *Orchestrator) pushTo(ctx context.Context, s *session.Session, requestID, destination string, f file) models.SyncOutcome {
	start := o.clock.Now()
	outcome := models.SyncOutcome{SessionID: s.ID(), Hostname: s.Hostname()}

	complete, err := o.transfer(ctx, s, requestID, destination, f)
	outcome.Duration = o.clock.Now().Sub(start)

	log := logger.FromContext(s.Context()).WithFields("request_id", requestID)
	if err != nil {
		outcome.Error = failure(ctx, s, err)
		log.Warn().Str("reason", outcome.Error).Msg("sync to target failed")
		return outcome
	}

	outcome.Success = true
	outcome.BytesTransferred = complete.BytesTransferred
	outcome.Checksum = complete.Checksum
	log.Debug().Int64("bytes", complete.BytesTransferred).Msg("sync to target complete")
	return outcome
}

func (o *Orchestrator) transfer(ctx context.Context, s *session.Session, requestID, destination string, f file) (protocol.SyncComplete, error) {
	c, err := s.OpenChannel(ctx, protocol.ChannelSync)
	if err != nil {
		return protocol.SyncComplete{}, err
	}
	defer c.Close()

	err = c.Send(protocol.SyncStart{
		RequestID:    requestID,
		RelativePath: destination,
		Size:         int64(len(f.data)),
		Checksum:     f.checksum,
		ModTime:      f.mtime,
		Mode:         f.mode,
		BlockSize:    uint32(f.blockSize),
	})
	if err != nil {
		return protocol.SyncComplete{}, fmt.Errorf("sending sync start: %w", err)
	}

	sig, err := protocol.Expect[protocol.SyncSignature](c)
	if err != nil {
		return protocol.SyncComplete{}, fmt.Errorf("awaiting signature: %w", err)
	}
	if err := sig.Signature.Validate(f.blockSize); err != nil {
		return protocol.SyncComplete{}, err
	}

	d, err := delta.Compute(sig.Signature, f.data)
	if err != nil {
		return protocol.SyncComplete{}, err
	}
	payload := delta.Marshal(d)

	compressed, used, err := delta.Compress(payload, o.opts.Compression)
	if err != nil {
		return protocol.SyncComplete{}, err
	}

	if err := sendChunks(c, requestID, compressed, used, int64(len(payload))); err != nil {
		return protocol.SyncComplete{}, err
	}

	complete, err := protocol.Expect[protocol.SyncComplete](c)
	if err != nil {
		return protocol.SyncComplete{}, fmt.Errorf("awaiting sync complete: %w", err)
	}
	if complete.Checksum != f.checksum {
		return protocol.SyncComplete{}, fmt.Errorf("%w: %s", ErrChecksumMismatch, complete.Checksum)
	}

	return complete, nil
}

// sendChunks splits the encoded delta into SyncData frames that fit the
// channel's frame limit. Every chunk carries the compression and the raw
// size of the whole delta; the last one is marked Final.
func sendChunks(c *protocol.Conn, requestID string, data []byte, compression delta.Compression, rawSize int64) error {
	size := max(c.MaxPayload()-chunkHeadroom, chunkHeadroom)

	for off := 0; ; off += size {
		end := min(off+size, len(data))
		err := c.Send(protocol.SyncData{
			RequestID:   requestID,
			Chunk:       data[off:end],
			Compression: compression,
			RawSize:     rawSize,
			Final:       end == len(data),
		})
		if err != nil {
			return fmt.Errorf("sending sync data: %w", err)
		}
		if end == len(data) {
			return nil
		}
	}
}
