package daemon

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/delta"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// deltaSlack bounds the encoded delta relative to the announced size: a
// literal-only delta is the file plus per-op framing.
const deltaSlack = 1 << 20

// receiveFile serves one sync transaction. Failures are reported to the
// server as Error before being returned.
func (d *Daemon) receiveFile(ctx context.Context, c *protocol.Conn) error {
	d.pending.Add(1)
	defer d.pending.Add(-1)

	start, err := protocol.Expect[protocol.SyncStart](c)
	if err != nil {
		return fmt.Errorf("awaiting sync start: %w", err)
	}

	log := logger.FromContext(ctx).WithFields("request_id", start.RequestID, "path", start.RelativePath)

	complete, err := d.syncTransaction(c, start)
	if err != nil {
		log.Err(err).Str("func", "Daemon.receiveFile").Msg("sync failed")
		if sendErr := c.Send(protocol.Error{RequestID: start.RequestID, Reason: err.Error()}); sendErr != nil {
			log.Debug().Err(sendErr).Msg("reporting sync failure")
		}
		return err
	}

	if err := c.Send(complete); err != nil {
		return fmt.Errorf("sending sync complete: %w", err)
	}

	log.Info().Int64("bytes", complete.BytesTransferred).Msg("file synced")
	return nil
}

func (d *Daemon) syncTransaction(c *protocol.Conn, start protocol.SyncStart) (protocol.SyncComplete, error) {
	dest, err := resolvePath(d.cfg.WorkingDir, start.RelativePath)
	if err != nil {
		return protocol.SyncComplete{}, err
	}

	blockSize := int(start.BlockSize)
	if !delta.ValidBlockSize(blockSize) {
		return protocol.SyncComplete{}, fmt.Errorf("%w: %d", delta.ErrInvalidBlockSize, blockSize)
	}

	base, err := readBase(dest)
	if err != nil {
		return protocol.SyncComplete{}, err
	}

	err = c.Send(protocol.SyncSignature{RequestID: start.RequestID, Signature: delta.SignBytes(base, blockSize)})
	if err != nil {
		return protocol.SyncComplete{}, fmt.Errorf("sending signature: %w", err)
	}

	payload, transferred, err := receiveDelta(c, start)
	if err != nil {
		return protocol.SyncComplete{}, err
	}

	dl, err := delta.Unmarshal(payload)
	if err != nil {
		return protocol.SyncComplete{}, err
	}
	if dl.BlockSize != blockSize {
		return protocol.SyncComplete{}, fmt.Errorf("%w: delta %d, start %d", delta.ErrBlockSizeMismatch, dl.BlockSize, blockSize)
	}

	checksum, err := writeVerified(dest, base, dl, start)
	if err != nil {
		return protocol.SyncComplete{}, err
	}

	return protocol.SyncComplete{
		RequestID:        start.RequestID,
		Path:             dest,
		BytesTransferred: transferred,
		Checksum:         checksum,
	}, nil
}

// readBase returns the current content of path; a missing file is empty.
func readBase(path string) ([]byte, error) {
	base, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading current file: %w", err)
	}
	return base, nil
}

// receiveDelta collects SyncData chunks up to the final one and returns the
// decompressed delta encoding plus the number of bytes received.
func receiveDelta(c *protocol.Conn, start protocol.SyncStart) ([]byte, int64, error) {
	limit := 2*start.Size + deltaSlack

	var (
		buf         bytes.Buffer
		compression delta.Compression
		rawSize     int64
	)

	for {
		chunk, err := protocol.Expect[protocol.SyncData](c)
		if err != nil {
			return nil, 0, fmt.Errorf("awaiting sync data: %w", err)
		}
		if chunk.RequestID != start.RequestID {
			return nil, 0, fmt.Errorf("%w: sync data for %s during %s", protocol.ErrUnexpectedMessage, chunk.RequestID, start.RequestID)
		}

		if int64(buf.Len()+len(chunk.Chunk)) > limit || chunk.RawSize > limit {
			return nil, 0, fmt.Errorf("%w: more than %d bytes", ErrDeltaTooLarge, limit)
		}
		buf.Write(chunk.Chunk)
		compression, rawSize = chunk.Compression, chunk.RawSize

		if chunk.Final {
			break
		}
	}

	transferred := int64(buf.Len())
	payload, err := delta.Decompress(buf.Bytes(), compression, int(rawSize))
	if err != nil {
		return nil, 0, err
	}

	return payload, transferred, nil
}

// writeVerified applies dl to base into a temporary file beside dest,
// checks the result against the announced size and checksum, and renames it
// over dest. Mode and modification time are applied last.
func writeVerified(dest string, base []byte, dl delta.Delta, start protocol.SyncStart) (string, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".hrl-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	hasher := sha256.New()
	written, err := delta.Apply(bytes.NewReader(base), int64(len(base)), dl, io.MultiWriter(tmp, hasher))
	if err != nil {
		return "", err
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	if written != start.Size || checksum != start.Checksum {
		return "", fmt.Errorf("%w: got %d bytes %s, expected %d bytes %s", ErrChecksumMismatch, written, checksum, start.Size, start.Checksum)
	}

	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	mode := fs.FileMode(0o644)
	if start.Mode != 0 {
		mode = fs.FileMode(start.Mode).Perm()
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return "", fmt.Errorf("setting mode: %w", err)
	}

	if err = os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("renaming into place: %w", err)
	}
	committed = true

	if start.ModTime != 0 {
		mtime := time.Unix(start.ModTime, 0)
		if err = os.Chtimes(dest, mtime, mtime); err != nil {
			return "", fmt.Errorf("setting modification time: %w", err)
		}
	}

	return checksum, nil
}
