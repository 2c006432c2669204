package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the length prefix plus the tag byte.
	HeaderSize = 5

	// DefaultMaxFrameSize bounds the payload of one frame.
	DefaultMaxFrameSize = 10 << 20
)

// Encode frames msg. It fails with ErrFrameTooLarge when the payload exceeds
// maxPayload; a non-positive maxPayload means DefaultMaxFrameSize.
func Encode(msg Message, maxPayload int) ([]byte, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxFrameSize
	}

	payload, err := marshalPayload(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Tag(), err)
	}
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("%w: %s payload is %d bytes, limit %d", ErrFrameTooLarge, msg.Tag(), len(payload), maxPayload)
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)+1))
	frame[4] = byte(msg.Tag())
	copy(frame[HeaderSize:], payload)

	return frame, nil
}

// WriteFrame encodes msg and writes it with a single Write call.
func WriteFrame(w io.Writer, msg Message, maxPayload int) error {
	frame, err := Encode(msg, maxPayload)
	if err != nil {
		return err
	}

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStream, msg.Tag(), err)
	}

	return nil
}

// Reader decodes frames from a byte stream.
type Reader struct {
	r          io.Reader
	maxPayload int
	header     [4]byte
}

// NewReader returns a Reader enforcing maxPayload; a non-positive value means
// DefaultMaxFrameSize.
func NewReader(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxFrameSize
	}
	return &Reader{r: r, maxPayload: maxPayload}
}

// ReadFrame blocks until one whole frame has arrived and returns the decoded
// message. A stream that ends exactly on a frame boundary returns io.EOF;
// every other failure is fatal to the stream.
func (r *Reader) ReadFrame() (Message, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: header", ErrTruncatedFrame)
		default:
			return nil, fmt.Errorf("%w: %w", ErrStream, err)
		}
	}

	length := binary.BigEndian.Uint32(r.header[:])
	if length == 0 {
		return nil, fmt.Errorf("%w: zero length", ErrMalformedFrame)
	}
	if uint64(length-1) > uint64(r.maxPayload) {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrFrameTooLarge, length-1, r.maxPayload)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: body", ErrTruncatedFrame)
		}
		return nil, fmt.Errorf("%w: %w", ErrStream, err)
	}

	return Decode(Tag(body[0]), body[1:])
}

// Decode turns a tag and payload into the matching message.
func Decode(tag Tag, payload []byte) (Message, error) {
	switch tag {
	case TagRegister:
		return decodeAs[Register](tag, payload)
	case TagHeartbeat:
		return decodeAs[Heartbeat](tag, payload)
	case TagPong:
		return decodeAs[Pong](tag, payload)
	case TagWelcome:
		return decodeAs[Welcome](tag, payload)
	case TagPing:
		return decodeAs[Ping](tag, payload)
	case TagShutdown:
		return decodeAs[Shutdown](tag, payload)
	case TagError:
		return decodeAs[Error](tag, payload)
	case TagSyncStart:
		return decodeAs[SyncStart](tag, payload)
	case TagSyncSignature:
		return decodeAs[SyncSignature](tag, payload)
	case TagSyncData:
		return decodeAs[SyncData](tag, payload)
	case TagSyncComplete:
		return decodeAs[SyncComplete](tag, payload)
	case TagExecute:
		return decodeAs[Execute](tag, payload)
	case TagExecComplete:
		return decodeAs[ExecComplete](tag, payload)
	case TagStatusCommand:
		return decodeAs[StatusCommand](tag, payload)
	case TagPingCommand:
		return decodeAs[PingCommand](tag, payload)
	case TagListClientsCommand:
		return decodeAs[ListClientsCommand](tag, payload)
	case TagShutdownCommand:
		return decodeAs[ShutdownCommand](tag, payload)
	case TagSyncFileCommand:
		return decodeAs[SyncFileCommand](tag, payload)
	case TagExecuteCommand:
		return decodeAs[ExecuteCommand](tag, payload)
	case TagWatchCommand:
		return decodeAs[WatchDirectoryCommand](tag, payload)
	case TagUnwatchCommand:
		return decodeAs[UnwatchDirectoryCommand](tag, payload)
	case TagListWatchesCommand:
		return decodeAs[ListWatchesCommand](tag, payload)
	case TagNotifyChangeCommand:
		return decodeAs[NotifyChangeCommand](tag, payload)
	case TagSuccessResponse:
		return decodeAs[SuccessResponse](tag, payload)
	case TagStatusResponse:
		return decodeAs[StatusResponse](tag, payload)
	case TagClientListResponse:
		return decodeAs[ClientListResponse](tag, payload)
	case TagPingResponse:
		return decodeAs[PingResponse](tag, payload)
	case TagSyncReportResponse:
		return decodeAs[SyncReportResponse](tag, payload)
	case TagExecReportResponse:
		return decodeAs[ExecReportResponse](tag, payload)
	case TagWatchListResponse:
		return decodeAs[WatchListResponse](tag, payload)
	case TagChangeReportResponse:
		return decodeAs[ChangeReportResponse](tag, payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
}

func decodeAs[T Message](tag Tag, payload []byte) (Message, error) {
	var msg T
	if err := unmarshalPayload(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrMalformedFrame, tag, err)
	}
	return msg, nil
}
