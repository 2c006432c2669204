package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/utils"
)

// HeartbeatFunc records a heartbeat for the session with the given id. It
// fails when the session is no longer registered.
type HeartbeatFunc func(sessionID string, at time.Time) error

// Serve runs the control channel loop until the connection ends, and closes
// the session on return. Heartbeats are passed to touch; the first one of
// the session is echoed back so the initiator can go Active. A Shutdown from
// the daemon ends the loop without error.
func (s *Session) Serve(touch HeartbeatFunc) error {
	err := s.serve(touch)

	cause := err
	switch {
	case err == nil:
		cause = ErrShutdown
	case protocol.IsClean(err):
		cause, err = ErrTransportClosed, nil
	}
	if s.Err() != nil {
		// Already closed by supersession, the reaper or shutdown.
		return nil
	}

	s.Close(cause)
	return err
}

func (s *Session) serve(touch HeartbeatFunc) error {
	for {
		msg, err := s.control.Receive()
		if err != nil {
			if s.Err() != nil {
				return nil
			}
			return err
		}

		switch m := msg.(type) {
		case protocol.Heartbeat:
			if err := touch(s.id, s.clock.Now()); err != nil {
				return fmt.Errorf("recording heartbeat: %w", err)
			}
			if s.firstEcho() {
				if err := s.Send(m); err != nil {
					return fmt.Errorf("echoing first heartbeat: %w", err)
				}
			}

		case protocol.Pong:
			if !s.deliverPong(m) {
				s.logger.Debug().Str("request_id", m.RequestID).Msg("pong for unknown ping")
			}

		case protocol.Shutdown:
			s.logger.Info().Str("reason", m.Reason).Msg("daemon requested shutdown")
			return nil

		case protocol.Error:
			s.logger.Warn().Str("request_id", m.RequestID).Str("reason", m.Reason).Msg("daemon reported error")

		default:
			s.logger.Error().Str("tag", msg.Tag().String()).Msg("unexpected control message")
			return fmt.Errorf("%w: %s from daemon", protocol.ErrUnexpectedMessage, msg.Tag())
		}
	}
}

func (s *Session) firstEcho() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.echoed {
		return false
	}
	s.echoed = true
	return true
}

// ── ping ─────────────────────────────────────────────────────────────────────

// Ping sends Ping on the control channel and waits for the matching Pong.
// It returns the round-trip time measured on the session clock.
func (s *Session) Ping(ctx context.Context) (protocol.Pong, time.Duration, error) {
	requestID, ok := utils.GetRequestIDFromContext(ctx)
	if !ok {
		requestID = utils.NewID()
	}

	wait, cancel := s.expectPong(requestID)
	defer cancel()

	start := s.clock.Now()
	if err := s.Send(protocol.Ping{RequestID: requestID}); err != nil {
		return protocol.Pong{}, 0, fmt.Errorf("sending ping: %w", err)
	}

	select {
	case pong, ok := <-wait:
		if !ok {
			return protocol.Pong{}, 0, s.closedErr()
		}
		return pong, s.clock.Now().Sub(start), nil
	case <-ctx.Done():
		return protocol.Pong{}, 0, context.Cause(ctx)
	case <-s.Done():
		return protocol.Pong{}, 0, s.closedErr()
	}
}

// PendingPings returns the number of pings awaiting a Pong.
func (s *Session) PendingPings() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

func (s *Session) expectPong(requestID string) (<-chan protocol.Pong, func()) {
	ch := make(chan protocol.Pong, 1)

	s.pendingMu.Lock()
	s.pending[requestID] = ch
	s.pendingMu.Unlock()

	return ch, func() {
		s.pendingMu.Lock()
		if s.pending[requestID] == ch {
			delete(s.pending, requestID)
		}
		s.pendingMu.Unlock()
	}
}

func (s *Session) deliverPong(p protocol.Pong) bool {
	s.pendingMu.Lock()
	ch, ok := s.pending[p.RequestID]
	if ok {
		delete(s.pending, p.RequestID)
	}
	s.pendingMu.Unlock()

	if !ok {
		return false
	}
	ch <- p
	return true
}

func (s *Session) failPending() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}
