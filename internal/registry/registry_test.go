package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/transport"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, c clock.Clock, id, hostname, user string, purpose protocol.Purpose) *session.Session {
	t.Helper()
	initiator, acceptor := transport.Pipe(transport.Identity{User: user})
	t.Cleanup(func() { initiator.Close() })

	s := session.New(context.Background(), session.Options{
		ID:       id,
		Register: protocol.Register{Hostname: hostname, Purpose: purpose},
		Conn:     acceptor,
		Clock:    c,
		Logger:   logger.Nop(),
	})
	require.NoError(t, s.MarkRegistered())
	return s
}

func ids(sessions []*session.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID())
	}
	return out
}

// ── Register ─────────────────────────────────────────────────────────────────

func TestRegister_AdmitsAndSorts(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(logger.Nop())

	for _, s := range []*session.Session{
		newSession(t, c, "s-3", "node-b", "amy", protocol.PurposeDaemon),
		newSession(t, c, "s-1", "node-a", "amy", protocol.PurposeDaemon),
		newSession(t, c, "s-2", "node-c", "amy", protocol.PurposeDaemon),
	} {
		old, err := r.Register(s)
		require.NoError(t, err)
		assert.Nil(t, old)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"s-1", "s-3", "s-2"}, ids(r.All()))

	got, ok := r.Get("s-2")
	require.True(t, ok)
	assert.Equal(t, "node-c", got.Hostname())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegister_RejectsOneShotPurpose(t *testing.T) {
	r := New(nil)
	_, err := r.Register(newSession(t, clock.Fake(epoch), "s-1", "admin", "amy", protocol.PurposeOneShotControl))
	assert.ErrorIs(t, err, ErrNotDaemon)
	assert.Zero(t, r.Len())
}

func TestRegister_RejectsDuplicateID(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)
	_, err := r.Register(newSession(t, c, "s-1", "node-a", "amy", protocol.PurposeDaemon))
	require.NoError(t, err)

	_, err = r.Register(newSession(t, c, "s-1", "node-b", "amy", protocol.PurposeDaemon))
	assert.ErrorIs(t, err, ErrDuplicateSession)
}

func TestRegister_SupersedesSameHostnameAndIdentity(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)

	first := newSession(t, c, "s-1", "node-a", "amy", protocol.PurposeDaemon)
	_, err := r.Register(first)
	require.NoError(t, err)

	c.Advance(time.Second)
	second := newSession(t, c, "s-2", "node-a", "amy", protocol.PurposeDaemon)
	old, err := r.Register(second)
	require.NoError(t, err)
	assert.Same(t, first, old)
	assert.Equal(t, []string{"s-2"}, ids(r.All()))

	// the old session's teardown must not remove the new entry
	assert.False(t, r.RemoveIf(first))
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.RemoveIf(second))
	assert.Zero(t, r.Len())
}

func TestRegister_DifferentIdentityCoexists(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)

	_, err := r.Register(newSession(t, c, "s-1", "node-a", "amy", protocol.PurposeDaemon))
	require.NoError(t, err)
	old, err := r.Register(newSession(t, c, "s-2", "node-a", "bob", protocol.PurposeDaemon))
	require.NoError(t, err)

	assert.Nil(t, old)
	assert.Equal(t, 2, r.Len())
}

func TestRemove(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)
	_, err := r.Register(newSession(t, c, "s-1", "node-a", "amy", protocol.PurposeDaemon))
	require.NoError(t, err)

	assert.True(t, r.Remove("s-1"))
	assert.False(t, r.Remove("s-1"))

	// the key slot is free again
	old, err := r.Register(newSession(t, c, "s-2", "node-a", "amy", protocol.PurposeDaemon))
	require.NoError(t, err)
	assert.Nil(t, old)
}

// ── lookups ──────────────────────────────────────────────────────────────────

func TestFindByHostnamePattern(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)
	for i, host := range []string{"web-1", "web-2", "db-1"} {
		_, err := r.Register(newSession(t, c, []string{"a", "b", "c"}[i], host, "amy", protocol.PurposeDaemon))
		require.NoError(t, err)
	}

	got, err := r.FindByHostnamePattern("web-*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	got, err = r.FindByHostnamePattern("db-?")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))

	got, err = r.FindByHostnamePattern("cache-*")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.FindByHostnamePattern("web-[")
	assert.ErrorIs(t, err, ErrBadPattern)
}

func TestTouchHeartbeat(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)
	s := newSession(t, c, "s-1", "node-a", "amy", protocol.PurposeDaemon)
	_, err := r.Register(s)
	require.NoError(t, err)

	assert.ErrorIs(t, r.TouchHeartbeat("nope", epoch), ErrSessionNotFound)

	require.NoError(t, r.TouchHeartbeat("s-1", epoch.Add(time.Second)))
	assert.Equal(t, session.StateActive, s.State())
	assert.Equal(t, epoch.Add(time.Second), s.LastHeartbeat())
}

func TestExpired(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)
	stale := newSession(t, c, "stale", "node-a", "amy", protocol.PurposeDaemon)
	fresh := newSession(t, c, "fresh", "node-b", "amy", protocol.PurposeDaemon)
	for _, s := range []*session.Session{stale, fresh} {
		_, err := r.Register(s)
		require.NoError(t, err)
	}

	c.Advance(50 * time.Second)
	require.NoError(t, r.TouchHeartbeat("fresh", c.Now()))
	c.Advance(20 * time.Second)

	assert.Equal(t, []string{"stale"}, ids(r.Expired(c.Now(), time.Minute)))
}

// ── selectors ────────────────────────────────────────────────────────────────

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in   string
		want Selector
	}{
		{in: "", want: Selector{}},
		{in: "*", want: Selector{}},
		{in: "web-*", want: Selector{Pattern: "web-*"}},
		{in: "node-1", want: Selector{Names: []string{"node-1"}}},
		{in: "node-1, node-2,,", want: Selector{Names: []string{"node-1", "node-2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSelector(tt.in))
		})
	}
	assert.True(t, ParseSelector("").IsAll())
	assert.Equal(t, "a,b", Selector{Names: []string{"a", "b"}}.String())
}

func TestSelect(t *testing.T) {
	c := clock.Fake(epoch)
	r := New(nil)

	_, _, err := r.Select(All())
	assert.ErrorIs(t, err, ErrNoTargets)

	for i, host := range []string{"web-1", "web-2", "db-1"} {
		_, err := r.Register(newSession(t, c, []string{"a", "b", "c"}[i], host, "amy", protocol.PurposeDaemon))
		require.NoError(t, err)
	}

	targets, missing, err := r.Select(All())
	require.NoError(t, err)
	assert.Len(t, targets, 3)
	assert.Empty(t, missing)

	targets, missing, err = r.Select(ParseSelector("web-1,c,ghost,a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(targets))
	assert.Equal(t, []string{"ghost"}, missing)

	targets, missing, err = r.Select(ParseSelector("ghost"))
	require.NoError(t, err)
	assert.Empty(t, targets)
	assert.Equal(t, []string{"ghost"}, missing)

	_, _, err = r.Select(ParseSelector("cache-*"))
	assert.ErrorIs(t, err, ErrNoTargets)

	_, _, err = r.Select(Selector{Pattern: "["})
	assert.ErrorIs(t, err, ErrBadPattern)
}
