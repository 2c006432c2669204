package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/delta"
	"github.com/tobert/halfremembered-launcher/internal/executor"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/mock"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/transport"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// pipeDialer hands the acceptor end of every dialed pipe to the test.
type pipeDialer struct {
	accepted chan transport.Conn
	attempts atomic.Int32
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{accepted: make(chan transport.Conn, 4)}
}

func (p *pipeDialer) Dial(ctx context.Context, _ string) (transport.Conn, error) {
	p.attempts.Add(1)
	initiator, acceptor := transport.Pipe(transport.Identity{User: "amy"})
	select {
	case p.accepted <- acceptor:
		return initiator, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeDialer) next(t *testing.T) transport.Conn {
	t.Helper()
	select {
	case c := <-p.accepted:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not dial")
		return nil
	}
}

type fakeServer struct {
	conn    transport.Conn
	control *protocol.Conn
}

// accept plays the server side of registration up to and including the
// heartbeat echo.
func accept(t *testing.T, dialer *pipeDialer) *fakeServer {
	t.Helper()
	conn := dialer.next(t)

	ic := <-conn.Channels()
	require.Equal(t, protocol.ChannelControl, ic.Channel)
	control := protocol.NewConn(protocol.ChannelControl, ic.Stream, 0)

	reg, err := protocol.Expect[protocol.Register](control)
	require.NoError(t, err)
	assert.Equal(t, "node-1", reg.Hostname)
	assert.Equal(t, protocol.PurposeDaemon, reg.Purpose)
	assert.Contains(t, reg.Capabilities, "sync")

	require.NoError(t, control.Send(protocol.Welcome{SessionID: "s-1", ServerVersion: "test"}))

	hb, err := protocol.Expect[protocol.Heartbeat](control)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), hb.Sequence)
	require.NoError(t, control.Send(hb))

	return &fakeServer{conn: conn, control: control}
}

func startDaemon(t *testing.T, workDir string, exec executor.Executor, clk clock.Clock) (*Daemon, *pipeDialer, <-chan error) {
	t.Helper()
	dialer := newPipeDialer()
	d := New(Config{
		ServerAddress: "pipe",
		Hostname:      "node-1",
		Version:       "test",
		WorkingDir:    workDir,
	}, dialer, exec, clk, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		result <- d.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	return d, dialer, result
}

// ── lifecycle ────────────────────────────────────────────────────────────────

func TestDaemon_RegistersAndGoesActive(t *testing.T) {
	d, dialer, _ := startDaemon(t, t.TempDir(), nil, clock.Fake(epoch))
	accept(t, dialer)

	require.Eventually(t, func() bool { return d.State() == session.StateActive }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "s-1", d.SessionID())
}

func TestDaemon_AnswersPing(t *testing.T) {
	fake := clock.Fake(epoch)
	d, dialer, _ := startDaemon(t, t.TempDir(), nil, fake)
	srv := accept(t, dialer)
	require.Eventually(t, func() bool { return d.State() == session.StateActive }, 2*time.Second, 5*time.Millisecond)

	fake.Advance(DefaultHeartbeatInterval)
	hb, err := protocol.Expect[protocol.Heartbeat](srv.control)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), hb.Sequence)

	require.NoError(t, srv.control.Send(protocol.Ping{RequestID: "p-1"}))
	pong, err := protocol.Expect[protocol.Pong](srv.control)
	require.NoError(t, err)
	assert.Equal(t, "p-1", pong.RequestID)
	assert.Equal(t, DefaultHeartbeatInterval, pong.Uptime)
}

func TestDaemon_ShutdownStopsReconnecting(t *testing.T) {
	_, dialer, done := startDaemon(t, t.TempDir(), nil, clock.Fake(epoch))
	srv := accept(t, dialer)

	require.NoError(t, srv.control.Send(protocol.Shutdown{Reason: "maintenance"}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
	assert.Equal(t, int32(1), dialer.attempts.Load())
}

func TestDaemon_WelcomeTimeoutReconnectsWithBackoff(t *testing.T) {
	fake := clock.Fake(epoch)
	d, dialer, _ := startDaemon(t, t.TempDir(), nil, fake)

	first := dialer.next(t)
	ic := <-first.Channels()
	_, err := protocol.Expect[protocol.Register](protocol.NewConn(protocol.ChannelControl, ic.Stream, 0))
	require.NoError(t, err)

	fake.WaitForTimers(1)
	fake.Advance(DefaultWelcomeTimeout)

	// reconnect waits the base interval
	fake.WaitForTimers(1)
	assert.Equal(t, int32(1), dialer.attempts.Load())
	fake.Advance(session.DefaultReconnectInterval)

	second := dialer.next(t)
	assert.NotNil(t, second)
	assert.Equal(t, int32(2), dialer.attempts.Load())
	assert.NotEqual(t, session.StateActive, d.State())
}

func TestDaemon_RegistrationRefused(t *testing.T) {
	fake := clock.Fake(epoch)
	_, dialer, _ := startDaemon(t, t.TempDir(), nil, fake)

	conn := dialer.next(t)
	ic := <-conn.Channels()
	control := protocol.NewConn(protocol.ChannelControl, ic.Stream, 0)
	_, err := protocol.Expect[protocol.Register](control)
	require.NoError(t, err)
	require.NoError(t, control.Send(protocol.Error{Reason: "not allowed"}))

	// the unfired welcome timer plus the backoff delay
	fake.WaitForTimers(2)
	fake.Advance(session.DefaultReconnectInterval)
	dialer.next(t)
}

// ── sync ─────────────────────────────────────────────────────────────────────

type pushResult struct {
	complete protocol.SyncComplete
	err      error
}

func push(t *testing.T, srv *fakeServer, relPath string, target []byte, blockSize int, mutate func(*protocol.SyncStart)) pushResult {
	t.Helper()
	ctx := context.Background()

	stream, err := srv.conn.OpenChannel(ctx, protocol.ChannelSync)
	require.NoError(t, err)
	c := protocol.NewConn(protocol.ChannelSync, stream, 0)
	defer c.Close()

	start := protocol.SyncStart{
		RequestID:    "r-1",
		RelativePath: relPath,
		Size:         int64(len(target)),
		Checksum:     delta.Checksum(target),
		ModTime:      epoch.Unix(),
		Mode:         0o600,
		BlockSize:    uint32(blockSize),
	}
	if mutate != nil {
		mutate(&start)
	}
	require.NoError(t, c.Send(start))

	sig, err := protocol.Expect[protocol.SyncSignature](c)
	if err != nil {
		return pushResult{err: err}
	}

	dl, err := delta.Compute(sig.Signature, target)
	require.NoError(t, err)
	payload := delta.Marshal(dl)
	compressed, used, err := delta.Compress(payload, delta.CompressionZstd)
	require.NoError(t, err)

	half := len(compressed) / 2
	for i, chunk := range [][]byte{compressed[:half], compressed[half:]} {
		require.NoError(t, c.Send(protocol.SyncData{
			RequestID:   "r-1",
			Chunk:       chunk,
			Compression: used,
			RawSize:     int64(len(payload)),
			Final:       i == 1,
		}))
	}

	complete, err := protocol.Expect[protocol.SyncComplete](c)
	return pushResult{complete: complete, err: err}
}

// textLines returns n lines of 200 bytes each.
func textLines(n int) []byte {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), 199))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func TestDaemon_ReceivesNewFile(t *testing.T) {
	work := t.TempDir()
	_, dialer, _ := startDaemon(t, work, nil, clock.Fake(epoch))
	srv := accept(t, dialer)

	target := textLines(40)
	res := push(t, srv, "conf/app.txt", target, 512, nil)
	require.NoError(t, res.err)

	dest := filepath.Join(work, "conf", "app.txt")
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.Equal(t, delta.Checksum(target), res.complete.Checksum)
	assert.Equal(t, dest, res.complete.Path)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(epoch))

	leftovers, err := filepath.Glob(filepath.Join(work, "conf", ".*.hrl-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDaemon_DeltaAgainstExistingFileTransfersLess(t *testing.T) {
	work := t.TempDir()
	_, dialer, _ := startDaemon(t, work, nil, clock.Fake(epoch))
	srv := accept(t, dialer)

	base := textLines(60)
	require.NoError(t, os.WriteFile(filepath.Join(work, "data.txt"), base, 0o644))

	target := append([]byte(nil), base...)
	copy(target[200:], []byte("CHANGED LINE"))
	target = append(target, []byte("one more line\n")...)

	res := push(t, srv, "data.txt", target, 512, nil)
	require.NoError(t, res.err)

	got, err := os.ReadFile(filepath.Join(work, "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.Less(t, res.complete.BytesTransferred, int64(len(target)))
}

func TestDaemon_SyncFailuresReportError(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		mutate  func(*protocol.SyncStart)
		wantMsg string
	}{
		{name: "escape", path: "../outside.txt", wantMsg: "escapes"},
		{name: "bad block size", path: "f.txt", mutate: func(s *protocol.SyncStart) { s.BlockSize = 3 }, wantMsg: "block size"},
		{name: "checksum", path: "f.txt", mutate: func(s *protocol.SyncStart) { s.Checksum = strings.Repeat("0", 64) }, wantMsg: "checksum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			work := t.TempDir()
			_, dialer, _ := startDaemon(t, work, nil, clock.Fake(epoch))
			srv := accept(t, dialer)

			res := push(t, srv, tt.path, textLines(5), 512, tt.mutate)

			var remote *protocol.RemoteError
			require.True(t, errors.As(res.err, &remote), "got %v", res.err)
			assert.Equal(t, "r-1", remote.RequestID)
			assert.Contains(t, remote.Reason, tt.wantMsg)

			_, err := os.Stat(filepath.Join(work, "f.txt"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

// ── exec ─────────────────────────────────────────────────────────────────────

func runExec(t *testing.T, srv *fakeServer, req protocol.Execute) (protocol.ExecComplete, error) {
	t.Helper()
	stream, err := srv.conn.OpenChannel(context.Background(), protocol.ChannelExec)
	require.NoError(t, err)
	c := protocol.NewConn(protocol.ChannelExec, stream, 0)
	defer c.Close()

	require.NoError(t, c.Send(req))
	return protocol.Expect[protocol.ExecComplete](c)
}

func TestDaemon_Execute(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mock.NewMockExecutor(ctrl)

	exec.EXPECT().
		Run(gomock.Any(), executor.Request{
			Command: "uname",
			Args:    []string{"-a"},
			Env:     map[string]string{EnvSessionID: "s-1", EnvRequestID: "e-1", "LANG": "C"},
		}).
		Return(executor.Result{ExitCode: 2, Stdout: "Linux", Stderr: "warn"}, nil)

	_, dialer, _ := startDaemon(t, t.TempDir(), exec, clock.Fake(epoch))
	srv := accept(t, dialer)

	done, err := runExec(t, srv, protocol.Execute{RequestID: "e-1", Command: "uname", Args: []string{"-a"}, Env: map[string]string{"LANG": "C"}})
	require.NoError(t, err)
	assert.Equal(t, "e-1", done.RequestID)
	assert.Equal(t, 2, done.ExitCode)
	assert.Equal(t, "Linux", done.Stdout)
	assert.Equal(t, "warn", done.Stderr)
}

func TestDaemon_ExecuteStartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mock.NewMockExecutor(ctrl)
	exec.EXPECT().Run(gomock.Any(), gomock.Any()).Return(executor.Result{}, executor.ErrStartFailed)

	_, dialer, _ := startDaemon(t, t.TempDir(), exec, clock.Fake(epoch))
	srv := accept(t, dialer)

	_, err := runExec(t, srv, protocol.Execute{RequestID: "e-2", Command: "nope"})
	var remote *protocol.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "e-2", remote.RequestID)
}

func TestDaemon_ExecuteDisabled(t *testing.T) {
	_, dialer, _ := startDaemon(t, t.TempDir(), nil, clock.Fake(epoch))
	srv := accept(t, dialer)

	_, err := runExec(t, srv, protocol.Execute{RequestID: "e-3", Command: "ls"})
	var remote *protocol.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Reason, "disabled")
}

// ── paths ────────────────────────────────────────────────────────────────────

func TestResolvePath(t *testing.T) {
	work := filepath.FromSlash("/srv/work")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b.txt", want: filepath.Join(work, "a", "b.txt")},
		{in: "./a/../b.txt", want: filepath.Join(work, "b.txt")},
		{in: "/etc/hosts", want: filepath.FromSlash("/etc/hosts")},
		{in: "../x", wantErr: true},
		{in: "a/../../x", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolvePath(work, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathEscapes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
