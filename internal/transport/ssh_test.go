package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/tobert/halfremembered-launcher/internal/crypto"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

func newSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

func startServer(t *testing.T, authorized ...ssh.PublicKey) Listener {
	t.Helper()
	keys, err := crypto.ParseAuthorizedKeys(nil)
	require.NoError(t, err)
	for _, k := range authorized {
		keys.Add(k, "test")
	}

	ln, err := Listen("127.0.0.1:0", ServerOptions{
		HostSigner: newSigner(t),
		Authorize:  keys.Check,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln
}

func TestSSH_LoopbackChannels(t *testing.T) {
	clientKey := newSigner(t)
	ln := startServer(t, clientKey.PublicKey())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialer := NewDialer(ClientOptions{User: "amy", Auth: []ssh.AuthMethod{ssh.PublicKeys(clientKey)}, Timeout: 5 * time.Second}, logger.Nop())
	client, err := dialer.Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer server.Close()

	assert.Equal(t, "amy", server.Identity().User)
	assert.Equal(t, ssh.FingerprintSHA256(clientKey.PublicKey()), server.Identity().Fingerprint)
	assert.NotEmpty(t, client.Identity().Fingerprint)

	// initiator opens control and sends one frame
	control, err := client.OpenChannel(ctx, protocol.ChannelControl)
	require.NoError(t, err)
	in := receiveChannel(t, server)
	require.Equal(t, protocol.ChannelControl, in.Channel)

	go func() {
		conn := protocol.NewConn(protocol.ChannelControl, control, 0)
		_ = conn.Send(protocol.Register{Hostname: "node-1", Purpose: protocol.PurposeDaemon})
	}()
	reg, err := protocol.Expect[protocol.Register](protocol.NewConn(protocol.ChannelControl, in.Stream, 0))
	require.NoError(t, err)
	assert.Equal(t, "node-1", reg.Hostname)

	// acceptor opens a sync channel back
	syncStream, err := server.OpenChannel(ctx, protocol.ChannelSync)
	require.NoError(t, err)
	out := receiveChannel(t, client)
	require.Equal(t, protocol.ChannelSync, out.Channel)

	go func() {
		_, _ = syncStream.Write([]byte("delta"))
		_ = syncStream.CloseWrite()
	}()
	got, err := io.ReadAll(out.Stream)
	require.NoError(t, err)
	assert.Equal(t, "delta", string(got))

	require.NoError(t, client.Close())
	select {
	case <-server.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server side did not observe close")
	}
}

func TestSSH_UnauthorizedKeyRejected(t *testing.T) {
	ln := startServer(t, newSigner(t).PublicKey())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialer := NewDialer(ClientOptions{User: "mallory", Auth: []ssh.AuthMethod{ssh.PublicKeys(newSigner(t))}}, logger.Nop())
	_, err := dialer.Dial(ctx, ln.Addr().String())
	assert.Error(t, err)
}

func TestSSH_AcceptAfterClose(t *testing.T) {
	ln := startServer(t)
	require.NoError(t, ln.Close())

	_, err := ln.Accept(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
