// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/tobert/halfremembered-launcher/internal/logger"
)

type fakeConnMeta struct{ user string }

func (f fakeConnMeta) User() string          { return f.user }
func (f fakeConnMeta) SessionID() []byte     { return nil }
func (f fakeConnMeta) ClientVersion() []byte { return nil }
func (f fakeConnMeta) ServerVersion() []byte { return nil }
func (f fakeConnMeta) RemoteAddr() net.Addr  { return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 50000} }
func (f fakeConnMeta) LocalAddr() net.Addr   { return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 8022} }

func writeIdentity(t *testing.T, dir string) (string, ssh.Signer) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "test")
	require.NoError(t, err)

	path := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return path, signer
}

// ── HostSigner ───────────────────────────────────────────────────────────────

func TestHostSigner_GeneratesAndPersists(t *testing.T) {
	kc := NewKeyChain(logger.Nop())
	path := filepath.Join(t.TempDir(), "keys", "host_ed25519")

	first, err := kc.HostSigner(path)
	require.NoError(t, err)
	assert.Equal(t, ssh.KeyAlgoED25519, first.PublicKey().Type())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := kc.HostSigner(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey().Marshal(), second.PublicKey().Marshal())
}

func TestHostSigner_Errors(t *testing.T) {
	kc := NewKeyChain(nil)

	_, err := kc.HostSigner("")
	assert.ErrorIs(t, err, ErrEmptyKeyPath)

	bad := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o600))
	_, err = kc.HostSigner(bad)
	assert.Error(t, err)
}

// ── AuthorizedKeys ───────────────────────────────────────────────────────────

func TestAuthorizedKeys_CheckAdmitsListedKey(t *testing.T) {
	dir := t.TempDir()
	_, allowed := writeIdentity(t, dir)
	_, stranger := writeIdentity(t, t.TempDir())

	doc := "# fleet keys\n\n" + string(ssh.MarshalAuthorizedKey(allowed.PublicKey()))
	path := filepath.Join(dir, "authorized_keys")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	keys, err := NewKeyChain(logger.Nop()).AuthorizedKeys(path)
	require.NoError(t, err)
	assert.Equal(t, 1, keys.Len())

	perms, err := keys.Check(fakeConnMeta{user: "amy"}, allowed.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, ssh.FingerprintSHA256(allowed.PublicKey()), perms.Extensions[ExtFingerprint])

	_, err = keys.Check(fakeConnMeta{user: "amy"}, stranger.PublicKey())
	assert.ErrorIs(t, err, ErrUnauthorizedKey)
}

func TestParseAuthorizedKeys_Invalid(t *testing.T) {
	_, err := ParseAuthorizedKeys([]byte("ssh-ed25519 not-base64!!"))
	assert.Error(t, err)
}

func TestAuthorizedKeys_MissingFile(t *testing.T) {
	_, err := NewKeyChain(logger.Nop()).AuthorizedKeys(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

// ── ClientAuth ───────────────────────────────────────────────────────────────

func TestClientAuth_IdentityOnly(t *testing.T) {
	path, _ := writeIdentity(t, t.TempDir())

	methods, closeFn, err := NewKeyChain(logger.Nop()).ClientAuth("", path)
	require.NoError(t, err)
	assert.Len(t, methods, 1)
	assert.NoError(t, closeFn())
}

func TestClientAuth_UnreachableAgentFallsBackToIdentity(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeIdentity(t, dir)

	methods, closeFn, err := NewKeyChain(logger.Nop()).ClientAuth(filepath.Join(dir, "no-agent.sock"), path)
	require.NoError(t, err)
	assert.Len(t, methods, 1)
	assert.NoError(t, closeFn())
}

func TestClientAuth_NothingUsable(t *testing.T) {
	_, _, err := NewKeyChain(logger.Nop()).ClientAuth("", "")
	assert.ErrorIs(t, err, ErrNoAuthMethods)

	_, _, err = NewKeyChain(logger.Nop()).ClientAuth("", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNoAuthMethods)
}

// ── HostKeyCallback ──────────────────────────────────────────────────────────

func TestHostKeyCallback(t *testing.T) {
	kc := NewKeyChain(logger.Nop())

	insecure, err := kc.HostKeyCallback("")
	require.NoError(t, err)
	require.NotNil(t, insecure)

	dir := t.TempDir()
	_, host := writeIdentity(t, dir)
	line := "127.0.0.1 " + string(ssh.MarshalAuthorizedKey(host.PublicKey()))
	knownHosts := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(knownHosts, []byte(line), 0o600))

	verify, err := kc.HostKeyCallback(knownHosts)
	require.NoError(t, err)

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 22}
	assert.NoError(t, verify("127.0.0.1:22", addr, host.PublicKey()))

	_, other := writeIdentity(t, t.TempDir())
	assert.Error(t, verify("127.0.0.1:22", addr, other.PublicKey()))
}
