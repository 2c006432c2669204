// Package crypto loads and creates the SSH key material the launcher
// authenticates with: the server host key, the authorized_keys set used to
// admit initiators, and the client-side agent or identity file signers.
package crypto

import (
	"golang.org/x/crypto/ssh"
)

// KeyChain resolves SSH credentials from disk and from ssh-agent. It does not
// know anything about sessions or the wire protocol.
type KeyChain interface {
	// HostSigner loads the host key at path. A missing file is created with
	// a fresh ed25519 key and mode 0600.
	HostSigner(path string) (ssh.Signer, error)

	// AuthorizedKeys parses an authorized_keys file.
	AuthorizedKeys(path string) (*AuthorizedKeys, error)

	// ClientAuth collects the signers offered by ssh-agent at agentSocket
	// and by the private key at identityPath. Either may be empty; both
	// empty or both unusable returns ErrNoAuthMethods. The returned closer
	// releases the agent connection.
	ClientAuth(agentSocket, identityPath string) ([]ssh.AuthMethod, func() error, error)

	// HostKeyCallback verifies servers against knownHostsPath. An empty path
	// accepts any host key.
	HostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error)
}
