package crypto

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Permission extension keys set on every admitted connection.
const (
	ExtFingerprint = "fingerprint"
	ExtComment     = "comment"
)

// AuthorizedKeys is an immutable set of public keys.
type AuthorizedKeys struct {
	keys map[string]authorizedKey
}

type authorizedKey struct {
	key     ssh.PublicKey
	comment string
}

// ParseAuthorizedKeys reads every entry of an authorized_keys document.
// Blank lines and comments are skipped.
func ParseAuthorizedKeys(data []byte) (*AuthorizedKeys, error) {
	set := &AuthorizedKeys{keys: make(map[string]authorizedKey)}

	rest := bytes.TrimSpace(data)
	for len(rest) > 0 {
		key, comment, _, next, err := ssh.ParseAuthorizedKey(rest)
		if err != nil {
			return nil, fmt.Errorf("authorized key %d: %w", set.Len()+1, err)
		}
		set.Add(key, comment)
		rest = next
	}

	return set, nil
}

// Add admits key.
func (a *AuthorizedKeys) Add(key ssh.PublicKey, comment string) {
	a.keys[string(key.Marshal())] = authorizedKey{key: key, comment: comment}
}

// Len returns the number of distinct keys.
func (a *AuthorizedKeys) Len() int {
	return len(a.keys)
}

// Check is an ssh.ServerConfig PublicKeyCallback. Admitted connections carry
// the key fingerprint and comment in Permissions.Extensions.
func (a *AuthorizedKeys) Check(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	entry, ok := a.keys[string(key.Marshal())]
	if !ok {
		return nil, fmt.Errorf("%w: %s for user %s", ErrUnauthorizedKey, ssh.FingerprintSHA256(key), conn.User())
	}

	return &ssh.Permissions{
		Extensions: map[string]string{
			ExtFingerprint: ssh.FingerprintSHA256(entry.key),
			ExtComment:     entry.comment,
		},
	}, nil
}
