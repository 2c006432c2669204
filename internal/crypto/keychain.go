// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/tobert/halfremembered-launcher/internal/logger"
)

// keyChain is the private implementation of [KeyChain].
type keyChain struct {
	logger *logger.Logger
}

// NewKeyChain constructs a [KeyChain] that logs the decisions it makes on
// the caller's behalf, such as generating a host key or skipping host key
// verification.
func NewKeyChain(log *logger.Logger) KeyChain {
	if log == nil {
		log = logger.Nop()
	}
	return &keyChain{logger: log}
}

// HostSigner implements [KeyChain].
func (k *keyChain) HostSigner(path string) (ssh.Signer, error) {
	if path == "" {
		return nil, ErrEmptyKeyPath
	}

	pemBytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return k.generateHostKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing host key %s: %w", path, err)
	}

	return signer, nil
}

func (k *keyChain) generateHostKey(path string) (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating host key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "halfremembered-launcher host key")
	if err != nil {
		return nil, fmt.Errorf("encoding host key: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating host key directory: %w", err)
	}
	if err = os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("writing host key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("building host key signer: %w", err)
	}

	k.logger.Info().
		Str("path", path).
		Str("fingerprint", ssh.FingerprintSHA256(signer.PublicKey())).
		Msg("generated new host key")

	return signer, nil
}

// AuthorizedKeys implements [KeyChain].
func (k *keyChain) AuthorizedKeys(path string) (*AuthorizedKeys, error) {
	if path == "" {
		return nil, ErrEmptyKeyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading authorized keys: %w", err)
	}

	keys, err := ParseAuthorizedKeys(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	k.logger.Debug().Str("path", path).Int("keys", keys.Len()).Msg("loaded authorized keys")
	return keys, nil
}

// ClientAuth implements [KeyChain].
func (k *keyChain) ClientAuth(agentSocket, identityPath string) ([]ssh.AuthMethod, func() error, error) {
	var (
		methods []ssh.AuthMethod
		closers []func() error
		errs    []error
	)

	if agentSocket != "" {
		conn, err := net.Dial("unix", agentSocket)
		if err != nil {
			errs = append(errs, fmt.Errorf("connecting to ssh-agent: %w", err))
		} else {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closers = append(closers, conn.Close)
		}
	}

	if identityPath != "" {
		signer, err := loadIdentity(identityPath)
		if err != nil {
			errs = append(errs, err)
		} else {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	closeAll := func() error {
		var closeErrs []error
		for _, c := range closers {
			closeErrs = append(closeErrs, c())
		}
		return errors.Join(closeErrs...)
	}

	if len(methods) == 0 {
		errs = append([]error{ErrNoAuthMethods}, errs...)
		return nil, closeAll, errors.Join(errs...)
	}

	for _, err := range errs {
		k.logger.Warn().Err(err).Msg("ignoring unusable ssh credential")
	}

	return methods, closeAll, nil
}

func loadIdentity(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing identity %s: %w", path, err)
	}

	return signer, nil
}

// HostKeyCallback implements [KeyChain].
func (k *keyChain) HostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		k.logger.Warn().Msg("no known_hosts configured; server host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}

	return callback, nil
}
