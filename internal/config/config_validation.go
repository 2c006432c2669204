// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/delta"
	"github.com/tobert/halfremembered-launcher/internal/logger"
)

// MinHeartbeatInterval is the shortest heartbeat interval accepted. The
// reaper checks sessions every half interval.
const MinHeartbeatInterval = 100 * time.Millisecond

// validate checks the merged [StructuredConfig] before any role-specific
// view is derived from it. It returns the first failing group wrapped with
// the offending value.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.Hostname == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidAppConfigs)
	}
	if cfg.App.LogLevel != "" && !logger.ValidLevel(cfg.App.LogLevel) {
		return fmt.Errorf("%w: log level %q", ErrInvalidAppConfigs, cfg.App.LogLevel)
	}

	for _, addr := range []string{cfg.Transport.ListenAddress, cfg.Transport.ServerAddress} {
		if err := new(NetAddress).Set(addr); err != nil {
			return fmt.Errorf("%w: address %q: %w", ErrInvalidTransportConfigs, addr, err)
		}
	}
	if cfg.Transport.MaxFrameSize <= 0 {
		return fmt.Errorf("%w: max frame size %d", ErrInvalidTransportConfigs, cfg.Transport.MaxFrameSize)
	}

	s := cfg.Session
	if s.HeartbeatInterval <= 0 || s.WelcomeTimeout <= 0 || s.DrainTimeout <= 0 {
		return fmt.Errorf("%w: non-positive duration", ErrInvalidSessionConfigs)
	}
	if s.HeartbeatInterval < MinHeartbeatInterval {
		return fmt.Errorf("%w: heartbeat interval %s below %s", ErrInvalidSessionConfigs, s.HeartbeatInterval, MinHeartbeatInterval)
	}
	if s.ReconnectInterval <= 0 || s.ReconnectCeiling < s.ReconnectInterval {
		return fmt.Errorf("%w: reconnect %s..%s", ErrInvalidSessionConfigs, s.ReconnectInterval, s.ReconnectCeiling)
	}

	if cfg.Sync.OpTimeout <= 0 || cfg.Sync.BlockSize < 0 {
		return fmt.Errorf("%w: op timeout %s, block size %d", ErrInvalidSyncConfigs, cfg.Sync.OpTimeout, cfg.Sync.BlockSize)
	}
	if _, err := delta.ParseCompression(cfg.Sync.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err)
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Server.HTTPAddress != HTTPDisabled && cfg.Server.HTTPAddress != "" {
		if err := new(NetAddress).Set(cfg.Server.HTTPAddress); err != nil {
			return fmt.Errorf("%w: http address %q: %w", ErrInvalidServerConfigs, cfg.Server.HTTPAddress, err)
		}
	}

	if u, err := url.Parse(cfg.Adapter.StatusURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: status url %q", ErrInvalidAdapterConfigs, cfg.Adapter.StatusURL)
	}
	if cfg.Adapter.RequestTimeout <= 0 || cfg.Adapter.PollInterval <= 0 {
		return fmt.Errorf("%w: non-positive duration", ErrInvalidAdapterConfigs)
	}

	return nil
}
