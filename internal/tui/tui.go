// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui implements the launcher's terminal monitor.
//
// The monitor polls a running server through [adapter.StatusAdapter] and
// shows three views: the connected daemons, the recent sync history and the
// stored directory watches. It never changes server state.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tobert/halfremembered-launcher/internal/adapter"
	"github.com/tobert/halfremembered-launcher/internal/logger"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultHistoryLimit = 50
)

// TUI runs the monitor program.
type TUI struct {
	adapter      adapter.StatusAdapter
	pollInterval time.Duration
	logger       *logger.Logger
}

// New returns a monitor that refreshes every pollInterval. A non-positive
// interval falls back to two seconds.
func New(statusAdapter adapter.StatusAdapter, pollInterval time.Duration, log *logger.Logger) *TUI {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &TUI{adapter: statusAdapter, pollInterval: pollInterval, logger: log}
}

// Run blocks until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	m := newMonitorModel(ctx, t.adapter, t.pollInterval)
	finalModel, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if result, ok := finalModel.(monitorModel); ok && result.lastErr != nil {
		t.logger.Debug().Err(result.lastErr).Msg("monitor exited after a failed refresh")
	}
	return nil
}
