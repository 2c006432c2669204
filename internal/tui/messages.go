package tui

import (
	"time"

	"github.com/tobert/halfremembered-launcher/models"
)

// snapshotMsg carries one full refresh. polled is set when the refresh came
// from the poll loop, which is then re-armed.
type snapshotMsg struct {
	status          models.ServerStatus
	syncs           []models.SyncRecord
	watches         []models.Watch
	storageDisabled bool
	at              time.Time
	polled          bool
	err             error
}

type versionMsg struct {
	info models.BuildInfo
	err  error
}

type clientLoadedMsg struct {
	client models.ClientInfo
	err    error
}

type pollMsg struct{}

type copiedMsg struct {
	text string
}

type copyFailedMsg struct {
	err error
}

type clearStatusMsg struct{}
