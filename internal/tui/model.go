package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tobert/halfremembered-launcher/internal/adapter"
	"github.com/tobert/halfremembered-launcher/models"
)

type view int

const (
	viewClients view = iota
	viewSyncs
	viewWatches
	viewCount
)

func (v view) String() string {
	switch v {
	case viewClients:
		return "Clients"
	case viewSyncs:
		return "Syncs"
	case viewWatches:
		return "Watches"
	default:
		return "?"
	}
}

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

type monitorModel struct {
	ctx          context.Context
	adapter      adapter.StatusAdapter
	pollInterval time.Duration
	now          func() time.Time

	view   view
	cursor [viewCount]int

	status          models.ServerStatus
	syncs           []models.SyncRecord
	watches         []models.Watch
	build           models.BuildInfo
	storageDisabled bool
	updatedAt       time.Time

	loading   bool
	spinner   spinner.Model
	detail    *models.ClientInfo
	showBuild bool
	errMsg    string
	lastErr   error
	note      string
	width     int
}

func newMonitorModel(ctx context.Context, statusAdapter adapter.StatusAdapter, pollInterval time.Duration) monitorModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	return monitorModel{
		ctx:          ctx,
		adapter:      statusAdapter,
		pollInterval: pollInterval,
		now:          time.Now,
		loading:      true,
		spinner:      s,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.cmdVersion(), m.cmdFetch(true))
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.loading = false
		var next tea.Cmd
		if msg.polled {
			next = m.cmdPoll()
		}
		if msg.err != nil {
			m.lastErr = msg.err
			m.errMsg = humanizeError(msg.err)
			return m, next
		}
		m.lastErr = nil
		m.status = msg.status
		m.syncs = msg.syncs
		m.watches = msg.watches
		m.storageDisabled = msg.storageDisabled
		m.updatedAt = msg.at
		m.clampCursors()
		return m, next

	case versionMsg:
		if msg.err == nil {
			m.build = msg.info
		}
		return m, nil

	case clientLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = humanizeError(msg.err)
			return m, nil
		}
		client := msg.client
		m.detail = &client
		return m, nil

	case pollMsg:
		return m.startLoading(true)

	case copiedMsg:
		m.note = "copied " + msg.text
		return m, cmdClearStatus()

	case copyFailedMsg:
		m.errMsg = "clipboard: " + msg.err.Error()
		return m, nil

	case clearStatusMsg:
		m.note = ""
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m monitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.quit) {
		return m, tea.Quit
	}

	switch {
	case m.errMsg != "":
		if key.Matches(msg, keys.enter) || key.Matches(msg, keys.esc) {
			m.errMsg = ""
		}
		return m, nil

	case m.showBuild:
		if key.Matches(msg, keys.esc) || key.Matches(msg, keys.version) {
			m.showBuild = false
		}
		return m, nil

	case m.detail != nil:
		switch {
		case key.Matches(msg, keys.esc), key.Matches(msg, keys.enter):
			m.detail = nil
		case key.Matches(msg, keys.copy):
			return m, cmdCopy(m.detail.SessionID)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.up):
		if m.cursor[m.view] > 0 {
			m.cursor[m.view]--
		}
	case key.Matches(msg, keys.down):
		if m.cursor[m.view] < m.rows()-1 {
			m.cursor[m.view]++
		}
	case key.Matches(msg, keys.tab):
		m.view = (m.view + 1) % viewCount
	case key.Matches(msg, keys.backtab):
		m.view = (m.view + viewCount - 1) % viewCount
	case key.Matches(msg, keys.refresh):
		if !m.loading {
			return m.startLoading(false)
		}
	case key.Matches(msg, keys.version):
		m.showBuild = true
	case key.Matches(msg, keys.copy):
		if text, ok := m.selectedValue(); ok {
			return m, cmdCopy(text)
		}
	case key.Matches(msg, keys.enter):
		if m.view == viewClients && m.rows() > 0 {
			m.loading = true
			id := m.status.Clients[m.cursor[viewClients]].SessionID
			return m, tea.Batch(m.spinner.Tick, m.cmdClient(id))
		}
	}

	return m, nil
}

func (m monitorModel) startLoading(polled bool) (tea.Model, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.cmdFetch(polled))
}

func (m monitorModel) rows() int {
	switch m.view {
	case viewClients:
		return len(m.status.Clients)
	case viewSyncs:
		return len(m.syncs)
	case viewWatches:
		return len(m.watches)
	}
	return 0
}

func (m *monitorModel) clampCursors() {
	counts := [viewCount]int{len(m.status.Clients), len(m.syncs), len(m.watches)}
	for v, n := range counts {
		if m.cursor[v] >= n {
			m.cursor[v] = max(n-1, 0)
		}
	}
}

// selectedValue is what the copy key puts on the clipboard for the current
// row: a session id, a sync request id or a watched path.
func (m monitorModel) selectedValue() (string, bool) {
	if m.rows() == 0 {
		return "", false
	}
	i := m.cursor[m.view]
	switch m.view {
	case viewClients:
		return m.status.Clients[i].SessionID, true
	case viewSyncs:
		return m.syncs[i].RequestID, true
	case viewWatches:
		return m.watches[i].Path, true
	}
	return "", false
}

func (m monitorModel) requestContext() (context.Context, context.CancelFunc) {
	timeout := max(m.pollInterval, defaultPollInterval)
	return context.WithTimeout(m.ctx, timeout)
}

func (m monitorModel) cmdFetch(polled bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		msg := snapshotMsg{polled: polled, at: m.now()}
		status, err := m.adapter.Status(ctx)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.status = status

		syncs, err := m.adapter.RecentSyncs(ctx, defaultHistoryLimit)
		switch {
		case errors.Is(err, adapter.ErrStorageDisabled):
			msg.storageDisabled = true
			return msg
		case err != nil:
			msg.err = err
			return msg
		}
		msg.syncs = syncs

		watches, err := m.adapter.Watches(ctx)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.watches = watches
		return msg
	}
}

func (m monitorModel) cmdVersion() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		info, err := m.adapter.Version(ctx)
		return versionMsg{info: info, err: err}
	}
}

func (m monitorModel) cmdClient(sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		client, err := m.adapter.Client(ctx, sessionID)
		return clientLoadedMsg{client: client, err: err}
	}
}

func (m monitorModel) cmdPoll() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func cmdCopy(text string) tea.Cmd {
	return func() tea.Msg {
		if err := writeClipboard(text); err != nil {
			return copyFailedMsg{err: err}
		}
		return copiedMsg{text: text}
	}
}

func cmdClearStatus() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
