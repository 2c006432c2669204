package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
	outputStyle  = lipgloss.NewStyle().PaddingLeft(2)
	sectionStyle = lipgloss.NewStyle().Faint(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printClients(w io.Writer, clients []models.ClientInfo, now time.Time) {
	if len(clients) == 0 {
		fmt.Fprintln(w, "no clients connected")
		return
	}

	t := newTable("HOST", "STATE", "PLATFORM", "VERSION", "HEARTBEAT", "SESSION")
	for _, c := range clients {
		t.Row(c.Hostname, c.State, dash(c.Platform), dash(c.Version), age(now, c.LastHeartbeat), c.SessionID)
	}
	fmt.Fprintln(w, t.Render())
}

func printStatus(w io.Writer, status models.ServerStatus, now time.Time) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(status.Hostname), sectionStyle.Render("version "+status.Version))
	fmt.Fprintf(w, "up %s, %d client(s)\n", status.Uptime.Truncate(time.Second), len(status.Clients))
	if len(status.Clients) > 0 {
		printClients(w, status.Clients, now)
	}
}

// printPings writes one row per target and returns how many failed.
func printPings(w io.Writer, results []models.PingOutcome) int {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matching clients")
		return 0
	}

	failed := 0
	t := newTable("HOST", "RESULT", "RTT", "UPTIME", "PENDING")
	for _, r := range results {
		if r.Error != "" {
			failed++
			t.Row(r.Hostname, failStyle.Render(r.Error), "-", "-", "-")
			continue
		}
		t.Row(r.Hostname, okStyle.Render("ok"), r.RoundTrip.Round(time.Microsecond).String(),
			r.Uptime.Truncate(time.Second).String(), strconv.FormatUint(uint64(r.PendingTransfers), 10))
	}
	fmt.Fprintln(w, t.Render())
	return failed
}

// printSyncReport writes the per-target outcomes and returns how many
// failed.
func printSyncReport(w io.Writer, report models.SyncReport) int {
	fmt.Fprintf(w, "%s %s -> %s (%d bytes, %s)\n",
		titleStyle.Render("sync "+report.RequestID), report.Path, report.Destination, report.Size, shortChecksum(report.Checksum))

	if len(report.Outcomes) == 0 {
		fmt.Fprintln(w, "no matching clients")
		return 0
	}

	t := newTable("HOST", "RESULT", "SENT", "DURATION")
	for _, o := range report.Outcomes {
		result := okStyle.Render("ok")
		if !o.Success {
			result = failStyle.Render(dash(o.Error))
		}
		t.Row(o.Hostname, result, strconv.FormatInt(o.BytesTransferred, 10), o.Duration.Round(time.Millisecond).String())
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d succeeded, %d failed\n", report.Succeeded(), report.Failed())
	return report.Failed()
}

// printExecReport writes a summary table followed by each target's output
// and returns how many targets failed.
func printExecReport(w io.Writer, report models.ExecReport) int {
	if len(report.Outcomes) == 0 {
		fmt.Fprintln(w, "no matching clients")
		return 0
	}

	failed := 0
	t := newTable("HOST", "EXIT", "ERROR")
	for _, o := range report.Outcomes {
		exit := okStyle.Render(strconv.Itoa(o.ExitCode))
		if !o.Success() {
			failed++
			exit = failStyle.Render(strconv.Itoa(o.ExitCode))
		}
		t.Row(o.Hostname, exit, dash(o.Error))
	}
	fmt.Fprintln(w, t.Render())

	for _, o := range report.Outcomes {
		if o.Stdout == "" && o.Stderr == "" {
			continue
		}
		fmt.Fprintln(w, sectionStyle.Render("── "+o.Hostname+" ──"))
		if o.Stdout != "" {
			fmt.Fprintln(w, outputStyle.Render(strings.TrimRight(o.Stdout, "\n")))
		}
		if o.Stderr != "" {
			fmt.Fprintln(w, outputStyle.Render(failStyle.Render(strings.TrimRight(o.Stderr, "\n"))))
		}
	}
	return failed
}

func printWatches(w io.Writer, watches []models.Watch) {
	if len(watches) == 0 {
		fmt.Fprintln(w, "no watches configured")
		return
	}

	t := newTable("PATH", "RECURSIVE", "INCLUDE", "EXCLUDE", "DESTINATION")
	for _, wt := range watches {
		t.Row(wt.Path, strconv.FormatBool(wt.Recursive),
			dash(strings.Join(wt.Include, ",")), dash(strings.Join(wt.Exclude, ",")), dash(wt.Destination))
	}
	fmt.Fprintln(w, t.Render())
}

// printChangeReport writes one sync report per synced file, then the paths no
// watch claimed, and returns how many reports had a failed target.
func printChangeReport(w io.Writer, resp protocol.ChangeReportResponse) int {
	failed := 0
	for _, report := range resp.Reports {
		if printSyncReport(w, report) > 0 {
			failed++
		}
	}
	for _, p := range resp.Unmatched {
		fmt.Fprintln(w, "no watch for", p)
	}
	return failed
}

func printSuccess(w io.Writer, message string) {
	fmt.Fprintln(w, okStyle.Render("ok:"), message)
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func age(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return now.Sub(t).Truncate(time.Second).String() + " ago"
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return dash(sum)
}
