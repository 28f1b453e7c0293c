package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"serverlist/pkg/client"
	"serverlist/pkg/coordinator"
	"serverlist/pkg/models"
	"serverlist/pkg/probe"
)

// Color palette
var (
	colorGreen  = lipgloss.Color("42")
	colorYellow = lipgloss.Color("214")
	colorRed    = lipgloss.Color("196")
	colorCyan   = lipgloss.Color("45")
	colorGray   = lipgloss.Color("245")
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorGray)
	loadedStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	loadingStyle = lipgloss.NewStyle().Foreground(colorYellow)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

// Table column widths
const (
	colID      = 36
	colName    = 24
	colAddress = 28
	colStatus  = 10
	colPlayers = 12
	colPing    = 8
)

func printView(w io.Writer, opts *GlobalOptions, view coordinator.View) error {
	if opts.JSON {
		return writeJSON(w, view)
	}

	if view.State == coordinator.StateLoading {
		fmt.Fprintln(w, mutedStyle.Render("Loading servers..."))
		return nil
	}
	if view.Total == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No servers saved."))
		return nil
	}
	if len(view.Entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("No servers match %q.", view.Filter)))
		return nil
	}

	fmt.Fprintln(w, headerStyle.Render(row("ID", "NAME", "ADDRESS", "STATUS", "PLAYERS", "PING", "UPDATED")))
	for _, entry := range view.Entries {
		fmt.Fprintln(w, entryRow(entry))
	}

	if view.Filter != "" {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d of %d servers match %q", len(view.Entries), view.Total, view.Filter)))
	}
	return nil
}

func row(id, name, addr, status, players, ping, updated string) string {
	return strings.Join([]string{
		pad(id, colID),
		pad(name, colName),
		pad(addr, colAddress),
		pad(status, colStatus),
		pad(players, colPlayers),
		pad(ping, colPing),
		updated,
	}, " ")
}

func entryRow(entry models.ServerEntry) string {
	st := entry.Status
	players, ping, updated := "-", "-", "-"
	if st.Kind == models.StatusLoaded {
		players = humanize.Comma(int64(st.Online)) + "/" + humanize.Comma(int64(st.Max))
		ping = fmt.Sprintf("%dms", st.PingMs)
	}
	if !st.UpdatedAt.IsZero() {
		updated = humanize.Time(st.UpdatedAt)
	}

	line := strings.Join([]string{
		pad(entry.ID, colID),
		pad(entry.DisplayName(), colName),
		pad(entry.Address, colAddress),
		statusStyle(st.Kind).Render(pad(string(st.Kind), colStatus)),
		pad(players, colPlayers),
		pad(ping, colPing),
		updated,
	}, " ")
	if st.Kind == models.StatusFailed && st.Reason != "" {
		line += "\n" + strings.Repeat(" ", colID+1) + failedStyle.Render(st.Reason)
	}
	return line
}

func statusStyle(kind models.StatusKind) lipgloss.Style {
	switch kind {
	case models.StatusLoaded:
		return loadedStyle
	case models.StatusLoading:
		return loadingStyle
	case models.StatusFailed:
		return failedStyle
	default:
		return mutedStyle
	}
}

func printHistory(w io.Writer, resp client.HistoryResponse) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Probe history for %s", resp.Address)))
	if len(resp.Records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No probes recorded."))
		return
	}

	for _, rec := range resp.Records {
		when := pad(humanize.Time(rec.RecordedAt), colAddress)
		kind := statusStyle(rec.Kind).Render(pad(string(rec.Kind), colStatus))
		detail := rec.Reason
		if rec.Kind == models.StatusLoaded {
			detail = fmt.Sprintf("%d/%d players, %dms", rec.Online, rec.Max, rec.PingMs)
		}
		fmt.Fprintln(w, when+" "+kind+" "+detail)
	}
}

func printResult(w io.Writer, addr string, result *probe.Result) {
	label := func(s string) string { return headerStyle.Render(pad(s, 10)) }

	fmt.Fprintln(w, label("Address")+addr)
	fmt.Fprintln(w, label("MOTD")+models.StripColorCodes(result.MOTD))
	fmt.Fprintln(w, label("Version")+fmt.Sprintf("%s (protocol %d)", result.Version, result.Protocol))
	fmt.Fprintln(w, label("Players")+humanize.Comma(int64(result.Online))+"/"+humanize.Comma(int64(result.Max)))
	fmt.Fprintln(w, label("Ping")+loadedStyle.Render(fmt.Sprintf("%dms", result.PingMs)))
	if len(result.Favicon) > 0 {
		fmt.Fprintln(w, label("Icon")+humanize.Bytes(uint64(len(result.Favicon))))
	}
	for _, p := range result.Players {
		fmt.Fprintln(w, strings.Repeat(" ", 10)+mutedStyle.Render(p.Name))
	}
}

// pad truncates or right-pads s to exactly width runes.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
