// Package output provides terminal output utilities for flatshelf.
//
// This package includes:
//   - Table rendering for applications and the operation journal
//   - A spinner for catalog fetches and other indeterminate waits
//
// Tables use ANSI colour codes only when stdout is a terminal and NO_COLOR is
// unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/flatshelf/internal/apps"
	"github.com/blackwell-systems/flatshelf/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderApplicationTable renders applications in the order given.
func RenderApplicationTable(list []apps.Application) string {
	if len(list) == 0 {
		return "No applications found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-36s %-24s %-14s %-14s %s\n",
		"Application ID", "Name", "Installed", "Available", "Status"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, app := range list {
		installed := app.InstalledVersion
		if !app.Installed {
			installed = "-"
		} else if installed == "" {
			installed = "unknown"
		}
		available := app.AvailableVersion
		if available == "" {
			available = "-"
		}

		sb.WriteString(fmt.Sprintf("%-36s %-24s %-14s %-14s %s\n",
			truncate(app.ID, 36),
			truncate(app.Name, 24),
			truncate(installed, 14),
			truncate(available, 14),
			formatAppStatus(app)))
	}

	return sb.String()
}

// RenderApplicationDetail renders every field of one application.
func RenderApplicationDetail(app apps.Application) string {
	var sb strings.Builder

	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		sb.WriteString(fmt.Sprintf("%-18s %s\n", label+":", value))
	}

	row("ID", app.ID)
	row("Name", app.Name)
	row("Summary", app.Description)
	row("Icon", app.IconURL)
	row("Available version", app.AvailableVersion)
	if app.Installed {
		version := app.InstalledVersion
		if version == "" {
			version = "unknown"
		}
		row("Installed version", version)
	} else {
		row("Installed version", "not installed")
	}
	row("Status", formatAppStatus(app))

	return sb.String()
}

// RenderOperationTable renders journal entries, newest first as given.
func RenderOperationTable(ops []*store.Operation) string {
	if len(ops) == 0 {
		return "No operations recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-10s %-36s %-7s %-10s %s\n",
		"Started", "Operation", "Application ID", "Scope", "Duration", "Status"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, op := range ops {
		sb.WriteString(fmt.Sprintf("%-16s %-10s %-36s %-7s %-10s %s\n",
			formatRelativeTime(op.StartedAt),
			op.Kind,
			truncate(op.AppID, 36),
			op.Scope,
			formatDuration(op),
			formatOperationStatus(op.Status)))
	}

	return sb.String()
}

func formatAppStatus(app apps.Application) string {
	switch {
	case app.Busy:
		return colorize(colorYellow, "busy")
	case app.HasUpdate():
		return colorize(colorYellow, "update available")
	case app.Installed:
		return colorize(colorGreen, "installed")
	default:
		return colorize(colorGray, "available")
	}
}

func formatOperationStatus(status string) string {
	switch status {
	case store.StatusSucceeded:
		return colorize(colorGreen, "✓ "+status)
	case store.StatusFailed:
		return colorize(colorRed, "✗ "+status)
	default:
		return colorize(colorYellow, status)
	}
}

func formatDuration(op *store.Operation) string {
	if op.FinishedAt.IsZero() {
		return "-"
	}
	return op.Duration().Round(time.Second).String()
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
