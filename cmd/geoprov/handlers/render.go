package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/geoprov/internal/provisioning"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	greenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	yellowStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	redStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// renderRunSummary produces a lipgloss-styled summary of a provisioning run.
func renderRunSummary(s *provisioning.Summary) string {
	var b strings.Builder

	b.WriteString("\n")
	title := fmt.Sprintf("  geoprov provision: %s", s.RegionKey)
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 40)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  run %s", s.RunID)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("  Candidates"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 60)))
	b.WriteString("\n")
	for _, o := range s.Outcomes {
		fmt.Fprintf(&b, "  %-36s %s\n", truncate(o.Candidate.String(), 36), renderOutcome(o))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Summary"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 35)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    Created:   %d\n", s.Created())
	fmt.Fprintf(&b, "    Skipped:   %d\n", s.Count(provisioning.StateSkipped))
	failed := fmt.Sprintf("%d", s.Count(provisioning.StateFailed))
	if s.Count(provisioning.StateFailed) > 0 {
		failed = redStyle.Render(failed)
	}
	fmt.Fprintf(&b, "    Failed:    %s\n", failed)
	fmt.Fprintf(&b, "    Elapsed:   %s\n", s.Elapsed.Round(time.Millisecond))

	if s.Interrupted {
		b.WriteString("\n")
		b.WriteString(yellowStyle.Render(fmt.Sprintf("  Interrupted after %d of the candidates.", len(s.Outcomes))))
		b.WriteString("\n")
	}

	return b.String()
}

// renderOutcome renders the final state of one candidate.
func renderOutcome(o provisioning.Outcome) string {
	switch o.State {
	case provisioning.StateFailed:
		return redStyle.Render(fmt.Sprintf("failed at %s: %v", o.Stage, o.Err))
	case provisioning.StateSkipped:
		return dimStyle.Render(fmt.Sprintf("skipped (%s)", o.SkipReason))
	}

	line := greenStyle.Render(fmt.Sprintf("%s %s", o.State, o.LocationID))
	if o.TelephonyMissing {
		line += dimStyle.Render(" no telephony account")
	}
	if n := len(o.Warnings); n > 0 {
		line += yellowStyle.Render(fmt.Sprintf(" %d warning(s)", n))
	}
	return line
}

// renderStatusReport produces a lipgloss-styled status table.
func renderStatusReport(r *statusReport) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  geoprov status: %s", r.RegionKey)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 40)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  checkpoint %s", r.Checkpoint)))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-32s %-16s %-20s %-20s %5s", "Candidate", "Status", "Ledger", "Checkpoint", "Token")))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 97)))
	b.WriteString("\n")

	counts := make(map[string]int)
	for _, c := range r.Candidates {
		counts[c.Status]++
		token := "no"
		if c.Token {
			token = "yes"
		}
		fmt.Fprintf(&b, "  %-32s %s %-20s %-20s %5s\n",
			truncate(c.Candidate, 32),
			statusStyle(c.Status).Render(fmt.Sprintf("%-16s", c.Status)),
			orDash(c.LedgerLocationID),
			orDash(c.CheckpointLocationID),
			token,
		)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %d provisioned, %d token-missing, %d created-unsynced, %d pending\n",
		counts[StatusProvisioned], counts[StatusTokenMissing], counts[StatusCreatedUnsynced], counts[StatusPending])

	return b.String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusProvisioned:
		return greenStyle
	case StatusTokenMissing:
		return yellowStyle
	case StatusCreatedUnsynced:
		return redStyle
	default:
		return dimStyle
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
