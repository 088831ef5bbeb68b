package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gigdesk/internal/domain"
	"gigdesk/internal/engine"
)

var (
	accent  = lipgloss.Color("#0EA5E9") // sky
	fg      = lipgloss.Color("#E5E7EB")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle   = lipgloss.NewStyle().Foreground(dim)
	passStyle  = lipgloss.NewStyle().Foreground(success)
	failStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(warning)
	separator  = lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("─", 56))

	domainColors = map[string]lipgloss.Color{
		domain.DomainHunter:       lipgloss.Color("#A78BFA"),
		domain.DomainCollections:  lipgloss.Color("#F472B6"),
		domain.DomainCFO:          lipgloss.Color("#34D399"),
		domain.DomainProductivity: lipgloss.Color("#60A5FA"),
		domain.DomainTax:          lipgloss.Color("#FBBF24"),
	}
)

func domainTag(d string) string {
	c, ok := domainColors[d]
	if !ok {
		c = dim
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(d)
}

// RunLog renders a run's log lines with the domain prefix highlighted and
// errors called out.
func RunLog(res engine.RunResult) string {
	var b strings.Builder
	header := titleStyle.Render("Agent run") + "  " + dimStyle.Render(fmt.Sprintf("%d new actions", res.ActionCount))
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n")
	for _, line := range res.Logs {
		b.WriteString("  ")
		b.WriteString(logLine(line))
		b.WriteString("\n")
	}
	if failed := res.FailedDomains(); len(failed) > 0 {
		b.WriteString("  " + separator + "\n")
		b.WriteString("  " + failStyle.Render("failed: "+strings.Join(failed, ", ")) + "\n")
	}
	return b.String()
}

func logLine(line string) string {
	prefix, rest, ok := strings.Cut(line, ":")
	if !ok {
		return line
	}
	// "Tax Error: ..." keeps the domain before the space.
	name := strings.TrimSuffix(prefix, " Error")
	tag := domainTag(name)
	switch {
	case strings.HasSuffix(prefix, " Error"):
		return tag + " " + failStyle.Render("Error:"+rest)
	case strings.Contains(rest, "already pending"):
		return tag + ":" + dimStyle.Render(rest)
	case strings.HasSuffix(rest, "..."):
		return tag + ":" + dimStyle.Render(rest)
	default:
		return tag + ":" + passStyle.Render(rest)
	}
}

// Pending renders the dashboard list of unread actions.
func Pending(items []engine.PendingAction) string {
	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("Pending actions") + "  " + dimStyle.Render(fmt.Sprintf("%d", len(items))) + "\n")
	b.WriteString("  " + separator + "\n")
	if len(items) == 0 {
		b.WriteString("  " + passStyle.Render("Nothing pending.") + "\n")
		return b.String()
	}
	for _, it := range items {
		marker := passStyle.Render("●")
		if it.Status == "warning" {
			marker = warnStyle.Render("▲")
		}
		fmt.Fprintf(&b, "  %s %s %s\n", marker, domainTag(it.Domain), it.Message)
		fmt.Fprintf(&b, "    %s\n", dimStyle.Render(it.EventKind+"  "+it.ID+"  "+it.Timestamp))
	}
	return b.String()
}
