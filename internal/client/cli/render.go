package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/civic"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusColor(s string) lipgloss.Color {
	switch civic.Status(s) {
	case civic.StatusPending:
		return lipgloss.Color("214")
	case civic.StatusAcknowledged, civic.StatusAssigned:
		return lipgloss.Color("12")
	case civic.StatusInProgress:
		return lipgloss.Color("141")
	case civic.StatusResolved:
		return lipgloss.Color("2")
	default:
		return lipgloss.Color("8")
	}
}

func severityColor(s string) lipgloss.Color {
	switch civic.Severity(s) {
	case civic.SeverityHigh:
		return lipgloss.Color("196")
	case civic.SeverityMedium:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("2")
	}
}

func renderTitle(title string) string {
	return titleStyle.Render(title)
}

func renderField(label, value string) string {
	return labelStyle.Render(label+": ") + value
}

func renderIssueTable(issues []api.Issue) string {
	if len(issues) == 0 {
		return mutedStyle.Render("No issues.")
	}

	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{
			is.ID,
			truncate(is.Title, 32),
			is.Category,
			lipgloss.NewStyle().Foreground(statusColor(is.Status)).Render(is.Status),
			lipgloss.NewStyle().Foreground(severityColor(is.Severity)).Render(is.Severity),
			fmt.Sprintf("%d", is.Upvotes),
			is.CreatedAt.Format("2006-01-02"),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TICKET", "TITLE", "CATEGORY", "STATUS", "SEVERITY", "VOTES", "REPORTED").
		Rows(rows...).
		String()
}

func renderIssue(is *api.Issue) string {
	lines := []string{
		renderTitle(is.Title) + "  " + mutedStyle.Render(is.ID),
		renderField("Status", lipgloss.NewStyle().Foreground(statusColor(is.Status)).Render(is.Status)),
		renderField("Severity", lipgloss.NewStyle().Foreground(severityColor(is.Severity)).Render(is.Severity)),
		renderField("Category", is.Category+" ("+is.Department+")"),
		renderField("Location", fmt.Sprintf("%.5f, %.5f  %s", is.Lat, is.Lng, is.Digipin)),
		renderField("Reported by", is.ReporterName),
		renderField("Reported", is.CreatedAt.Format("2006-01-02 15:04")),
		renderField("Upvotes", fmt.Sprintf("%d", is.Upvotes)),
	}
	if is.AssigneeName != "" {
		lines = append(lines, renderField("Assigned to", is.AssigneeName))
	}
	if is.HasPhoto {
		lines = append(lines, mutedStyle.Render("Photo attached (type 'photo' for a link)"))
	}
	lines = append(lines, "", is.Description)
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// renderCounts prints a map as "key: n" lines in the order given, followed
// by any remaining keys sorted.
func renderCounts(title string, counts map[string]int, order []string) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(title))
	b.WriteString("\n")

	seen := make(map[string]bool, len(order))
	for _, k := range order {
		seen[k] = true
		fmt.Fprintf(&b, "  %-24s %d\n", k, counts[k])
	}

	var rest []string
	for k := range counts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(&b, "  %-24s %d\n", k, counts[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStaffTable(staff []api.StaffMember) string {
	if len(staff) == 0 {
		return mutedStyle.Render("No staff members.")
	}
	rows := make([][]string, 0, len(staff))
	for _, m := range staff {
		rows = append(rows, []string{m.ID, m.Name, m.Username, m.Department, fmt.Sprintf("%d", m.OpenTickets)})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "USERNAME", "DEPARTMENT", "OPEN").
		Rows(rows...).
		String()
}

func statusNames() []string {
	out := make([]string, len(civic.Statuses))
	for i, s := range civic.Statuses {
		out[i] = string(s)
	}
	return out
}

func severityNames() []string {
	out := make([]string, len(civic.Severities))
	for i, s := range civic.Severities {
		out[i] = string(s)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
