package provision

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Summary records what a run produced, for the end-of-run report.
type Summary struct {
	Root          string
	DestRoot      string
	ConfPath      string
	ConfWritten   bool
	Synced        []string
	VenvDir       string
	WheelhouseDir string
	Scripts       []string
}

var (
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("63"))

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// Render renders the summary as a bordered block for the terminal.
func (s *Summary) Render() string {
	var lines []string
	add := func(label, value string) {
		if value == "" {
			return
		}
		lines = append(lines, fmt.Sprintf("%s %s", summaryLabelStyle.Render(label+":"), value))
	}

	lines = append(lines, summaryTitleStyle.Render("workspace provisioned"))
	add("root", s.Root)
	if s.DestRoot != s.Root {
		add("deploy root", s.DestRoot)
	}
	if len(s.Synced) > 0 {
		add("synced", strings.Join(s.Synced, ", "))
	}
	add("venv", s.VenvDir)
	add("wheelhouse", s.WheelhouseDir)
	if s.ConfWritten {
		add("config", s.ConfPath)
	}
	if len(s.Scripts) > 0 {
		add("scripts", strings.Join(s.Scripts, ", "))
	}

	return summaryBoxStyle.Render(strings.Join(lines, "\n"))
}
