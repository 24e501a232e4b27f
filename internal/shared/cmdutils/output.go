package cmdutils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/crystaldolphin/friday/internal/schema"
)

const logo = "✦"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	userRoleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)

	assistantRoleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("208")).
				Padding(0, 1)

	systemRoleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("61")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// PrintResponse prints an assistant reply under the friday banner.
func PrintResponse(text string) {
	if text == "" {
		return
	}
	fmt.Printf("\n%s\n%s\n\n", titleStyle.Render(logo+" friday"), text)
}

// PrintError prints err to stderr.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
}

// Panel renders lines inside a bordered box with a header.
func Panel(title string, lines []string) string {
	body := headerStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return panelStyle.Render(body)
}

// Header styles a section header.
func Header(s string) string { return headerStyle.Render(s) }

// Dim renders secondary text.
func Dim(s string) string { return dimStyle.Render(s) }

// Check renders ✓ or ✗.
func Check(ok bool) string {
	if ok {
		return okStyle.Render("✓")
	}
	return errorStyle.Render("✗")
}

// RoleTag renders a coloured role label.
func RoleTag(role schema.Role) string {
	switch role {
	case schema.RoleUser:
		return userRoleStyle.Render("user")
	case schema.RoleAssistant:
		return assistantRoleStyle.Render("assistant")
	case schema.RoleSystem:
		return systemRoleStyle.Render("system")
	default:
		return headerStyle.Render(string(role))
	}
}

// PrintMessages writes a transcript, one block per message.
func PrintMessages(w io.Writer, msgs []schema.Message) {
	for _, m := range msgs {
		line := RoleTag(m.Role) + " " + Dim(m.Timestamp.Format("2006-01-02 15:04:05"))
		if !m.Metadata.IsZero() {
			line += " " + Dim("["+describeMeta(m.Metadata)+"]")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, m.Content)
		fmt.Fprintln(w)
	}
}

func describeMeta(m *schema.Metadata) string {
	var parts []string
	if m.Action != "" {
		parts = append(parts, m.Action)
	}
	if m.File != "" {
		parts = append(parts, m.File)
	}
	if m.Found != nil && !*m.Found {
		parts = append(parts, "not found")
	}
	if m.Error != "" {
		parts = append(parts, m.Error)
	}
	return strings.Join(parts, " ")
}
