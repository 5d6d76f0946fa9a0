package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scenegen/internal/scene"
)

var (
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	panel := lipgloss.NewStyle().
		Width(width-2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)

	contentWidth := width - 6
	var content strings.Builder

	visible := m.messages
	if m.height > 4 && len(visible) > m.height-4 {
		visible = visible[len(visible)-(m.height-4):]
	}

	for _, message := range visible {
		wrapped := wrapAndIndent(message, contentWidth, " ")
		switch {
		case strings.HasPrefix(message, "> "):
			content.WriteString(labelStyle.Render(wrapped) + "\n")
		case strings.HasPrefix(message, "[WARN] "):
			content.WriteString(warnStyle.Render(wrapped) + "\n")
		case strings.HasPrefix(message, "[ERROR] "):
			content.WriteString(errorStyle.Render(wrapped) + "\n")
		default:
			content.WriteString(messageStyle.Render(wrapped) + "\n")
		}
	}

	if m.loading && m.current < len(m.steps) {
		line := fmt.Sprintf("%s %s (%d/%d)", getLoadingAnimation(m.animationFrame), m.steps[m.current].Label, m.current+1, len(m.steps))
		content.WriteString(loadingStyle.Render(wrapAndIndent(line, contentWidth, " ")))
	}

	return panel.Render(strings.TrimRight(content.String(), "\n")) + "\n"
}

// Summary renders a generated scene as display lines.
func Summary(res *scene.Result) []string {
	if res == nil || res.Record == nil {
		return nil
	}

	rec := res.Record
	lines := []string{
		fmt.Sprintf("Scene %02d: %s", res.SceneNum, strings.Join(rec.SceneName, " / ")),
		"Entities: " + strings.Join(rec.Entities, ", "),
		"Background: " + strings.Join(rec.Background, " "),
	}
	if res.Location != "" {
		lines = append(lines, "Saved to "+res.Location)
	}
	if res.PersistErr != nil {
		lines = append(lines, "[WARN] "+res.PersistErr.Error())
	}
	return lines
}

func wrapAndIndent(text string, width int, indent string) string {
	if width <= 0 || len(text) <= width {
		return indent + text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	var result strings.Builder
	currentLine := indent + words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}

	result.WriteString(currentLine)
	return result.String()
}

// arc spinner from cli-spinners
func getLoadingAnimation(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
