package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/osmia/marginalia/internal/engine"
	"github.com/osmia/marginalia/internal/mutation"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("marginalia — AI margin notes"))
	b.WriteString("\n\n")
	b.WriteString(m.renderEntityList())
	b.WriteString("\n")
	b.WriteString(m.renderAnnotationPane())
	b.WriteString("\n")

	if msg, ok := m.eng.LastError(); ok {
		b.WriteString(errorStyle.Render("✗ " + msg + "  (x to dismiss)"))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(subtleStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.toast != nil {
		b.WriteString(m.renderToast())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) renderEntityList() string {
	lines := make([]string, 0, len(m.entities))
	for i, ent := range m.entities {
		cursor := "  "
		label := ent.Label
		if i == m.cursor {
			cursor = "> "
			label = selectedStyle.Render(label)
		}
		lines = append(lines, cursor+label+m.renderEntityState(ent))
	}
	return strings.Join(lines, "\n")
}

// renderEntityState summarizes an entity's annotation lifecycle in one
// trailing tag.
func (m Model) renderEntityState(ent Entity) string {
	if ann, ok := m.eng.Get(ent.ID); ok {
		switch {
		case ann.IsStreaming:
			return "  " + streamingStyle.Render(m.spinner.View()+" streaming")
		case ann.IsDeleting:
			return "  " + heldStyle.Render("● removing?")
		default:
			return "  " + m.renderSyncState(ent.ID)
		}
	}
	if deadline, ok := m.eng.UndoDeadline(ent.ID); ok {
		remaining := time.Until(deadline).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		return "  " + heldStyle.Render(fmt.Sprintf("↩ undo %s", remaining))
	}
	return ""
}

// renderSyncState reflects the optimistic mutation recorder, when present.
func (m Model) renderSyncState(entityID string) string {
	if m.recorder == nil {
		return ""
	}
	rec, ok := m.recorder.Get(engine.MutationKey(entityID))
	if !ok {
		return ""
	}
	switch rec.State {
	case mutation.StateCompleted:
		return suggestionStyle.Render("✓ synced")
	case mutation.StateFailed:
		return subtleStyle.Render("○ not synced")
	case mutation.StatePending:
		return subtleStyle.Render("… syncing")
	default:
		return ""
	}
}

func (m Model) renderAnnotationPane() string {
	cur := m.entities[m.cursor]
	ann, ok := m.eng.Get(cur.ID)
	if !ok {
		return annotationStyle.Render(subtleStyle.Render("No annotation. Press g to generate one."))
	}

	text := ann.Text
	if ann.IsStreaming && text == "" {
		text = subtleStyle.Render("waiting for first chunk…")
	}
	if ann.IsStreaming {
		text += streamingStyle.Render(" ▍")
	}

	content := text
	if ann.Suggestion != nil {
		content = lipgloss.JoinVertical(lipgloss.Left,
			text,
			"",
			suggestionStyle.Render("suggested: "+ann.Suggestion.SuggestedText),
			subtleStyle.Render("replaces:  "+ann.Suggestion.OriginalText),
		)
	}

	width := m.width - 4
	if width < 20 {
		width = 76
	}
	return annotationStyle.Width(width).Render(content)
}

func (m Model) renderToast() string {
	n := m.toast.notification
	remaining := time.Until(m.toast.deadline).Round(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	line := n.Message
	if n.ActionLabel != "" {
		line += fmt.Sprintf("  [%s: u]", n.ActionLabel)
	}
	return toastStyle.Render(fmt.Sprintf("%s  (%s)", line, remaining))
}
