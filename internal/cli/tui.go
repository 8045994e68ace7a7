package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/session"
)

// Theme holds the color scheme for the chat display.
type Theme struct {
	You       lipgloss.Color
	Assistant lipgloss.Color
	Summary   lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	You:       lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#00D787"), // green
	Summary:   lipgloss.Color("#D7AF5F"), // amber
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) youStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.You).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant)
}

func (t Theme) summaryStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Summary).Italic(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// replyMsg carries the session's response to one user turn.
type replyMsg struct {
	events []session.Event
	err    error
}

// chatModel is the bubbletea model for the conversation.
type chatModel struct {
	sess     *session.Session
	input    textinput.Model
	theme    Theme
	lines    []string
	waiting  bool
	quitting bool
}

// newChatModel creates a new chat model.
func newChatModel(sess *session.Session) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Describe the music you are after..."
	ti.CharLimit = 500
	ti.Focus()

	return chatModel{
		sess:  sess,
		input: ti,
		theme: defaultTheme,
		lines: []string{
			defaultTheme.hintStyle().Render("Tell me about the music you are looking for. Esc or Ctrl+C quits."),
		},
	}
}

// Init returns the initial command.
func (m chatModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			// One in-flight turn at a time; the session is not reentrant.
			if m.waiting {
				return m, nil
			}
			content := strings.TrimSpace(m.input.Value())
			if content == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.lines = append(m.lines, m.theme.youStyle().Render("you: ")+content)
			m.waiting = true
			return m, m.send(content)
		}

	case replyMsg:
		m.waiting = false
		for _, ev := range msg.events {
			m.lines = append(m.lines, m.renderEvent(ev))
		}
		if msg.err != nil {
			m.lines = append(m.lines, m.theme.errorStyle().Render("Something went wrong, please try again."))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript and input line.
func (m chatModel) View() tea.View {
	var sb strings.Builder
	for _, line := range m.lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if m.quitting {
		sb.WriteString(m.theme.hintStyle().Render("Bye."))
		sb.WriteString("\n")
	} else if m.waiting {
		sb.WriteString(m.theme.hintStyle().Render("thinking..."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
	}

	return tea.NewView(sb.String())
}

func (m chatModel) renderEvent(ev session.Event) string {
	switch ev.Role {
	case session.EventSummary:
		return m.theme.summaryStyle().Render("searching for: " + ev.Content)
	case session.EventAssistant:
		return m.theme.assistantStyle().Render(ev.Content)
	default:
		return ev.Content
	}
}

// send drives one turn through the session.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m chatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		events, err := m.sess.HandleMessage(context.Background(), content)
		return replyMsg{events: events, err: err}
	}
}

// runChatUI runs the interactive conversation UI.
func runChatUI(sess *session.Session) error {
	p := tea.NewProgram(newChatModel(sess))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
