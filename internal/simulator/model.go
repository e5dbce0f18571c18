package simulator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shift-tracker/backend/internal/domain"
)

// Chat is satisfied by *bot.Bot.
type Chat interface {
	Handle(ctx context.Context, upd domain.Update) []domain.Outbound
}

var (
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	botStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	editStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyboardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

type repliesMsg struct {
	out []domain.Outbound
}

// Model is a terminal chat window. "#N" sends the Nth reply keyboard button and "!N" presses
// the Nth inline button of the last bot message.
type Model struct {
	chat   Chat
	user   domain.Update
	status func() string
	outDir string

	input    textinput.Model
	viewport viewport.Model
	lines    []string
	keyboard [][]string
	inline   [][]domain.InlineButton
	waiting  bool
}

// New creates a model for one chat user. status, if set, is shown above the input after
// every reply. Documents sent by the bot are written to outDir when it is not empty.
func New(chat Chat, user domain.Update, status func() string, outDir string) Model {
	input := textinput.New()
	input.Placeholder = "сообщение, #N для кнопки меню, !N для кнопки под сообщением"
	input.Focus()
	input.CharLimit = 500

	return Model{
		chat:     chat,
		user:     user,
		status:   status,
		outDir:   outDir,
		input:    input,
		viewport: viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func flatten[T any](grid [][]T) []T {
	var out []T
	for _, row := range grid {
		out = append(out, row...)
	}
	return out
}

// resolve turns what was typed into the update to send.
func (m Model) resolve(typed string) (domain.Update, string, error) {
	upd := m.user

	if n, ok := strings.CutPrefix(typed, "#"); ok {
		buttons := flatten(m.keyboard)
		i, err := strconv.Atoi(n)
		if err != nil || i < 1 || i > len(buttons) {
			return upd, "", fmt.Errorf("нет кнопки меню %s", typed)
		}
		upd.Text = buttons[i-1]
		return upd, upd.Text, nil
	}

	if n, ok := strings.CutPrefix(typed, "!"); ok {
		buttons := flatten(m.inline)
		i, err := strconv.Atoi(n)
		if err != nil || i < 1 || i > len(buttons) {
			return upd, "", fmt.Errorf("нет кнопки %s", typed)
		}
		upd.Callback = buttons[i-1].Data
		return upd, "[" + buttons[i-1].Text + "]", nil
	}

	upd.Text = typed
	return upd, typed, nil
}

func (m Model) send(upd domain.Update) tea.Cmd {
	return func() tea.Msg {
		return repliesMsg{out: m.chat.Handle(context.Background(), upd)}
	}
}

func (m *Model) appendLine(s string) {
	m.lines = append(m.lines, s)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) receive(out []domain.Outbound) {
	m.inline = nil
	for _, o := range out {
		style := botStyle
		if o.Edit {
			style = editStyle
		}
		m.appendLine(style.Render(o.Text))

		if o.Document != nil {
			m.appendLine(m.saveDocument(o.Document))
		}
		if o.Keyboard != nil {
			m.keyboard = o.Keyboard
		}
		if o.Inline != nil {
			m.inline = o.Inline
		}
	}
}

func (m *Model) saveDocument(doc *domain.Document) string {
	line := fmt.Sprintf("📎 %s (%d байт)", doc.Filename, len(doc.Content))
	if m.outDir == "" {
		return line
	}
	path := filepath.Join(m.outDir, filepath.Base(doc.Filename))
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return line + ": " + err.Error()
	}
	return line + " -> " + path
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-12, 3)
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case repliesMsg:
		m.waiting = false
		m.receive(msg.out)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			typed := strings.TrimSpace(m.input.Value())
			if typed == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()

			upd, echo, err := m.resolve(typed)
			if err != nil {
				m.appendLine(statusStyle.Render(err.Error()))
				return m, nil
			}
			m.appendLine(userStyle.Render("> " + echo))
			m.waiting = true
			return m, m.send(upd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func renderButtons(labels []string) string {
	cells := make([]string, len(labels))
	for i, l := range labels {
		cells[i] = fmt.Sprintf("%d %s", i+1, l)
	}
	return strings.Join(cells, "  |  ")
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if len(m.inline) > 0 {
		var labels []string
		for _, btn := range flatten(m.inline) {
			labels = append(labels, btn.Text)
		}
		b.WriteString(helpStyle.Render("! " + renderButtons(labels)))
		b.WriteString("\n")
	}
	if len(m.keyboard) > 0 {
		rows := make([]string, 0, len(m.keyboard))
		n := 0
		for _, row := range m.keyboard {
			cells := make([]string, len(row))
			for i, l := range row {
				n++
				cells[i] = fmt.Sprintf("#%d %s", n, l)
			}
			rows = append(rows, strings.Join(cells, "   "))
		}
		b.WriteString(keyboardStyle.Render(strings.Join(rows, "\n")))
		b.WriteString("\n")
	}
	if m.status != nil {
		if s := m.status(); s != "" {
			b.WriteString(statusStyle.Render(s))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: отправить, esc: выход"))
	return b.String()
}
