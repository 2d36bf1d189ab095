package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/voco-dev/voco/core"
	"github.com/voco-dev/voco/core/events"
	"github.com/voco-dev/voco/core/speech"
)

const (
	colorGreen  = "42"
	colorYellow = "220"
	colorRed    = "196"
	colorBlue   = "39"
	colorGray   = "243"
	colorPurple = "99"

	chromeHeight = 6
	minLogHeight = 3
)

var (
	statusStyles = map[speech.Status]lipgloss.Style{
		speech.StatusIdle:        lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		speech.StatusListening:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).Bold(true),
		speech.StatusProcessing:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		speech.StatusSpeaking:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue)).Bold(true),
		speech.StatusError:       lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		speech.StatusUnsupported: lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
	}

	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue)).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPurple)).Bold(true)
	interimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))
)

// logEntry is a rendered conversation line. Events carry plain strings, so
// the UI keeps its own copy instead of reaching back into the core log.
type logEntry struct {
	role    string
	content string
}

type model struct {
	orchestrator *orchestration.Orchestrator

	log     viewport.Model
	input   textinput.Model
	spinner spinner.Model

	messages []logEntry
	status   speech.Status
	interim  string
	thinking bool
	lastErr  string

	width  int
	height int
	ready  bool
}

func newModel(o *orchestration.Orchestrator) model {
	input := textinput.New()
	input.Placeholder = "Type a message and press enter..."
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow))

	var entries []logEntry
	for _, msg := range o.Messages() {
		entries = append(entries, logEntry{role: string(msg.Role), content: msg.Content})
	}

	return model{
		orchestrator: o,
		input:        input,
		spinner:      s,
		messages:     entries,
		status:       o.Status(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := m.height - chromeHeight
		if logHeight < minLogHeight {
			logHeight = minLogHeight
		}
		if !m.ready {
			m.log = viewport.New(m.width, logHeight)
			m.ready = true
		} else {
			m.log.Width = m.width
			m.log.Height = logHeight
		}
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.orchestrator.ToggleListening()
			return m, nil
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			m.orchestrator.SubmitText(text)
			return m, nil
		}

	case orchestratorEvent:
		return m.applyEvent(msg.event)

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.log, cmd = m.log.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) applyEvent(event events.Event) (tea.Model, tea.Cmd) {
	switch event := event.(type) {
	case events.StatusChanged:
		m.status = speech.Status(event.Status)
		if m.status != speech.StatusError {
			m.lastErr = ""
		}
	case events.InterimUpdated:
		m.interim = event.Transcript
		m.refreshLog()
	case events.MessageAppended:
		m.messages = append(m.messages, logEntry{role: event.Role, content: event.Content})
		m.refreshLog()
		m.log.GotoBottom()
	case events.ThinkingChanged:
		m.thinking = event.Thinking
		if m.thinking {
			return m, m.spinner.Tick
		}
	case events.EngineError:
		m.lastErr = event.Message
	}
	return m, nil
}

func (m *model) refreshLog() {
	if !m.ready {
		return
	}

	var b strings.Builder
	for _, entry := range m.messages {
		label := assistantStyle.Render("assistant")
		if entry.role == string(orchestration.RoleUser) {
			label = userStyle.Render("you")
		}
		b.WriteString(label)
		b.WriteString("  ")
		b.WriteString(wordwrap.String(entry.content, m.log.Width-2))
		b.WriteString("\n\n")
	}
	if m.interim != "" {
		b.WriteString(interimStyle.Render(wordwrap.String(m.interim+" ...", m.log.Width-2)))
		b.WriteString("\n")
	}
	m.log.SetContent(b.String())
}

func (m model) View() string {
	if !m.ready {
		return "Starting..."
	}

	header := m.statusLine()
	footer := helpStyle.Render("ctrl+l: toggle listening  •  enter: send  •  esc: quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.log.View(),
		m.input.View(),
		footer,
	)
}

func (m model) statusLine() string {
	style, ok := statusStyles[m.status]
	if !ok {
		style = statusStyles[speech.StatusIdle]
	}

	line := style.Render(fmt.Sprintf("● %s", m.status))
	if m.thinking {
		line += "  " + m.spinner.View() + interimStyle.Render("thinking")
	}
	if m.lastErr != "" && m.status == speech.StatusError {
		line += "  " + errorStyle.Render(m.lastErr)
	}
	return line
}
