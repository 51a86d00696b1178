package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/llms"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const labelWidth = 6

type agentEventMsg struct {
	event events.Event
}

type transcriptLine struct {
	label string
	style lipgloss.Style
	text  string
}

type transcriptModel struct {
	viewport viewport.Model
	ready    bool
	feed     <-chan events.Event
	title    string

	lines    []transcriptLine
	status   string
	speaking bool
}

func newTranscriptModel(feed <-chan events.Event, title string) transcriptModel {
	return transcriptModel{
		feed:   feed,
		title:  title,
		status: "starting",
	}
}

func (m transcriptModel) Init() tea.Cmd {
	return waitForEvent(m.feed)
}

func waitForEvent(feed <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-feed
		if !ok {
			return nil
		}
		return agentEventMsg{event: event}
	}
}

func (m transcriptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		verticalMargin := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMargin
		}
		m.viewport.SetContent(m.contentView())

	case agentEventMsg:
		m.apply(msg.event)
		m.viewport.SetContent(m.contentView())
		m.viewport.GotoBottom()
		cmds = append(cmds, waitForEvent(m.feed))
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *transcriptModel) apply(event events.Event) {
	switch event := event.(type) {
	case events.Started:
		m.status = "listening"
	case events.Stopped:
		m.status = "stopped"
	case events.Failed:
		m.lines = append(m.lines, transcriptLine{label: "error", style: errorStyle, text: event.Err.Error()})
	case events.UserTranscript:
		m.lines = append(m.lines, transcriptLine{label: "you", style: userStyle, text: event.Text})
	case events.AssistantResponse:
		m.lines = append(m.lines, transcriptLine{label: "ema", style: assistantStyle, text: event.Text})
	case events.SpeakingChanged:
		m.speaking = event.Speaking
	}
}

func (m transcriptModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.headerView(), m.viewport.View(), m.footerView())
}

func (m transcriptModel) headerView() string {
	title := titleStyle.Render(m.title)
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line)
}

func (m transcriptModel) footerView() string {
	status := m.status
	if m.speaking {
		status = "speaking"
	}
	info := titleStyle.Render(status + " · q to quit")
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(info)))
	return lipgloss.JoinHorizontal(lipgloss.Center, line, info)
}

func (m transcriptModel) contentView() string {
	width := max(10, m.viewport.Width-labelWidth-1)
	indent := strings.Repeat(" ", labelWidth+1)

	var content strings.Builder
	for _, line := range m.lines {
		label := line.style.Width(labelWidth).Render(line.label)
		wrapped := strings.Split(wordwrap.String(line.text, width), "\n")
		for i, text := range wrapped {
			if i == 0 {
				content.WriteString(label + " " + text)
			} else {
				content.WriteString(indent + text)
			}
			content.WriteString("\n")
		}
	}
	return content.String()
}

func availabilityStyle(availability llms.Availability) lipgloss.Style {
	switch availability {
	case llms.AvailabilityAvailable:
		return assistantStyle
	case llms.AvailabilityUnavailable:
		return errorStyle
	default:
		return dimStyle
	}
}
