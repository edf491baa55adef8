// Package tui is a terminal front end for a single interaction machine. Typed
// text stands in for speech capture and the reply is revealed as it is spoken.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Controller is the part of the machine the model drives.
type Controller interface {
	Activate()
	Cancel()
	Snapshot() interaction.Snapshot
}

type toast struct {
	interaction.Notification
	at time.Time
}

// Model is the root bubbletea model.
type Model struct {
	ctl    Controller
	submit func(string) bool
	bridge *Bridge

	snap     interaction.Snapshot
	input    string
	heard    string
	spoken   string
	revealed int
	toasts   []toast

	spinning bool
	frame    int

	width  int
	height int
	now    func() time.Time
}

// New builds a model. submit delivers typed text to the capture adapter and
// reports whether a capture was listening.
func New(ctl Controller, submit func(string) bool, bridge *Bridge) Model {
	return Model{
		ctl:    ctl,
		submit: submit,
		bridge: bridge,
		snap:   ctl.Snapshot(),
		now:    time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForRefresh(m.bridge)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RefreshMsg:
		cmds := []tea.Cmd{waitForRefresh(m.bridge)}
		if cmd := m.refresh(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case SpinnerTickMsg:
		if !m.snap.ShowSpinner() {
			m.spinning = false
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, spinnerTickCmd()

	case ClearToastMsg:
		cutoff := m.now().Add(-toastLifetime)
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.at.After(cutoff) {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, nil
	}
	return m, nil
}

// refresh pulls the latest snapshot and bridge output into the model.
func (m *Model) refresh() tea.Cmd {
	prev := m.snap
	m.snap = m.ctl.Snapshot()

	notes, spoken, revealed := m.bridge.Drain()
	if m.snap.State == interaction.StateSpeaking {
		m.spoken, m.revealed = spoken, revealed
	} else if prev.State == interaction.StateSpeaking {
		m.spoken, m.revealed = "", 0
	}
	if m.snap.Transcript != "" {
		m.heard = m.snap.Transcript
	}
	if m.snap.State == interaction.StateListening && prev.State != interaction.StateListening {
		m.heard = ""
	}

	var cmds []tea.Cmd
	if len(notes) > 0 {
		at := m.now()
		for _, n := range notes {
			m.toasts = append(m.toasts, toast{Notification: n, at: at})
		}
		cmds = append(cmds, clearToastCmd())
	}
	if m.snap.ShowSpinner() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, spinnerTickCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	listening := m.snap.State == interaction.StateListening

	switch key := msg.String(); key {
	case KeyCtrlC:
		return m, tea.Quit

	case KeyQuit:
		if !listening {
			return m, tea.Quit
		}
		m.input += key
		return m, nil

	case KeyControl:
		if listening {
			m.input = ""
		}
		if m.snap.ControlEnabled() {
			m.ctl.Activate()
		}
		return m, nil

	case KeyCancel:
		m.input = ""
		m.ctl.Cancel()
		return m, nil

	case KeySubmit:
		if !listening {
			return m, nil
		}
		text := strings.TrimSpace(m.input)
		m.input = ""
		m.submit(text)
		return m, nil

	case KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	}

	if listening && msg.Type == tea.KeyRunes {
		m.input += string(msg.Runes)
	} else if listening && msg.Type == tea.KeySpace {
		m.input += " "
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voiceagent"))
	b.WriteString("\n\n")

	b.WriteString(m.renderOrb())
	if m.snap.ShowSpinner() {
		b.WriteString(" ")
		b.WriteString(spinnerStyle.Render(spinnerFrames[m.frame]))
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.snap.Status))
	b.WriteString("\n\n")

	if m.snap.State == interaction.StateListening {
		b.WriteString(inputStyle.Render("> " + m.input + "█"))
		b.WriteString("\n")
	}
	if m.heard != "" {
		b.WriteString(transcriptStyle.Render(fmt.Sprintf("you: %s", m.heard)))
		b.WriteString("\n")
	}
	if m.spoken != "" {
		r := []rune(m.spoken)
		n := min(max(m.revealed, 0), len(r))
		b.WriteString(spokenStyle.Render("agent: " + string(r[:n])))
		b.WriteString(dimStyle.Render(string(r[n:])))
		b.WriteString("\n")
	}

	for _, t := range m.toasts {
		b.WriteString("\n")
		b.WriteString(toastTitleStyle.Render(t.Title))
		b.WriteString(" ")
		b.WriteString(toastStyle.Render(t.Message))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())

	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
	}
	return b.String()
}

func (m Model) renderOrb() string {
	label := fmt.Sprintf("%s  %s", orbGlyph(m.snap), m.snap.AltText())
	switch {
	case m.snap.State == interaction.StateListening:
		return orbListeningStyle.Render(label)
	case m.snap.ProcessingVisuals():
		return orbBusyStyle.Render(label)
	default:
		return orbIdleStyle.Render(label)
	}
}

func orbGlyph(s interaction.Snapshot) string {
	switch s.Icon() {
	case "utility:close":
		return "■"
	case "utility:settings_analog":
		return "⚙"
	default:
		return "●"
	}
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{KeyControl, "orb"},
		{KeyCancel, "cancel"},
	}
	if m.snap.State == interaction.StateListening {
		keys = append(keys, struct{ key, desc string }{KeySubmit, "send"})
	} else {
		keys = append(keys, struct{ key, desc string }{KeyQuit, "quit"})
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k.key)+" "+dimStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
