package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RefreshMsg means the machine or the speech adapter changed.
type RefreshMsg struct{}

// ClearToastMsg drops notifications older than the toast lifetime.
type ClearToastMsg struct{}

const toastLifetime = 6 * time.Second

// waitForRefresh blocks until the bridge is poked.
func waitForRefresh(b *Bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.wake
		return RefreshMsg{}
	}
}

func clearToastCmd() tea.Cmd {
	return tea.Tick(toastLifetime, func(time.Time) tea.Msg {
		return ClearToastMsg{}
	})
}

// SpinnerTickMsg advances the processing spinner.
type SpinnerTickMsg struct{}

const spinnerInterval = 120 * time.Millisecond

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}
