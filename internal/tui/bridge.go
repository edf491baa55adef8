package tui

import (
	"sync"
	"time"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

// Bridge collects machine activity from adapter goroutines for the bubbletea
// loop. Wake-ups are coalesced: the model re-reads everything on each one, so
// callers never block on the UI.
type Bridge struct {
	wake chan struct{}

	mu            sync.Mutex
	notifications []interaction.Notification
	spoken        string
	revealed      int
}

func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

func (b *Bridge) StateChanged(_, _ interaction.Snapshot) { b.poke() }

func (b *Bridge) AgentCallFinished(time.Duration, error) {}

func (b *Bridge) Notify(n interaction.Notification) {
	b.mu.Lock()
	b.notifications = append(b.notifications, n)
	b.mu.Unlock()
	b.poke()
}

// Progress records how much of the current reply has been spoken.
func (b *Bridge) Progress(text string, revealed int) {
	b.mu.Lock()
	b.spoken, b.revealed = text, revealed
	b.mu.Unlock()
	b.poke()
}

// Drain returns pending notifications and the latest speech progress.
func (b *Bridge) Drain() ([]interaction.Notification, string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notifications
	b.notifications = nil
	return out, b.spoken, b.revealed
}

func (b *Bridge) poke() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}
