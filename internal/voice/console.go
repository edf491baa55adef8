package voice

import (
	"context"
	"strings"
	"sync"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

// ConsolePlatform backs a terminal front end: typed text stands in for the
// recogniser and replies are revealed on a timer.
type ConsolePlatform struct {
	speechRate int
	onProgress func(text string, revealed int)

	mu      sync.Mutex
	capture *ManualCapture
}

func NewConsolePlatform(speechRate int, onProgress func(text string, revealed int)) *ConsolePlatform {
	return &ConsolePlatform{speechRate: speechRate, onProgress: onProgress}
}

func (p *ConsolePlatform) NewCapture() (interaction.Capture, error) {
	c := &ManualCapture{}
	p.mu.Lock()
	p.capture = c
	p.mu.Unlock()
	return c, nil
}

func (p *ConsolePlatform) NewSynth() (interaction.Synth, error) {
	return NewTimedSynth(p.speechRate, p.onProgress), nil
}

// Submit hands typed text to the current capture. It reports false when no
// capture is listening.
func (p *ConsolePlatform) Submit(text string) bool {
	p.mu.Lock()
	c := p.capture
	p.mu.Unlock()
	if c == nil {
		return false
	}
	return c.Submit(text)
}

// ManualCapture listens until Submit is called.
type ManualCapture struct {
	mu      sync.Mutex
	handler interaction.CaptureHandler
}

func (c *ManualCapture) Start(_ context.Context, h interaction.CaptureHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		return interaction.ErrCaptureBusy
	}
	c.handler = h
	return nil
}

// Stop ends listening. Without a submission this reports a plain end.
func (c *ManualCapture) Stop() error {
	h := c.take()
	if h != nil {
		h(interaction.CaptureSignal{Kind: interaction.CaptureSignalEnd})
	}
	return nil
}

func (c *ManualCapture) Abort() error {
	c.take()
	return nil
}

func (c *ManualCapture) Submit(text string) bool {
	h := c.take()
	if h == nil {
		return false
	}
	if text = strings.TrimSpace(text); text == "" {
		h(interaction.CaptureSignal{Kind: interaction.CaptureSignalError, Error: interaction.CaptureNoSpeech})
	} else {
		h(interaction.CaptureSignal{Kind: interaction.CaptureSignalResult, Text: text})
	}
	h(interaction.CaptureSignal{Kind: interaction.CaptureSignalEnd})
	return true
}

func (c *ManualCapture) take() interaction.CaptureHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.handler
	c.handler = nil
	return h
}
