package voice

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

const (
	defaultCaptureDelay = 1500 * time.Millisecond
	defaultSpeechRate   = 15
	minSpeechDuration   = 150 * time.Millisecond
)

// MockPlatform simulates a device with a scripted recogniser and a timed
// synthesiser. It is used when no browser speech APIs are in play.
type MockPlatform struct {
	Utterance    string
	CaptureDelay time.Duration
	// SpeechRate is in characters per second.
	SpeechRate int
	// NoCapture and NoSynthesis simulate a platform missing a capability.
	NoCapture   bool
	NoSynthesis bool
	OnProgress  func(text string, revealed int)
}

func (p *MockPlatform) NewCapture() (interaction.Capture, error) {
	if p.NoCapture {
		return nil, interaction.ErrUnsupported
	}
	delay := p.CaptureDelay
	if delay <= 0 {
		delay = defaultCaptureDelay
	}
	return &ScriptedCapture{utterance: p.Utterance, delay: delay}, nil
}

func (p *MockPlatform) NewSynth() (interaction.Synth, error) {
	if p.NoSynthesis {
		return nil, interaction.ErrUnsupported
	}
	return NewTimedSynth(p.SpeechRate, p.OnProgress), nil
}

// ScriptedCapture "hears" a fixed utterance after a delay. Stop delivers it
// early; Abort discards it. A second Start while running fails with
// interaction.ErrCaptureBusy.
type ScriptedCapture struct {
	utterance string
	delay     time.Duration

	mu      sync.Mutex
	gen     uint64
	running bool
	handler interaction.CaptureHandler
	timer   *time.Timer
}

func (c *ScriptedCapture) Start(_ context.Context, h interaction.CaptureHandler) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return interaction.ErrCaptureBusy
	}
	c.gen++
	gen := c.gen
	c.running = true
	c.handler = h
	c.timer = time.AfterFunc(c.delay, func() { c.finish(gen) })
	c.mu.Unlock()
	return nil
}

func (c *ScriptedCapture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	c.timer.Stop()
	c.mu.Unlock()
	c.finish(gen)
	return nil
}

func (c *ScriptedCapture) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	c.running = false
	c.handler = nil
	return nil
}

func (c *ScriptedCapture) finish(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	h := c.handler
	c.handler = nil
	c.mu.Unlock()

	if h == nil {
		return
	}
	if text := strings.TrimSpace(c.utterance); text != "" {
		h(interaction.CaptureSignal{Kind: interaction.CaptureSignalResult, Text: text})
	} else {
		h(interaction.CaptureSignal{Kind: interaction.CaptureSignalError, Error: interaction.CaptureNoSpeech})
	}
	h(interaction.CaptureSignal{Kind: interaction.CaptureSignalEnd})
}

// TimedSynth "speaks" by waiting a duration proportional to the text length.
// OnProgress, when set, is called as characters are revealed.
type TimedSynth struct {
	rate       int
	onProgress func(text string, revealed int)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewTimedSynth(charsPerSecond int, onProgress func(text string, revealed int)) *TimedSynth {
	if charsPerSecond <= 0 {
		charsPerSecond = defaultSpeechRate
	}
	return &TimedSynth{rate: charsPerSecond, onProgress: onProgress}
}

func (s *TimedSynth) Speak(ctx context.Context, text string, h interaction.SpeechHandler) error {
	text = speakableText(text)
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	total := utf8.RuneCountInString(text)
	duration := time.Duration(total) * time.Second / time.Duration(s.rate)
	if duration < minSpeechDuration {
		duration = minSpeechDuration
	}

	go func() {
		defer cancel()
		step := time.Second / time.Duration(s.rate)
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		deadline := time.NewTimer(duration)
		defer deadline.Stop()

		revealed := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if revealed < total {
					revealed++
					s.progress(gen, text, revealed)
				}
			case <-deadline.C:
				if !s.current(gen) {
					return
				}
				s.progress(gen, text, total)
				h(interaction.SpeechSignal{Kind: interaction.SpeechSignalEnd})
				return
			}
		}
	}()
	return nil
}

func (s *TimedSynth) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	return nil
}

func (s *TimedSynth) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *TimedSynth) progress(gen uint64, text string, revealed int) {
	if s.onProgress != nil && s.current(gen) {
		s.onProgress(text, revealed)
	}
}
