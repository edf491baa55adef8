package interaction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/voiceagent/internal/policy"
)

// Machine runs Transition against real adapters. Events are serialised: the
// first caller of Dispatch drains the queue, later callers only enqueue, so
// adapters may emit signals synchronously from inside Start or Speak.
type Machine struct {
	platform Platform
	agent    Agent
	notifier Notifier
	observer Observer
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	snap        Snapshot
	queue       []Event
	draining    bool
	unmounted   bool
	capture     Capture
	synth       Synth
	agentCancel context.CancelFunc
}

// NewMachine builds an unmounted machine. notifier and observer may be nil.
func NewMachine(platform Platform, agent Agent, notifier Notifier, observer Observer, logger zerolog.Logger) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		platform: platform,
		agent:    agent,
		notifier: notifier,
		observer: observer,
		logger:   logger.With().Str("component", "interaction").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		snap:     Initial(),
	}
}

// Mount checks platform capabilities and creates the adapters. A missing
// capability disables the machine permanently; other errors are returned.
func (m *Machine) Mount() error {
	capture, err := m.platform.NewCapture()
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			m.Dispatch(PlatformUnsupported{Capability: CapabilityCapture})
			return nil
		}
		return err
	}
	synth, err := m.platform.NewSynth()
	if err != nil {
		_ = capture.Abort()
		if errors.Is(err, ErrUnsupported) {
			m.Dispatch(PlatformUnsupported{Capability: CapabilitySynthesis})
			return nil
		}
		return err
	}

	m.mu.Lock()
	m.capture = capture
	m.synth = synth
	m.mu.Unlock()
	return nil
}

// Unmount aborts capture, cancels speech and any in-flight agent call.
// Later events are ignored. Calling it again is a no-op.
func (m *Machine) Unmount() {
	m.mu.Lock()
	if m.unmounted {
		m.mu.Unlock()
		return
	}
	m.unmounted = true
	m.queue = append(m.queue, Unmounted{})
	m.drainLocked()
	m.cancel()
}

// Activate presses the control.
func (m *Machine) Activate() { m.Dispatch(ControlActivated{}) }

// Cancel returns an active capture or speech phase to Idle.
func (m *Machine) Cancel() { m.Dispatch(Cancelled{}) }

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Dispatch feeds ev into the machine.
func (m *Machine) Dispatch(ev Event) {
	m.mu.Lock()
	if m.unmounted {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, ev)
	m.drainLocked()
}

// drainLocked is called with m.mu held and returns with it released. Only one
// caller drains at a time; the rest leave their event in the queue.
func (m *Machine) drainLocked() {
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true

	for len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		if _, ok := next.(Unmounted); ok {
			m.queue = nil
		}
		prev := m.snap
		snap, effects := Transition(prev, next)
		m.snap = snap
		m.mu.Unlock()

		if snap != prev {
			m.logger.Debug().
				Str("from", string(prev.State)).
				Str("to", string(snap.State)).
				Uint64("turn", snap.Turn).
				Str("status", snap.Status).
				Msg("state changed")
			if m.observer != nil {
				m.observer.StateChanged(prev, snap)
			}
		}
		for _, eff := range effects {
			m.apply(eff)
		}

		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}

func (m *Machine) apply(eff Effect) {
	switch e := eff.(type) {
	case StartCapture:
		capture := m.currentCapture()
		if capture == nil {
			m.Dispatch(CaptureStartFailed{Turn: e.Turn, Err: ErrNotInitialized})
			return
		}
		if err := capture.Start(m.ctx, m.captureHandler(e.Turn)); err != nil {
			m.logger.Warn().Err(err).Uint64("turn", e.Turn).Msg("capture start failed")
			m.Dispatch(CaptureStartFailed{Turn: e.Turn, Err: err})
		}

	case StopCapture:
		if capture := m.currentCapture(); capture != nil {
			if err := capture.Stop(); err != nil {
				m.logger.Debug().Err(err).Msg("capture stop")
			}
		}

	case InvokeAgent:
		m.invokeAgent(e.Turn, e.Text)

	case Speak:
		synth := m.currentSynth()
		if synth == nil {
			m.Dispatch(SpeechFailed{Turn: e.Turn, Kind: "synthesis-unavailable"})
			return
		}
		if err := synth.Speak(m.ctx, e.Text, m.speechHandler(e.Turn)); err != nil {
			m.logger.Warn().Err(err).Uint64("turn", e.Turn).Msg("speak failed")
			m.Dispatch(SpeechFailed{Turn: e.Turn, Kind: err.Error()})
		}

	case CancelSpeech:
		if synth := m.currentSynth(); synth != nil {
			if err := synth.Cancel(); err != nil {
				m.logger.Debug().Err(err).Msg("speech cancel")
			}
		}

	case ResetAdapters:
		if capture := m.currentCapture(); capture != nil {
			_ = capture.Abort()
		}
		if synth := m.currentSynth(); synth != nil {
			_ = synth.Cancel()
		}
		m.mu.Lock()
		cancel := m.agentCancel
		m.agentCancel = nil
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}

	case RecreateCapture:
		m.recreateCapture()

	case Notify:
		m.logger.Info().
			Str("title", e.Notification.Title).
			Str("message", e.Notification.Message).
			Msg("notification")
		if m.notifier != nil {
			m.notifier.Notify(e.Notification)
		}
	}
}

func (m *Machine) invokeAgent(turn uint64, text string) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.mu.Lock()
	m.agentCancel = cancel
	m.mu.Unlock()

	redacted, kinds := policy.RedactTranscript(text)
	m.logger.Info().
		Uint64("turn", turn).
		Str("transcript", redacted).
		Strs("redacted", kinds).
		Msg("invoking agent")

	go func() {
		defer cancel()
		started := time.Now()
		raw, err := m.agent.Invoke(ctx, text)
		if m.observer != nil {
			m.observer.AgentCallFinished(time.Since(started), err)
		}
		if err != nil {
			m.logger.Warn().Err(err).Uint64("turn", turn).Msg("agent call failed")
			m.Dispatch(ReplyFailed{Turn: turn, Err: err})
			return
		}
		m.Dispatch(ReplyReceived{Turn: turn, Raw: raw})
	}()
}

func (m *Machine) recreateCapture() {
	m.mu.Lock()
	old := m.capture
	m.mu.Unlock()
	if old != nil {
		_ = old.Abort()
	}

	capture, err := m.platform.NewCapture()
	if err != nil {
		m.logger.Error().Err(err).Msg("recreate capture adapter")
		return
	}
	m.mu.Lock()
	m.capture = capture
	m.mu.Unlock()
}

func (m *Machine) captureHandler(turn uint64) CaptureHandler {
	return func(sig CaptureSignal) {
		switch sig.Kind {
		case CaptureSignalResult:
			m.Dispatch(CaptureResult{Turn: turn, Text: sig.Text})
		case CaptureSignalError:
			m.Dispatch(CaptureFailed{Turn: turn, Kind: sig.Error, Detail: sig.Detail})
		case CaptureSignalEnd:
			m.Dispatch(CaptureEnded{Turn: turn})
		case CaptureSignalStartFailed:
			err := sig.Err
			if err == nil {
				err = errors.New(sig.Detail)
			}
			m.Dispatch(CaptureStartFailed{Turn: turn, Err: err})
		}
	}
}

func (m *Machine) speechHandler(turn uint64) SpeechHandler {
	return func(sig SpeechSignal) {
		switch sig.Kind {
		case SpeechSignalEnd:
			m.Dispatch(SpeechEnded{Turn: turn})
		case SpeechSignalError:
			m.Dispatch(SpeechFailed{Turn: turn, Kind: sig.Error})
		}
	}
}

func (m *Machine) currentCapture() Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capture
}

func (m *Machine) currentSynth() Synth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synth
}
