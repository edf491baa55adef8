package interaction

import (
	"context"
	"time"
)

type CaptureSignalKind string

const (
	CaptureSignalResult CaptureSignalKind = "result"
	CaptureSignalError  CaptureSignalKind = "error"
	CaptureSignalEnd    CaptureSignalKind = "end"
	// CaptureSignalStartFailed lets adapters that start asynchronously
	// report a refused start, e.g. a busy recogniser.
	CaptureSignalStartFailed CaptureSignalKind = "start_failed"
)

type CaptureSignal struct {
	Kind   CaptureSignalKind
	Text   string
	Error  CaptureErrorKind
	Detail string
	Err    error
}

type CaptureHandler func(CaptureSignal)

// Capture wraps a speech-to-text capability. Each successful Start emits
// exactly one result, error or end signal unless aborted.
type Capture interface {
	// Start returns ErrCaptureBusy when the adapter is already running.
	Start(ctx context.Context, handler CaptureHandler) error
	// Stop ends gracefully and may still emit a result.
	Stop() error
	// Abort ends immediately and discards any partial result.
	Abort() error
}

type SpeechSignalKind string

const (
	SpeechSignalEnd   SpeechSignalKind = "end"
	SpeechSignalError SpeechSignalKind = "error"
)

type SpeechSignal struct {
	Kind  SpeechSignalKind
	Error string
}

type SpeechHandler func(SpeechSignal)

// Synth wraps a text-to-speech capability.
type Synth interface {
	// Speak cancels any prior utterance and emits one end or error signal.
	Speak(ctx context.Context, text string, handler SpeechHandler) error
	// Cancel stops immediately and suppresses pending signals.
	Cancel() error
}

// Agent is the remote reasoning client. Invoke returns the raw reply envelope.
type Agent interface {
	Invoke(ctx context.Context, text string) (string, error)
}

// Platform creates adapters. It returns ErrUnsupported for a missing capability.
type Platform interface {
	NewCapture() (Capture, error)
	NewSynth() (Synth, error)
}

type Notifier interface {
	Notify(n Notification)
}

type Observer interface {
	StateChanged(from, to Snapshot)
	AgentCallFinished(d time.Duration, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
