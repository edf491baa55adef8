package interaction

// Event is an input to Transition.
type Event interface{ isEvent() }

// ControlActivated is the single user input: the control was pressed.
type ControlActivated struct{}

// Cancelled returns an active capture or speech phase to Idle. It is a
// no-op while Idle or Processing.
type Cancelled struct{}

// CaptureResult carries the utterance recognised for a turn.
type CaptureResult struct {
	Turn uint64
	Text string
}

// CaptureFailed is a capture error reported after a successful start.
type CaptureFailed struct {
	Turn   uint64
	Kind   CaptureErrorKind
	Detail string
}

// CaptureEnded means capture stopped without producing a result.
type CaptureEnded struct {
	Turn uint64
}

// CaptureStartFailed means the capture adapter refused to start.
type CaptureStartFailed struct {
	Turn uint64
	Err  error
}

// ReplyReceived carries the raw agent envelope.
type ReplyReceived struct {
	Turn uint64
	Raw  string
}

// ReplyFailed carries an agent call failure.
type ReplyFailed struct {
	Turn uint64
	Err  error
}

// SpeechEnded means the utterance finished playing.
type SpeechEnded struct {
	Turn uint64
}

// SpeechFailed means synthesis failed for the utterance.
type SpeechFailed struct {
	Turn uint64
	Kind string
}

// Capability names a platform feature checked at mount.
type Capability string

const (
	CapabilityCapture   Capability = "capture"
	CapabilitySynthesis Capability = "synthesis"
)

// PlatformUnsupported disables the machine permanently.
type PlatformUnsupported struct {
	Capability Capability
}

// Unmounted tears the interaction down.
type Unmounted struct{}

func (ControlActivated) isEvent()    {}
func (Cancelled) isEvent()           {}
func (CaptureResult) isEvent()       {}
func (CaptureFailed) isEvent()       {}
func (CaptureEnded) isEvent()        {}
func (CaptureStartFailed) isEvent()  {}
func (ReplyReceived) isEvent()       {}
func (ReplyFailed) isEvent()         {}
func (SpeechEnded) isEvent()         {}
func (SpeechFailed) isEvent()        {}
func (PlatformUnsupported) isEvent() {}
func (Unmounted) isEvent()           {}

// Effect is a side effect requested by Transition and executed by Machine.
type Effect interface{ isEffect() }

// StartCapture starts the capture adapter for Turn.
type StartCapture struct {
	Turn uint64
}

// StopCapture ends capture gracefully.
type StopCapture struct{}

// InvokeAgent sends Text to the reasoning client for Turn.
type InvokeAgent struct {
	Turn uint64
	Text string
}

// Speak starts the output adapter with Text for Turn.
type Speak struct {
	Turn uint64
	Text string
}

// CancelSpeech stops the output adapter immediately.
type CancelSpeech struct{}

// ResetAdapters aborts capture, cancels speech and any in-flight agent call.
// It accompanies every transition into Idle.
type ResetAdapters struct{}

// RecreateCapture replaces the capture adapter instance.
type RecreateCapture struct{}

// Notify raises a user-visible alert.
type Notify struct {
	Notification Notification
}

func (StartCapture) isEffect()    {}
func (StopCapture) isEffect()     {}
func (InvokeAgent) isEffect()     {}
func (Speak) isEffect()           {}
func (CancelSpeech) isEffect()    {}
func (ResetAdapters) isEffect()   {}
func (RecreateCapture) isEffect() {}
func (Notify) isEffect()          {}

// Notification is a toast-style alert.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Variant string `json:"variant"`
	Mode    string `json:"mode"`
}

func errorNotification(title, message string) Notification {
	return Notification{Title: title, Message: message, Variant: "error", Mode: "dismissible"}
}
