package interaction

import (
	"errors"
	"strings"
)

// Transition computes the next snapshot and the effects to run for ev.
// It never performs I/O; Machine executes the returned effects in order.
func Transition(s Snapshot, ev Event) (Snapshot, []Effect) {
	if s.State == StateDisabled {
		return s, nil
	}

	switch e := ev.(type) {
	case ControlActivated:
		switch s.State {
		case StateIdle:
			next := s.advance(StateListening, StatusListening)
			return next, []Effect{StartCapture{Turn: next.Turn}}
		case StateListening:
			return s.advance(StateIdle, StatusReady), []Effect{StopCapture{}, ResetAdapters{}}
		case StateSpeaking:
			return s.advance(StateIdle, StatusSilenced), []Effect{CancelSpeech{}, ResetAdapters{}}
		default:
			return s, nil
		}

	case Cancelled:
		switch s.State {
		case StateListening:
			return s.advance(StateIdle, StatusReady), []Effect{StopCapture{}, ResetAdapters{}}
		case StateSpeaking:
			return s.advance(StateIdle, StatusSilenced), []Effect{CancelSpeech{}, ResetAdapters{}}
		default:
			return s, nil
		}

	case CaptureResult:
		if !s.awaits(StateListening, e.Turn) {
			return s, nil
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return s.fail("Speech Recognition Error", CaptureNoSpeech.Message())
		}
		next := s.advance(StateProcessing, StatusAccessing)
		next.Transcript = text
		return next, []Effect{StopCapture{}, InvokeAgent{Turn: next.Turn, Text: text}}

	case CaptureFailed:
		if !s.awaits(StateListening, e.Turn) {
			return s, nil
		}
		return s.fail("Speech Recognition Error", e.Kind.Message())

	case CaptureEnded:
		if !s.awaits(StateListening, e.Turn) {
			return s, nil
		}
		return s.advance(StateIdle, StatusReady), []Effect{ResetAdapters{}}

	case CaptureStartFailed:
		if e.Turn != s.Turn {
			return s, nil
		}
		switch {
		case errors.Is(e.Err, ErrCaptureBusy):
			return s.advance(StateIdle, StatusMicBusy), []Effect{RecreateCapture{}, ResetAdapters{}}
		case errors.Is(e.Err, ErrNotInitialized):
			return s.fail("Error", "Speech recognition not initialized.")
		default:
			return s.fail("Mic Error", "Could not start listening.")
		}

	case ReplyReceived:
		if !s.awaits(StateProcessing, e.Turn) {
			return s, nil
		}
		text, err := ParseReply(e.Raw)
		switch {
		case err == nil:
			next := s.advance(StateSpeaking, StatusSpeaking)
			return next, []Effect{Speak{Turn: next.Turn, Text: text}}
		case errors.Is(err, ErrEmptyReply):
			return s.fail("Agent Interaction Error", "Agent provided an empty response.")
		default:
			return s.fail("Agent Interaction Error", agentFailureMessage(err))
		}

	case ReplyFailed:
		if !s.awaits(StateProcessing, e.Turn) {
			return s, nil
		}
		return s.fail("Agent Interaction Error", agentFailureMessage(e.Err))

	case SpeechEnded:
		if !s.awaits(StateSpeaking, e.Turn) {
			return s, nil
		}
		return s.advance(StateIdle, StatusSpeechDone), []Effect{ResetAdapters{}}

	case SpeechFailed:
		if !s.awaits(StateSpeaking, e.Turn) {
			return s, nil
		}
		kind := strings.TrimSpace(e.Kind)
		if kind == "" {
			kind = "synthesis-failed"
		}
		return s.fail("TTS Error", "Could not synthesize speech: "+kind)

	case PlatformUnsupported:
		msg := "Speech Recognition API is not supported in this browser."
		if e.Capability == CapabilitySynthesis {
			msg = "Speech Synthesis API is not supported in this browser."
		}
		next := Snapshot{
			State:          StateDisabled,
			Status:         StatusDisabled,
			Turn:           s.Turn + 1,
			DisabledReason: string(e.Capability),
		}
		return next, []Effect{ResetAdapters{}, Notify{Notification: errorNotification("Browser Not Supported", msg)}}

	case Unmounted:
		return s.advance(StateIdle, s.Status), []Effect{ResetAdapters{}}
	}

	return s, nil
}

// awaits reports whether a signal for turn belongs to the current state.
func (s Snapshot) awaits(state State, turn uint64) bool {
	return s.State == state && s.Turn == turn
}

func (s Snapshot) advance(state State, status string) Snapshot {
	return Snapshot{State: state, Status: status, Turn: s.Turn + 1}
}

func (s Snapshot) fail(title, message string) (Snapshot, []Effect) {
	next := s.advance(StateIdle, "Error: "+message)
	return next, []Effect{Notify{Notification: errorNotification(title, message)}, ResetAdapters{}}
}
