package interaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCaptureBusy is the re-entrancy fault raised when capture is started twice.
	ErrCaptureBusy = errors.New("interaction: capture adapter busy")
	// ErrNotInitialized means the machine has no capture adapter to start.
	ErrNotInitialized = errors.New("interaction: capture adapter not initialized")
	// ErrUnsupported is returned by a Platform lacking a capability.
	ErrUnsupported = errors.New("interaction: capability not supported")
	// ErrEmptyReply means the agent envelope had no usable value.
	ErrEmptyReply = errors.New("interaction: agent provided an empty response")
	// ErrMalformedReply means the agent reply was not a valid envelope.
	ErrMalformedReply = errors.New("interaction: malformed agent response")
)

// CaptureErrorKind classifies capture failures.
type CaptureErrorKind string

const (
	CaptureNoSpeech     CaptureErrorKind = "no-speech"
	CaptureAudioFailure CaptureErrorKind = "audio-capture"
	CaptureNotAllowed   CaptureErrorKind = "not-allowed"
	CaptureOther        CaptureErrorKind = "other"
)

// Message maps a capture failure to the text shown to the user.
func (k CaptureErrorKind) Message() string {
	switch k {
	case CaptureNoSpeech:
		return "No speech detected. Please try again."
	case CaptureAudioFailure:
		return "Audio capture failed. Ensure microphone is enabled."
	case CaptureNotAllowed:
		return "Microphone access denied. Please allow microphone access."
	default:
		return "An error occurred during speech recognition."
	}
}

// NormalizeCaptureError folds platform error codes onto the known kinds.
func NormalizeCaptureError(code string) CaptureErrorKind {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "no-speech", "no_speech", "nospeech":
		return CaptureNoSpeech
	case "audio-capture", "audio_capture":
		return CaptureAudioFailure
	case "not-allowed", "not_allowed", "permission-denied", "permission_denied", "service-not-allowed":
		return CaptureNotAllowed
	default:
		return CaptureOther
	}
}

// MessageError is implemented by agent failures that carry a human-readable message.
type MessageError interface {
	error
	UserMessage() string
}

const genericAgentError = "An error occurred while contacting the agent."

// agentFailureMessage prefers the service's own message, then the error
// text, then a generic line.
func agentFailureMessage(err error) string {
	if err == nil {
		return genericAgentError
	}
	var me MessageError
	if errors.As(err, &me) {
		if msg := strings.TrimSpace(me.UserMessage()); msg != "" {
			return "Agent Error: " + msg
		}
	}
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return genericAgentError
}

type replyEnvelope struct {
	Value *string `json:"value"`
}

// ParseReply extracts the reply text from the agent's JSON envelope.
func ParseReply(raw string) (string, error) {
	var env replyEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if env.Value == nil {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(*env.Value)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
