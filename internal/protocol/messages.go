package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientHello   MessageType = "client_hello"
	TypeClientControl MessageType = "client_control"
	TypeCaptureSignal MessageType = "capture_signal"
	TypeSpeechSignal  MessageType = "speech_signal"
	TypeStateSnapshot MessageType = "state_snapshot"
	TypeNotification  MessageType = "notification"
	TypeDeviceCommand MessageType = "device_command"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// Control actions.
const (
	ActionActivate = "activate"
	ActionCancel   = "cancel"
)

// Device commands sent to the browser.
const (
	CommandCaptureStart = "capture_start"
	CommandCaptureStop  = "capture_stop"
	CommandCaptureAbort = "capture_abort"
	CommandSpeak        = "speak"
	CommandSpeechCancel = "speech_cancel"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientHello reports which speech capabilities the browser exposes. It must
// be the first message on a connection.
type ClientHello struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Capture   bool        `json:"capture"`
	Synthesis bool        `json:"synthesis"`
	Language  string      `json:"language,omitempty"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// CaptureSignal relays a recognition event for the capture started by Op.
type CaptureSignal struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Op        string      `json:"op"`
	Kind      string      `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Error     string      `json:"error,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// SpeechSignal relays a synthesis event for the utterance started by Op.
type SpeechSignal struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Op        string      `json:"op"`
	Kind      string      `json:"kind"`
	Error     string      `json:"error,omitempty"`
}

type StateSnapshot struct {
	Type           MessageType      `json:"type"`
	SessionID      string           `json:"session_id"`
	State          string           `json:"state"`
	Status         string           `json:"status"`
	Transcript     string           `json:"transcript"`
	Turn           uint64           `json:"turn"`
	DisabledReason string           `json:"disabled_reason,omitempty"`
	View           interaction.View `json:"view"`
}

// NewStateSnapshot projects snap for the wire.
func NewStateSnapshot(sessionID string, snap interaction.Snapshot) StateSnapshot {
	return StateSnapshot{
		Type:           TypeStateSnapshot,
		SessionID:      sessionID,
		State:          string(snap.State),
		Status:         snap.Status,
		Transcript:     snap.Transcript,
		Turn:           snap.Turn,
		DisabledReason: snap.DisabledReason,
		View:           snap.View(),
	}
}

type Notification struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Variant   string      `json:"variant"`
	Mode      string      `json:"mode"`
}

func NewNotification(sessionID string, n interaction.Notification) Notification {
	return Notification{
		Type:      TypeNotification,
		SessionID: sessionID,
		Title:     n.Title,
		Message:   n.Message,
		Variant:   n.Variant,
		Mode:      n.Mode,
	}
}

// DeviceCommand asks the browser to drive its recogniser or synthesiser.
type DeviceCommand struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Command   string      `json:"command"`
	Op        string      `json:"op"`
	Text      string      `json:"text,omitempty"`
	Lang      string      `json:"lang,omitempty"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientHello:
		var msg ClientHello
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_hello")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Action = strings.ToLower(strings.TrimSpace(msg.Action))
		if msg.SessionID == "" || (msg.Action != ActionActivate && msg.Action != ActionCancel) {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	case TypeCaptureSignal:
		var msg CaptureSignal
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Op == "" || msg.Kind == "" {
			return nil, errors.New("invalid capture_signal")
		}
		return msg, nil
	case TypeSpeechSignal:
		var msg SpeechSignal
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Op == "" || msg.Kind == "" {
			return nil, errors.New("invalid speech_signal")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
