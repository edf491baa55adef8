package voice

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ent0n29/voiceagent/internal/interaction"
	"github.com/ent0n29/voiceagent/internal/protocol"
)

// Capture failure codes a browser may report in a start_failed signal.
const (
	startFailedBusy           = "busy"
	startFailedNotInitialized = "not-initialized"
)

// RemoteDevice is a Platform whose recogniser and synthesiser live in the
// connected browser. Commands go out through send; the browser's signals come
// back through DeliverCapture and DeliverSpeech. Each command carries an op
// id and signals for any other op are dropped.
type RemoteDevice struct {
	sessionID string
	language  string
	capture   bool
	synthesis bool
	send      func(any)

	mu            sync.Mutex
	captureOp     string
	captureHandle interaction.CaptureHandler
	speechOp      string
	speechHandle  interaction.SpeechHandler
}

func NewRemoteDevice(sessionID, language string, hello protocol.ClientHello, send func(any)) *RemoteDevice {
	if l := strings.TrimSpace(hello.Language); l != "" {
		language = l
	}
	return &RemoteDevice{
		sessionID: sessionID,
		language:  language,
		capture:   hello.Capture,
		synthesis: hello.Synthesis,
		send:      send,
	}
}

func (d *RemoteDevice) Language() string { return d.language }

func (d *RemoteDevice) NewCapture() (interaction.Capture, error) {
	if !d.capture {
		return nil, interaction.ErrUnsupported
	}
	return remoteCapture{d}, nil
}

func (d *RemoteDevice) NewSynth() (interaction.Synth, error) {
	if !d.synthesis {
		return nil, interaction.ErrUnsupported
	}
	return remoteSynth{d}, nil
}

// DeliverCapture routes a browser recognition signal to the active capture.
func (d *RemoteDevice) DeliverCapture(msg protocol.CaptureSignal) bool {
	d.mu.Lock()
	if msg.Op == "" || msg.Op != d.captureOp {
		d.mu.Unlock()
		return false
	}
	h := d.captureHandle
	sig := interaction.CaptureSignal{Text: msg.Text, Detail: msg.Detail}
	switch msg.Kind {
	case "result":
		sig.Kind = interaction.CaptureSignalResult
	case "error":
		sig.Kind = interaction.CaptureSignalError
		sig.Error = interaction.NormalizeCaptureError(msg.Error)
	case "end":
		sig.Kind = interaction.CaptureSignalEnd
		d.captureOp, d.captureHandle = "", nil
	case "start_failed":
		sig.Kind = interaction.CaptureSignalStartFailed
		sig.Err = startFailure(msg.Error, msg.Detail)
		d.captureOp, d.captureHandle = "", nil
	default:
		d.mu.Unlock()
		return false
	}
	d.mu.Unlock()

	if h != nil {
		h(sig)
	}
	return true
}

// DeliverSpeech routes a browser synthesis signal to the active utterance.
func (d *RemoteDevice) DeliverSpeech(msg protocol.SpeechSignal) bool {
	d.mu.Lock()
	if msg.Op == "" || msg.Op != d.speechOp {
		d.mu.Unlock()
		return false
	}
	h := d.speechHandle
	var sig interaction.SpeechSignal
	switch msg.Kind {
	case "end":
		sig.Kind = interaction.SpeechSignalEnd
	case "error":
		sig.Kind = interaction.SpeechSignalError
		sig.Error = msg.Error
	default:
		d.mu.Unlock()
		return false
	}
	d.speechOp, d.speechHandle = "", nil
	d.mu.Unlock()

	if h != nil {
		h(sig)
	}
	return true
}

func (d *RemoteDevice) command(command, op, text string) {
	d.send(protocol.DeviceCommand{
		Type:      protocol.TypeDeviceCommand,
		SessionID: d.sessionID,
		Command:   command,
		Op:        op,
		Text:      text,
		Lang:      d.language,
	})
}

func startFailure(code, detail string) error {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case startFailedBusy, "invalidstateerror":
		return interaction.ErrCaptureBusy
	case startFailedNotInitialized:
		return interaction.ErrNotInitialized
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		return errors.New(detail)
	}
	if code != "" {
		return errors.New(code)
	}
	return errors.New("capture start failed")
}

type remoteCapture struct{ d *RemoteDevice }

func (c remoteCapture) Start(_ context.Context, h interaction.CaptureHandler) error {
	d := c.d
	d.mu.Lock()
	if d.captureOp != "" {
		d.mu.Unlock()
		return interaction.ErrCaptureBusy
	}
	op := uuid.NewString()
	d.captureOp, d.captureHandle = op, h
	d.mu.Unlock()

	d.command(protocol.CommandCaptureStart, op, "")
	return nil
}

// Stop asks the browser to finish recognition; a final result may still
// arrive for the op.
func (c remoteCapture) Stop() error {
	d := c.d
	d.mu.Lock()
	op := d.captureOp
	d.mu.Unlock()
	if op != "" {
		d.command(protocol.CommandCaptureStop, op, "")
	}
	return nil
}

func (c remoteCapture) Abort() error {
	d := c.d
	d.mu.Lock()
	op := d.captureOp
	d.captureOp, d.captureHandle = "", nil
	d.mu.Unlock()
	if op != "" {
		d.command(protocol.CommandCaptureAbort, op, "")
	}
	return nil
}

type remoteSynth struct{ d *RemoteDevice }

func (s remoteSynth) Speak(_ context.Context, text string, h interaction.SpeechHandler) error {
	d := s.d
	op := uuid.NewString()
	d.mu.Lock()
	prev := d.speechOp
	d.speechOp, d.speechHandle = op, h
	d.mu.Unlock()

	if prev != "" {
		d.command(protocol.CommandSpeechCancel, prev, "")
	}
	d.command(protocol.CommandSpeak, op, speakableText(text))
	return nil
}

func (s remoteSynth) Cancel() error {
	d := s.d
	d.mu.Lock()
	op := d.speechOp
	d.speechOp, d.speechHandle = "", nil
	d.mu.Unlock()
	if op != "" {
		d.command(protocol.CommandSpeechCancel, op, "")
	}
	return nil
}
