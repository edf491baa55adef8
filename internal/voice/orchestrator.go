package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/voiceagent/internal/agent"
	"github.com/ent0n29/voiceagent/internal/interaction"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/protocol"
	"github.com/ent0n29/voiceagent/internal/session"
)

const (
	ProviderRemote = "remote"
	ProviderMock   = "mock"

	helloTimeout        = 10 * time.Second
	outboundSendTimeout = 600 * time.Millisecond
)

var (
	ErrNoConnection    = errors.New("no live connection for session")
	ErrAlreadyAttached = errors.New("session already has a live connection")
	errHelloTimeout    = errors.New("client_hello not received")
)

// MockOptions configures the simulated device used by the mock provider.
type MockOptions struct {
	Utterance    string
	SpeechRate   int
	CaptureDelay time.Duration
}

// Orchestrator owns one interaction machine per live websocket connection.
type Orchestrator struct {
	sessions *session.Manager
	agent    interaction.Agent
	metrics  *observability.Metrics
	logger   zerolog.Logger
	provider string
	mock     MockOptions

	mu    sync.Mutex
	conns map[string]*connection
}

type connection struct {
	machine *interaction.Machine
	cancel  context.CancelFunc
}

func NewOrchestrator(
	sessions *session.Manager,
	agent interaction.Agent,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	provider string,
	mock MockOptions,
) *Orchestrator {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = ProviderRemote
	}
	return &Orchestrator{
		sessions: sessions,
		agent:    agent,
		metrics:  metrics,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		provider: provider,
		mock:     mock,
		conns:    make(map[string]*connection),
	}
}

func (o *Orchestrator) Provider() string { return o.provider }

// RunConnection drives the interaction for one websocket connection. The
// first inbound message must be a client_hello describing the browser's
// speech capabilities. It returns when ctx is done or inbound closes.
func (o *Orchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := o.logger.With().Str("session_id", s.ID).Logger()
	send := func(msg any) { o.send(ctx, outbound, msg) }

	hello, err := o.awaitHello(ctx, inbound)
	if err != nil {
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      "hello_missing",
			Source:    "session",
			Detail:    err.Error(),
		})
		return err
	}

	var (
		platform interaction.Platform
		device   *RemoteDevice
	)
	switch o.provider {
	case ProviderMock:
		platform = &MockPlatform{Utterance: o.mock.Utterance, SpeechRate: o.mock.SpeechRate, CaptureDelay: o.mock.CaptureDelay}
	default:
		device = NewRemoteDevice(s.ID, s.Language, hello, send)
		platform = device
	}

	obs := &connectionObserver{sessionID: s.ID, sessions: o.sessions, metrics: o.metrics, send: send}
	machine := interaction.NewMachine(platform, o.agent, obs, obs, logger)

	if err := o.attach(s.ID, &connection{machine: machine, cancel: cancel}); err != nil {
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      "session_busy",
			Source:    "session",
			Detail:    err.Error(),
		})
		return err
	}
	defer o.detach(s.ID)
	defer machine.Unmount()

	if err := machine.Mount(); err != nil {
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      "mount_failed",
			Source:    "platform",
			Detail:    err.Error(),
		})
		return fmt.Errorf("mount interaction: %w", err)
	}
	o.metrics.SessionEvents.WithLabelValues("connected").Inc()
	language := s.Language
	if device != nil {
		language = device.Language()
	}
	logger.Info().
		Str("provider", o.provider).
		Str("language", language).
		Bool("capture", hello.Capture).
		Bool("synthesis", hello.Synthesis).
		Msg("connection ready")

	send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: s.ID, Code: "ready", Detail: o.provider})
	send(protocol.NewStateSnapshot(s.ID, machine.Snapshot()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			_ = o.sessions.Touch(s.ID)
			switch m := msg.(type) {
			case protocol.ClientControl:
				switch m.Action {
				case protocol.ActionActivate:
					machine.Activate()
				case protocol.ActionCancel:
					machine.Cancel()
				}
			case protocol.CaptureSignal:
				if device == nil || !device.DeliverCapture(m) {
					o.metrics.SessionEvents.WithLabelValues("stale_capture_signal").Inc()
				}
			case protocol.SpeechSignal:
				if device == nil || !device.DeliverSpeech(m) {
					o.metrics.SessionEvents.WithLabelValues("stale_speech_signal").Inc()
				}
			case protocol.ClientHello:
				logger.Debug().Msg("ignoring repeated client_hello")
			}
		}
	}
}

// Activate presses the control of the session's live connection.
func (o *Orchestrator) Activate(sessionID string) (interaction.Snapshot, error) {
	c, ok := o.lookup(sessionID)
	if !ok {
		return interaction.Snapshot{}, ErrNoConnection
	}
	c.machine.Activate()
	return c.machine.Snapshot(), nil
}

// Snapshot reports the live state of a session's interaction.
func (o *Orchestrator) Snapshot(sessionID string) (interaction.Snapshot, bool) {
	c, ok := o.lookup(sessionID)
	if !ok {
		return interaction.Snapshot{}, false
	}
	return c.machine.Snapshot(), true
}

// Close ends the session's live connection, unmounting its machine.
func (o *Orchestrator) Close(sessionID string) bool {
	c, ok := o.lookup(sessionID)
	if !ok {
		return false
	}
	c.cancel()
	return true
}

func (o *Orchestrator) awaitHello(ctx context.Context, inbound <-chan any) (protocol.ClientHello, error) {
	timer := time.NewTimer(helloTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return protocol.ClientHello{}, ctx.Err()
		case <-timer.C:
			return protocol.ClientHello{}, errHelloTimeout
		case msg, ok := <-inbound:
			if !ok {
				return protocol.ClientHello{}, errHelloTimeout
			}
			if hello, ok := msg.(protocol.ClientHello); ok {
				return hello, nil
			}
		}
	}
}

func (o *Orchestrator) attach(sessionID string, c *connection) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.conns[sessionID]; ok {
		return ErrAlreadyAttached
	}
	o.conns[sessionID] = c
	_ = o.sessions.Connect(sessionID)
	return nil
}

func (o *Orchestrator) detach(sessionID string) {
	o.mu.Lock()
	delete(o.conns, sessionID)
	o.mu.Unlock()
	_ = o.sessions.Disconnect(sessionID)
}

func (o *Orchestrator) lookup(sessionID string) (*connection, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.conns[sessionID]
	return c, ok
}

// send queues msg for the websocket writer. State and command messages are
// never dropped silently: a full queue is waited on briefly, then recorded.
func (o *Orchestrator) send(ctx context.Context, outbound chan<- any, msg any) {
	msgType := outboundMessageType(msg)
	select {
	case outbound <- msg:
		o.metrics.ObserveOutboundMessage(msgType, "delivered")
		return
	default:
	}

	timer := time.NewTimer(outboundSendTimeout)
	defer timer.Stop()
	select {
	case outbound <- msg:
		o.metrics.ObserveOutboundMessage(msgType, "delivered")
	case <-timer.C:
		o.metrics.ObserveOutboundMessage(msgType, "timeout")
		o.metrics.SessionEvents.WithLabelValues("outbound_drop").Inc()
	case <-ctx.Done():
		o.metrics.ObserveOutboundMessage(msgType, "closed")
	}
}

func outboundMessageType(msg any) string {
	switch m := msg.(type) {
	case protocol.StateSnapshot:
		return string(m.Type)
	case protocol.Notification:
		return string(m.Type)
	case protocol.DeviceCommand:
		return string(m.Type)
	case protocol.SystemEvent:
		return string(m.Type)
	case protocol.ErrorEvent:
		return string(m.Type)
	default:
		return "unknown"
	}
}

// connectionObserver mirrors machine activity to the client, the session
// record and metrics.
type connectionObserver struct {
	sessionID string
	sessions  *session.Manager
	metrics   *observability.Metrics
	send      func(any)
}

func (c *connectionObserver) StateChanged(from, to interaction.Snapshot) {
	c.metrics.StateChanged(from, to)
	_ = c.sessions.RecordState(c.sessionID, string(to.State), to.Turn)
	if from.State == interaction.StateSpeaking && to.Status == interaction.StatusSilenced {
		_ = c.sessions.Interrupt(c.sessionID)
	}
	c.send(protocol.NewStateSnapshot(c.sessionID, to))
}

func (c *connectionObserver) AgentCallFinished(d time.Duration, err error) {
	c.metrics.AgentCallFinished(d, err)
	if err == nil {
		_ = c.sessions.CompleteTurn(c.sessionID)
		return
	}
	// The notification that follows carries the user-facing text; this tells
	// the client whether trying again soon is worthwhile.
	var re *agent.RemoteError
	if errors.As(err, &re) {
		c.send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: c.sessionID,
			Code:      "agent_failed",
			Source:    "agent",
			Retryable: re.Retryable,
			Detail:    re.Error(),
		})
	}
}

func (c *connectionObserver) Notify(n interaction.Notification) {
	c.metrics.Notify(n)
	c.send(protocol.NewNotification(c.sessionID, n))
}

// Live lists sessions with an attached connection.
func (o *Orchestrator) Live() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.conns))
	for id := range o.conns {
		ids = append(ids, id)
	}
	return ids
}
