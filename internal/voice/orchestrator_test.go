package voice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/voiceagent/internal/agent"
	"github.com/ent0n29/voiceagent/internal/interaction"
	"github.com/ent0n29/voiceagent/internal/observability"
	"github.com/ent0n29/voiceagent/internal/protocol"
	"github.com/ent0n29/voiceagent/internal/session"
)

type agentFunc func(ctx context.Context, text string) (string, error)

func (f agentFunc) Invoke(ctx context.Context, text string) (string, error) { return f(ctx, text) }

func echoAgent() agentFunc {
	return func(_ context.Context, text string) (string, error) {
		return fmt.Sprintf(`{"value":"You said %s"}`, text), nil
	}
}

type harness struct {
	orch     *Orchestrator
	sessions *session.Manager
	sess     *session.Session
	inbound  chan any
	outbound chan any
	done     chan error
	cancel   context.CancelFunc
}

func startHarness(t *testing.T, provider string, agent interaction.Agent) *harness {
	t.Helper()
	sessions := session.NewManager(time.Minute)
	metrics := observability.NewMetrics(fmt.Sprintf("voiceagent_test_orch_%d", time.Now().UnixNano()))
	orch := NewOrchestrator(sessions, agent, metrics, zerolog.Nop(), provider, MockOptions{
		Utterance:    "check my inbox",
		SpeechRate:   1000,
		CaptureDelay: 10 * time.Millisecond,
	})

	h := &harness{
		orch:     orch,
		sessions: sessions,
		sess:     sessions.Create("u1", "en-GB"),
		inbound:  make(chan any, 16),
		outbound: make(chan any, 256),
		done:     make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- orch.RunConnection(ctx, h.sess, h.inbound, h.outbound) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Errorf("RunConnection did not return")
		}
	})
	return h
}

// next returns the next outbound message matching keep.
func (h *harness) next(t *testing.T, what string, keep func(any) bool) any {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case msg := <-h.outbound:
			if keep(msg) {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
			return nil
		}
	}
}

func (h *harness) waitState(t *testing.T, state interaction.State) protocol.StateSnapshot {
	t.Helper()
	msg := h.next(t, "state "+string(state), func(m any) bool {
		s, ok := m.(protocol.StateSnapshot)
		return ok && s.State == string(state)
	})
	return msg.(protocol.StateSnapshot)
}

func (h *harness) waitCommand(t *testing.T, command string) protocol.DeviceCommand {
	t.Helper()
	msg := h.next(t, "command "+command, func(m any) bool {
		c, ok := m.(protocol.DeviceCommand)
		return ok && c.Command == command
	})
	return msg.(protocol.DeviceCommand)
}

func (h *harness) hello(capture, synthesis bool) {
	h.inbound <- protocol.ClientHello{Type: protocol.TypeClientHello, SessionID: h.sess.ID, Capture: capture, Synthesis: synthesis}
}

func (h *harness) control(action string) {
	h.inbound <- protocol.ClientControl{Type: protocol.TypeClientControl, SessionID: h.sess.ID, Action: action}
}

func TestRunConnectionMockProviderCompletesTurn(t *testing.T) {
	h := startHarness(t, ProviderMock, echoAgent())
	h.hello(false, false)

	initial := h.waitState(t, interaction.StateIdle)
	if initial.Status != interaction.StatusReady || !initial.View.ControlEnabled {
		t.Fatalf("initial snapshot = %+v", initial)
	}

	h.control(protocol.ActionActivate)
	listening := h.waitState(t, interaction.StateListening)
	if listening.View.Icon != "utility:close" {
		t.Fatalf("listening icon = %q", listening.View.Icon)
	}
	processing := h.waitState(t, interaction.StateProcessing)
	if processing.Transcript != "check my inbox" || !processing.View.ShowSpinner {
		t.Fatalf("processing snapshot = %+v", processing)
	}
	h.waitState(t, interaction.StateSpeaking)
	final := h.waitState(t, interaction.StateIdle)
	if final.Status != interaction.StatusSpeechDone {
		t.Fatalf("final status = %q", final.Status)
	}

	waitFor(t, "completed turn", func() bool {
		s, err := h.sessions.Get(h.sess.ID)
		return err == nil && s.CompletedTurns == 1 && s.State == string(interaction.StateIdle)
	})
}

func TestRunConnectionReportsRetryableAgentFailure(t *testing.T) {
	overloaded := agentFunc(func(context.Context, string) (string, error) {
		return "", &agent.RemoteError{Kind: agent.KindApplication, StatusCode: 503, Message: "overloaded", Retryable: true}
	})
	h := startHarness(t, ProviderMock, overloaded)
	h.hello(true, true)
	h.waitState(t, interaction.StateIdle)

	h.control(protocol.ActionActivate)
	msg := h.next(t, "agent error event", func(m any) bool {
		e, ok := m.(protocol.ErrorEvent)
		return ok && e.Source == "agent"
	})
	ev := msg.(protocol.ErrorEvent)
	if ev.Code != "agent_failed" || !ev.Retryable {
		t.Fatalf("error event = %+v, want retryable agent_failed", ev)
	}

	final := h.waitState(t, interaction.StateIdle)
	if final.Status != "Error: Agent Error: overloaded" {
		t.Fatalf("final status = %q", final.Status)
	}
	note := h.next(t, "notification", func(m any) bool {
		_, ok := m.(protocol.Notification)
		return ok
	}).(protocol.Notification)
	if note.Message != "Agent Error: overloaded" {
		t.Fatalf("notification = %+v", note)
	}
}

func TestRunConnectionRemoteProviderBridgesBrowser(t *testing.T) {
	h := startHarness(t, ProviderRemote, echoAgent())
	h.hello(true, true)
	h.waitState(t, interaction.StateIdle)

	h.control(protocol.ActionActivate)
	start := h.waitCommand(t, protocol.CommandCaptureStart)
	if start.Lang != "en-GB" {
		t.Fatalf("capture language = %q, want session language", start.Lang)
	}
	h.inbound <- protocol.CaptureSignal{Type: protocol.TypeCaptureSignal, SessionID: h.sess.ID, Op: start.Op, Kind: "result", Text: "schedule a call"}

	// Snapshots are queued before the effects of the same transition.
	h.waitState(t, interaction.StateSpeaking)
	speak := h.waitCommand(t, protocol.CommandSpeak)
	if speak.Text != "You said schedule a call" {
		t.Fatalf("speak text = %q", speak.Text)
	}

	// Silencing mid-speech cancels the utterance and counts an interruption.
	h.control(protocol.ActionActivate)
	idle := h.waitState(t, interaction.StateIdle)
	if idle.Status != interaction.StatusSilenced {
		t.Fatalf("status = %q, want %q", idle.Status, interaction.StatusSilenced)
	}
	if c := h.waitCommand(t, protocol.CommandSpeechCancel); c.Op != speak.Op {
		t.Fatalf("cancel op = %q, want %q", c.Op, speak.Op)
	}
	h.inbound <- protocol.SpeechSignal{Type: protocol.TypeSpeechSignal, SessionID: h.sess.ID, Op: speak.Op, Kind: "end"}

	waitFor(t, "interruption recorded", func() bool {
		s, err := h.sessions.Get(h.sess.ID)
		return err == nil && s.InterruptionCount == 1
	})
	if snap, ok := h.orch.Snapshot(h.sess.ID); !ok || snap.State != interaction.StateIdle {
		t.Fatalf("Snapshot() = %+v, %v", snap, ok)
	}
}

func TestRunConnectionUnsupportedBrowserDisables(t *testing.T) {
	h := startHarness(t, ProviderRemote, echoAgent())
	h.hello(false, true)

	disabled := h.waitState(t, interaction.StateDisabled)
	if disabled.View.ControlEnabled {
		t.Fatalf("disabled control must be inert")
	}
	msg := h.next(t, "notification", func(m any) bool {
		_, ok := m.(protocol.Notification)
		return ok
	})
	if n := msg.(protocol.Notification); n.Title != "Browser Not Supported" || n.Variant != "error" {
		t.Fatalf("notification = %+v", n)
	}
}

func TestOrchestratorActivateAndClose(t *testing.T) {
	h := startHarness(t, ProviderMock, echoAgent())
	if _, err := h.orch.Activate(h.sess.ID); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("Activate() before hello error = %v, want ErrNoConnection", err)
	}

	h.hello(true, true)
	h.waitState(t, interaction.StateIdle)
	if got, _ := h.sessions.Get(h.sess.ID); !got.Connected {
		t.Fatalf("session should be marked connected while attached")
	}

	snap, err := h.orch.Activate(h.sess.ID)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if snap.State == interaction.StateIdle {
		t.Fatalf("Activate() should leave idle, got %+v", snap)
	}

	if !h.orch.Close(h.sess.ID) {
		t.Fatalf("Close() = false, want true")
	}
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("RunConnection() error = %v", err)
		}
		h.done <- nil
	case <-time.After(2 * time.Second):
		t.Fatalf("RunConnection did not stop after Close")
	}
	if h.orch.Close(h.sess.ID) {
		t.Fatalf("Close() after detach = true, want false")
	}
	if got, _ := h.sessions.Get(h.sess.ID); got.Connected {
		t.Fatalf("session should be released after detach")
	}
}

func TestRunConnectionRequiresHello(t *testing.T) {
	h := startHarness(t, ProviderRemote, echoAgent())
	h.control(protocol.ActionActivate)
	close(h.inbound)

	select {
	case err := <-h.done:
		if err == nil {
			t.Fatalf("RunConnection() without hello should fail")
		}
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatalf("RunConnection did not return")
	}
}
