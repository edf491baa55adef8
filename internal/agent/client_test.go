package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

func TestNewClientModes(t *testing.T) {
	c, err := NewClient(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewClient(auto) error = %v", err)
	}
	if _, ok := c.(*MockClient); !ok {
		t.Fatalf("auto without url = %T, want *MockClient", c)
	}

	c, err = NewClient(Config{Mode: "", HTTPURL: "http://localhost:9/agent"})
	if err != nil {
		t.Fatalf("NewClient(default) error = %v", err)
	}
	if _, ok := c.(*HTTPClient); !ok {
		t.Fatalf("auto with url = %T, want *HTTPClient", c)
	}
	if got := Describe(c); got != "http http://localhost:9/agent" {
		t.Fatalf("Describe() = %q", got)
	}

	if _, err := NewClient(Config{Mode: "http"}); err == nil {
		t.Fatalf("http mode without url should fail")
	}
	if _, err := NewClient(Config{Mode: "carrier-pigeon"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestMockClientRepliesWithEnvelope(t *testing.T) {
	raw, err := NewMockClient().Invoke(context.Background(), "turn on the lights")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	text, err := interaction.ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	if !strings.Contains(text, "I heard you: turn on the lights") {
		t.Fatalf("text = %q", text)
	}

	raw, err = NewMockClient().Invoke(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if _, err := interaction.ParseReply(raw); !errors.Is(err, interaction.ErrEmptyReply) {
		t.Fatalf("blank input should produce an empty reply, got %v", err)
	}
}

func TestMockClientCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockClient().Invoke(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestRemoteErrorIsMessageError(t *testing.T) {
	var err error = &RemoteError{Kind: KindApplication, Message: "nope"}
	var me interaction.MessageError
	if !errors.As(err, &me) || me.UserMessage() != "nope" {
		t.Fatalf("RemoteError should satisfy interaction.MessageError")
	}
}
