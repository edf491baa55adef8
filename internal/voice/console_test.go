package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

func TestConsolePlatformSubmit(t *testing.T) {
	p := NewConsolePlatform(100, nil)
	if p.Submit("too early") {
		t.Fatalf("Submit() before any capture should report false")
	}

	c, err := p.NewCapture()
	if err != nil {
		t.Fatalf("NewCapture() error = %v", err)
	}
	if p.Submit("not listening") {
		t.Fatalf("Submit() while not listening should report false")
	}

	var log captureLog
	if err := c.Start(context.Background(), log.handle); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Start(context.Background(), log.handle); !errors.Is(err, interaction.ErrCaptureBusy) {
		t.Fatalf("second Start() error = %v, want ErrCaptureBusy", err)
	}
	if !p.Submit("  book a meeting ") {
		t.Fatalf("Submit() while listening should report true")
	}

	got := log.snapshot()
	if len(got) != 2 || got[0].Kind != interaction.CaptureSignalResult || got[0].Text != "book a meeting" {
		t.Fatalf("signals = %+v", got)
	}
}

func TestManualCaptureStopAndAbort(t *testing.T) {
	var c ManualCapture

	var stopped captureLog
	_ = c.Start(context.Background(), stopped.handle)
	_ = c.Stop()
	if got := stopped.snapshot(); len(got) != 1 || got[0].Kind != interaction.CaptureSignalEnd {
		t.Fatalf("Stop() signals = %+v", got)
	}

	var aborted captureLog
	_ = c.Start(context.Background(), aborted.handle)
	_ = c.Abort()
	if c.Submit("late") {
		t.Fatalf("Submit() after Abort() should report false")
	}
	if got := aborted.snapshot(); len(got) != 0 {
		t.Fatalf("Abort() signals = %+v", got)
	}
}

func TestManualCaptureBlankSubmitIsNoSpeech(t *testing.T) {
	var c ManualCapture
	var log captureLog
	_ = c.Start(context.Background(), log.handle)
	c.Submit("   ")
	got := log.snapshot()
	if len(got) != 2 || got[0].Error != interaction.CaptureNoSpeech {
		t.Fatalf("signals = %+v", got)
	}
}
