package tray

import (
	"context"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/pipeline"
)

func TestLastSignTitle(t *testing.T) {
	tests := []struct {
		name   string
		record pipeline.Record
		want   string
	}{
		{name: "nothing yet", record: pipeline.Record{Label: pipeline.NoSign}, want: "Last: none"},
		{name: "letter", record: pipeline.Record{Kind: pipeline.KindStatic, Label: "A", Confidence: 0.823}, want: "Last: A (0.82)"},
		{name: "word", record: pipeline.Record{Kind: pipeline.KindDynamic, Label: "HELLO", Confidence: 0.9}, want: "Last: HELLO (0.90)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastSignTitle(tt.record.Snapshot()); got != tt.want {
				t.Errorf("LastSignTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New(true, pipeline.OverrideAuto)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("two toggles should leave the tray enabled")
	}
}

func TestTray_Mode(t *testing.T) {
	tr := New(true, pipeline.OverrideAuto)

	var picked pipeline.Override
	tr.OnMode(func(mode pipeline.Override) { picked = mode })
	tr.handleMode(pipeline.OverrideDynamic)

	if picked != pipeline.OverrideDynamic || tr.Mode() != pipeline.OverrideDynamic {
		t.Errorf("picked %v, tray mode %v; want dynamic", picked, tr.Mode())
	}
}

func TestTray_OpenWithoutCallback(t *testing.T) {
	// Must not panic.
	New(false, pipeline.OverrideAuto).handleOpen()
}

func TestTray_Watch(t *testing.T) {
	tr := New(true, pipeline.OverrideAuto)
	state := pipeline.NewState()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Watch(ctx, state)
	}()

	// Without a menu SetLastSign is a no-op; Watch still has to drain
	// updates and stop on cancel.
	state.Publish(pipeline.Record{Kind: pipeline.KindStatic, Label: "A", Confidence: 0.9})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
