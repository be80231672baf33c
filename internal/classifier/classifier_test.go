package classifier

import (
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/capture"
)

func TestFuncAdapters(t *testing.T) {
	var s Static = StaticFunc(func(capture.Region) (Result, error) {
		return Result{Label: "A", Confidence: 0.9}, nil
	})
	var d Dynamic = DynamicFunc(func(regions []capture.Region) (Result, error) {
		return Result{Label: "HELLO", Confidence: float64(len(regions)) / 10}, nil
	})

	got, err := s.ClassifyStatic(capture.Region{})
	if err != nil || got.Label != "A" {
		t.Errorf("ClassifyStatic() = %+v, %v", got, err)
	}

	got, err = d.ClassifyDynamic(make([]capture.Region, 5))
	if err != nil || got.Label != "HELLO" || got.Confidence != 0.5 {
		t.Errorf("ClassifyDynamic() = %+v, %v", got, err)
	}
}

func TestMock(t *testing.T) {
	m := NewMock()

	if got, _ := m.ClassifyStatic(capture.Region{}); got != (Result{}) {
		t.Errorf("empty mock returned %+v", got)
	}

	m.QueueStatic(Result{Label: "A", Confidence: 0.8}, Result{Label: "B", Confidence: 0.9})
	want := []string{"A", "B", "B"}
	for i, label := range want {
		got, err := m.ClassifyStatic(capture.Region{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got.Label != label {
			t.Errorf("call %d: label %q, want %q", i, got.Label, label)
		}
	}

	m.QueueDynamic(Result{Label: "THANKS", Confidence: 0.7})
	if got, _ := m.ClassifyDynamic(make([]capture.Region, 30)); got.Label != "THANKS" {
		t.Errorf("ClassifyDynamic label = %q", got.Label)
	}
	if m.LastSequenceLen() != 30 {
		t.Errorf("LastSequenceLen() = %d, want 30", m.LastSequenceLen())
	}

	boom := errors.New("boom")
	m.SetError(boom)
	if _, err := m.ClassifyStatic(capture.Region{}); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}

	if m.StaticCalls() != 5 || m.DynamicCalls() != 1 {
		t.Errorf("calls static=%d dynamic=%d, want 5 and 1", m.StaticCalls(), m.DynamicCalls())
	}
}

var (
	_ Static  = (*Mock)(nil)
	_ Dynamic = (*Mock)(nil)
)
