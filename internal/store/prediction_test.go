package store

import (
	"fmt"
	"testing"
	"time"
)

func TestPredictionRepository_InsertRecent(t *testing.T) {
	repo := newTestStore(t).Predictions()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p := &Prediction{
			Kind:       "static",
			Label:      fmt.Sprintf("L%d", i),
			Confidence: 0.7 + float64(i)/100,
			ProducedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Insert(p); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if p.ID == 0 {
			t.Error("Insert() should set the ID")
		}
	}

	got, err := repo.Recent(3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d rows", len(got))
	}
	for i, want := range []string{"L4", "L3", "L2"} {
		if got[i].Label != want {
			t.Errorf("row %d label = %q, want %q", i, got[i].Label, want)
		}
	}
	if !got[0].ProducedAt.Equal(base.Add(4 * time.Second)) {
		t.Errorf("ProducedAt = %v, want %v", got[0].ProducedAt, base.Add(4*time.Second))
	}
}

func TestPredictionRepository_RecentEmpty(t *testing.T) {
	got, err := newTestStore(t).Predictions().Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Recent() on empty history = %v, want empty slice", got)
	}
}

func TestPredictionRepository_Trim(t *testing.T) {
	repo := newTestStore(t).Predictions()

	for i := 0; i < 10; i++ {
		repo.Insert(&Prediction{Kind: "dynamic", Label: fmt.Sprintf("W%d", i), Confidence: 0.9, ProducedAt: time.Now()})
	}

	removed, err := repo.Trim(4)
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	if removed != 6 {
		t.Errorf("Trim() removed %d, want 6", removed)
	}
	if n, _ := repo.Count(); n != 4 {
		t.Errorf("Count() = %d, want 4", n)
	}

	got, _ := repo.Recent(10)
	if got[len(got)-1].Label != "W6" {
		t.Errorf("oldest kept = %q, want W6", got[len(got)-1].Label)
	}
}

func TestPredictionRepository_RejectsUnknownKind(t *testing.T) {
	repo := newTestStore(t).Predictions()
	if err := repo.Insert(&Prediction{Kind: "none", Label: "x", ProducedAt: time.Now()}); err == nil {
		t.Error("the kind check constraint should reject \"none\"")
	}
}
