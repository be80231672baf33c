package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSampleRepository_Append(t *testing.T) {
	s := newTestStore(t)
	createSign(t, s.Signs(), "sign-a", "A", SignTypeStatic)
	repo := s.Samples()

	if err := repo.Append("sign-a", []json.RawMessage{json.RawMessage(`[1]`), json.RawMessage(`[2]`)}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := repo.Append("sign-a", []json.RawMessage{json.RawMessage(`[3]`)}); err != nil {
		t.Fatalf("second Append() error = %v", err)
	}

	samples, err := repo.GetBySignID("sign-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("GetBySignID() returned %d samples, want 3", len(samples))
	}
	for i, sample := range samples {
		if sample.SampleIndex != i {
			t.Errorf("sample %d has index %d", i, sample.SampleIndex)
		}
	}
	if string(samples[2].Data) != `[3]` {
		t.Errorf("last sample data = %s, want [3]", samples[2].Data)
	}

	sign, _ := s.Signs().GetByID("sign-a")
	if sign.Samples != 3 {
		t.Errorf("sign sample count = %d, want 3", sign.Samples)
	}
}

func TestSampleRepository_AppendMissingSign(t *testing.T) {
	repo := newTestStore(t).Samples()

	err := repo.Append("missing", []json.RawMessage{json.RawMessage(`{}`)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Append() error = %v, want ErrNotFound", err)
	}
}

func TestSampleRepository_DeleteBySignID(t *testing.T) {
	s := newTestStore(t)
	createSign(t, s.Signs(), "sign-a", "A", SignTypeStatic)
	repo := s.Samples()

	repo.Append("sign-a", []json.RawMessage{json.RawMessage(`[1]`)})
	if err := repo.DeleteBySignID("sign-a"); err != nil {
		t.Fatalf("DeleteBySignID() error = %v", err)
	}

	if samples, _ := repo.GetBySignID("sign-a"); len(samples) != 0 {
		t.Errorf("%d samples left", len(samples))
	}
	if sign, _ := s.Signs().GetByID("sign-a"); sign.Samples != 0 {
		t.Errorf("sample count = %d, want 0", sign.Samples)
	}
}
