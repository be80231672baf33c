package pipeline

import "testing"

func TestSmoother_Majority(t *testing.T) {
	s := NewSmoother(5)

	var got string
	for _, l := range []string{"A", "A", "B", "A", "B"} {
		got = s.Observe(l)
	}
	if got != "A" {
		t.Errorf("after A,A,B,A,B got %q, want A", got)
	}

	// Window is now A,B,A,B,B.
	if got := s.Observe("B"); got != "B" {
		t.Errorf("after another B got %q, want B", got)
	}
}

func TestSmoother_Sequence(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		labels []string
		want   []string
	}{
		{
			name:   "single label",
			size:   5,
			labels: []string{"C"},
			want:   []string{"C"},
		},
		{
			name:   "tie goes to most recent",
			size:   4,
			labels: []string{"A", "B"},
			want:   []string{"A", "B"},
		},
		{
			name:   "tie among older labels",
			size:   4,
			labels: []string{"A", "B", "B", "A"},
			want:   []string{"A", "B", "B", "A"},
		},
		{
			name:   "old labels fall out",
			size:   3,
			labels: []string{"A", "A", "A", "B", "B"},
			want:   []string{"A", "A", "A", "A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSmoother(tt.size)
			for i, l := range tt.labels {
				if got := s.Observe(l); got != tt.want[i] {
					t.Errorf("Observe(%q) #%d = %q, want %q", l, i, got, tt.want[i])
				}
			}
		})
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(0)
	s.Observe("A")
	s.Observe("A")
	s.Reset()

	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d", s.Len())
	}
	if got := s.Observe("B"); got != "B" {
		t.Errorf("Observe after Reset = %q, want B", got)
	}
}
