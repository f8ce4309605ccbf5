package logits

import "testing"

// TestSamplerDeterminism ensures that two samplers configured identically
// produce identical sequences from the same distribution.
func TestSamplerDeterminism(t *testing.T) {
	t.Parallel()

	probs := []float64{0.05, 0.1, 0.2, 0.25, 0.4}
	s1 := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9, TopK: 4, TopP: 0.95})
	s2 := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9, TopK: 4, TopP: 0.95})
	for i := range 20 {
		a, b := s1.Sample(probs), s2.Sample(probs)
		if a != b {
			t.Fatalf("draw %d: expected deterministic sample, got %d vs %d", i, a, b)
		}
	}
}

// TestSamplerGreedy checks that a non-positive temperature returns the most
// probable id.
func TestSamplerGreedy(t *testing.T) {
	t.Parallel()

	probs := []float64{0.1, 0.3, 0.2, 0.35, 0.05}
	s := NewSampler(SamplerConfig{Seed: 99, Temperature: 0})
	if idx := s.Sample(probs); idx != 3 {
		t.Fatalf("expected greedy index 3, got %d", idx)
	}
}

// TestSamplerExclude verifies excluded ids are never returned, in greedy and
// stochastic mode alike.
func TestSamplerExclude(t *testing.T) {
	t.Parallel()

	probs := []float64{0.9, 0.05, 0.05}
	greedy := NewSampler(SamplerConfig{Temperature: 0, Exclude: []int{0}})
	if idx := greedy.Sample(probs); idx != 1 {
		t.Fatalf("greedy with exclusion: got %d, want 1", idx)
	}

	s := NewSampler(SamplerConfig{Seed: 3, Temperature: 1, Exclude: []int{0}})
	for range 50 {
		if idx := s.Sample(probs); idx == 0 {
			t.Fatal("sampled an excluded id")
		}
	}
}

// TestSamplerTopP ensures that a small TopP restricts sampling to the most
// probable id when it alone covers the requested mass.
func TestSamplerTopP(t *testing.T) {
	t.Parallel()

	probs := []float64{0.96, 0.01, 0.01, 0.01, 0.01}
	s := NewSampler(SamplerConfig{Seed: 7, Temperature: 1.0, TopK: 5, TopP: 0.5})
	for range 10 {
		if idx := s.Sample(probs); idx != 0 {
			t.Fatalf("top-p sampling returned unexpected index %d", idx)
		}
	}
}

// TestSamplerTopK ensures only the k most probable ids can be drawn.
func TestSamplerTopK(t *testing.T) {
	t.Parallel()

	probs := []float64{0.3, 0.1, 0.35, 0.05, 0.2}
	s := NewSampler(SamplerConfig{Seed: 11, Temperature: 1.0, TopK: 2})
	for range 100 {
		idx := s.Sample(probs)
		if idx != 0 && idx != 2 {
			t.Fatalf("top-k sampling returned index %d outside the top 2", idx)
		}
	}
}

// TestSamplerMinP drops candidates far below the best one.
func TestSamplerMinP(t *testing.T) {
	t.Parallel()

	probs := []float64{0.7, 0.29, 0.01}
	s := NewSampler(SamplerConfig{Seed: 5, Temperature: 1.0, MinP: 0.1})
	for range 100 {
		if idx := s.Sample(probs); idx == 2 {
			t.Fatal("min-p sampling returned a filtered index")
		}
	}
}
