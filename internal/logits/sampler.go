// Package logits draws next words from a model's output distribution.
package logits

import (
	"math"
	"math/rand/v2"
)

// SamplerConfig configures the behaviour of a Sampler.
type SamplerConfig struct {
	Seed        int64
	Temperature float64
	TopK        int
	TopP        float64
	MinP        float64
	// Exclude lists word ids that are never sampled (for example the
	// unknown-word and sentence-start markers).
	Exclude []int
}

// Sampler picks word ids from probability vectors. It is not safe for
// concurrent use.
type Sampler struct {
	rng     *rand.Rand
	cfg     SamplerConfig
	greedy  bool
	exclude map[int]struct{}
	topIdx  []int
	topVal  []float64
	prob    []float64
}

// NewSampler returns a new sampler with the provided configuration. A
// non-positive temperature selects greedy (argmax) decoding.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	exclude := make(map[int]struct{}, len(cfg.Exclude))
	for _, id := range cfg.Exclude {
		exclude[id] = struct{}{}
	}
	seed := uint64(cfg.Seed)
	return &Sampler{
		rng:     rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
		cfg:     cfg,
		greedy:  greedy,
		exclude: exclude,
	}
}

// Sample draws a single index from the probability vector probs:
//
//  1. Excluded ids are dropped.
//  2. In greedy mode the most probable remaining id is returned.
//  3. Otherwise log-probabilities are divided by the temperature and the k
//     most likely ids are kept.
//  4. The shortlist is renormalised, filtered by MinP relative to the best
//     candidate, and truncated once the cumulative mass reaches TopP.
//  5. A uniform draw selects an id from what remains.
func (s *Sampler) Sample(probs []float64) int {
	if s.greedy {
		return s.argmax(probs)
	}

	invTemp := 1 / s.cfg.Temperature
	k := min(s.cfg.TopK, len(probs))
	topIdx, topVal := s.topK(probs, k, invTemp)
	if len(topVal) == 0 {
		return s.argmax(probs)
	}

	maxv := topVal[0]
	if cap(s.prob) < len(topVal) {
		s.prob = make([]float64, len(topVal))
	}
	prob := s.prob[:len(topVal)]
	var sum float64
	for i := range topVal {
		e := math.Exp(topVal[i] - maxv)
		prob[i] = e
		sum += e
	}
	if sum == 0 {
		return topIdx[0]
	}
	for i := range prob {
		prob[i] /= sum
	}

	if s.cfg.MinP > 0 {
		threshold := prob[0] * s.cfg.MinP
		n := 0
		var kept float64
		for i := range prob {
			if prob[i] >= threshold {
				prob[n] = prob[i]
				topIdx[n] = topIdx[i]
				kept += prob[i]
				n++
			}
		}
		prob = prob[:n]
		for i := range prob {
			prob[i] /= kept
		}
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if c >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	r := s.rng.Float64()
	var mass float64
	for i := range cut {
		mass += prob[i]
	}
	r *= mass
	var c float64
	for i := range cut {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}
	return topIdx[cut-1]
}

func (s *Sampler) excluded(id int) bool {
	_, ok := s.exclude[id]
	return ok
}

// argmax returns the most probable id that is not excluded, or 0 when every
// id is excluded.
func (s *Sampler) argmax(x []float64) int {
	best := -1
	for i, v := range x {
		if s.excluded(i) {
			continue
		}
		if best < 0 || v > x[best] {
			best = i
		}
	}
	return max(best, 0)
}

// topK returns the indices and temperature-scaled log-probabilities of the k
// most probable non-excluded ids, largest first. O(V*K), fine for small K.
func (s *Sampler) topK(probs []float64, k int, invTemp float64) ([]int, []float64) {
	if k <= 0 {
		return nil, nil
	}
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float64, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, p := range probs {
		if p <= 0 || s.excluded(i) {
			continue
		}
		v := math.Log(p) * invTemp

		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)
		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}
