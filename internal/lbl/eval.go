package lbl

import (
	"math"

	"github.com/samcharles93/lbl/internal/dataset"
	"github.com/samcharles93/lbl/internal/tensor"
)

// Evaluate returns the mean negative log2-probability of every instance in
// set, processed in batches of batchSize. An empty set yields NaN.
func (m *Model) Evaluate(set *dataset.Set, batchSize int) (float64, error) {
	if set.Len() == 0 {
		return math.NaN(), nil
	}
	if batchSize <= 0 {
		batchSize = set.Len()
	}
	var total float64
	for b := range set.NumBatches(batchSize) {
		contexts, targets := set.Batch(b, batchSize)
		nll, err := m.NegativeLogLikelihood(contexts, targets)
		if err != nil {
			return 0, err
		}
		total += nll * float64(len(targets))
	}
	return total / float64(set.Len()), nil
}

// EvaluateErrors returns the classification error rate over set.
func (m *Model) EvaluateErrors(set *dataset.Set, batchSize int) (float64, error) {
	if set.Len() == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = set.Len()
	}
	var wrong float64
	for b := range set.NumBatches(batchSize) {
		contexts, targets := set.Batch(b, batchSize)
		rate, err := m.Errors(contexts, targets)
		if err != nil {
			return 0, err
		}
		wrong += rate * float64(len(targets))
	}
	return wrong / float64(set.Len()), nil
}

// Distribution returns p(w | context) for every vocabulary word.
func (m *Model) Distribution(context []int) ([]float64, error) {
	probs, err := m.Forward([][]int{context})
	if err != nil {
		return nil, err
	}
	return probs.RawRowView(0), nil
}

// Candidate is a ranked next-word prediction.
type Candidate struct {
	ID   int
	Prob float64
}

// Rank returns the k most probable next words for context, most probable
// first.
func (m *Model) Rank(context []int, k int) ([]Candidate, error) {
	dist, err := m.Distribution(context)
	if err != nil {
		return nil, err
	}
	top := tensor.TopK(dist, k)
	out := make([]Candidate, len(top))
	for i, id := range top {
		out[i] = Candidate{ID: id, Prob: dist[id]}
	}
	return out, nil
}
