package tensor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Softmax replaces x with exp(x) / sum(exp(x)), computed through
// log-sum-exp so large scores do not overflow.
func Softmax(x []float64) {
	if len(x) == 0 {
		return
	}
	lse := floats.LogSumExp(x)
	for i := range x {
		x[i] = math.Exp(x[i] - lse)
	}
}

// SoftmaxRows applies Softmax to every row of m in place.
func SoftmaxRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := range r {
		Softmax(m.RawRowView(i))
	}
}

// Argmax returns the index of the largest value; ties resolve to the lowest
// index.
func Argmax(x []float64) int {
	return floats.MaxIdx(x)
}

// ArgmaxRows returns the argmax of every row of m.
func ArgmaxRows(m *mat.Dense) []int {
	r, _ := m.Dims()
	out := make([]int, r)
	for i := range r {
		out[i] = Argmax(m.RawRowView(i))
	}
	return out
}

// TopK returns the indices of the k largest values of x in descending order.
// Equal values keep index order.
func TopK(x []float64, k int) []int {
	k = min(max(k, 0), len(x))
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return x[idx[a]] > x[idx[b]]
	})
	return idx[:k]
}
