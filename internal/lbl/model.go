// Package lbl implements the log-bilinear language model of Mnih and Teh
// (ICML 2012).
//
// Given the ids of the ContextSize preceding words, the model looks up their
// context embeddings r_i (rows of R), combines them into a predicted target
// representation
//
//	qhat = sum_i C_i^T r_i
//
// scores every vocabulary word w with s_w = q_w . qhat + b_w (q_w a row of Q)
// and normalises the scores with a softmax over the vocabulary.
package lbl

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/lbl/internal/tensor"
)

var (
	// ErrInvalidDims is returned for non-positive model dimensions.
	ErrInvalidDims = errors.New("lbl: invalid model dimensions")
	// ErrContextSize is returned when a context has the wrong number of ids.
	ErrContextSize = errors.New("lbl: context length does not match model")
	// ErrTokenRange is returned when a word id is outside the vocabulary.
	ErrTokenRange = errors.New("lbl: word id out of range")
	// ErrShapeMismatch is returned when predictions and labels differ in
	// shape.
	ErrShapeMismatch = errors.New("lbl: predictions and labels differ in shape")
	// ErrEmptyBatch is returned when a batch holds no instances.
	ErrEmptyBatch = errors.New("lbl: empty batch")
)

// Initialisation ranges.
const (
	embeddingInit = 0.01
	combineStdDev = 0.31622776601683794 // sqrt(0.1)
)

// Model holds the four learned parameters. It is not safe for concurrent
// mutation; concurrent reads (Forward, Rank) are fine once training is done.
type Model struct {
	VocabSize   int
	Dim         int
	ContextSize int

	R *mat.Dense   // [VocabSize x Dim] context word embeddings
	Q *mat.Dense   // [VocabSize x Dim] target word embeddings
	C []*mat.Dense // ContextSize x [Dim x Dim] position-specific combination weights
	B []float64    // [VocabSize] target word biases
}

// New allocates a randomly initialised model. R and Q are drawn from
// U(-0.01, 0.01); C and B from N(0, 0.1).
func New(vocabSize, dim, contextSize int, src rand.Source) (*Model, error) {
	if vocabSize <= 0 || dim <= 0 || contextSize <= 0 {
		return nil, fmt.Errorf("%w: vocab=%d dim=%d context=%d", ErrInvalidDims, vocabSize, dim, contextSize)
	}
	m := &Model{
		VocabSize:   vocabSize,
		Dim:         dim,
		ContextSize: contextSize,
	}
	m.R = tensor.NewUniform(vocabSize, dim, -embeddingInit, embeddingInit, src)
	m.Q = tensor.NewUniform(vocabSize, dim, -embeddingInit, embeddingInit, src)
	m.C = make([]*mat.Dense, contextSize)
	for i := range m.C {
		m.C[i] = tensor.NewNormal(dim, dim, 0, combineStdDev, src)
	}
	m.B = make([]float64, vocabSize)
	tensor.FillNormal(m.B, 0, combineStdDev, src)
	return m, nil
}

// NumParams returns the number of scalar parameters.
func (m *Model) NumParams() int {
	return 2*m.VocabSize*m.Dim + m.ContextSize*m.Dim*m.Dim + m.VocabSize
}

// activations caches the intermediate values of one forward pass for the
// backward pass.
type activations struct {
	ids   [][]int      // per position: word id of every batch row
	ctx   []*mat.Dense // per position: [N x Dim] gathered rows of R
	qhat  *mat.Dense   // [N x Dim]
	probs *mat.Dense   // [N x VocabSize]
	lse   []float64    // per row log-sum-exp of the scores
	score *mat.Dense   // [N x VocabSize] unnormalised scores
}

func (m *Model) checkContexts(contexts [][]int) error {
	if len(contexts) == 0 {
		return ErrEmptyBatch
	}
	for n, ctx := range contexts {
		if len(ctx) != m.ContextSize {
			return fmt.Errorf("%w: row %d has %d ids, want %d", ErrContextSize, n, len(ctx), m.ContextSize)
		}
		for _, id := range ctx {
			if id < 0 || id >= m.VocabSize {
				return fmt.Errorf("%w: %d (vocabulary size %d)", ErrTokenRange, id, m.VocabSize)
			}
		}
	}
	return nil
}

func (m *Model) checkTargets(targets []int, n int) error {
	if len(targets) != n {
		return fmt.Errorf("%w: %d contexts, %d targets", ErrShapeMismatch, n, len(targets))
	}
	for _, id := range targets {
		if id < 0 || id >= m.VocabSize {
			return fmt.Errorf("%w: %d (vocabulary size %d)", ErrTokenRange, id, m.VocabSize)
		}
	}
	return nil
}

func (m *Model) forward(contexts [][]int) (*activations, error) {
	if err := m.checkContexts(contexts); err != nil {
		return nil, err
	}
	n := len(contexts)
	a := &activations{
		ids:  make([][]int, m.ContextSize),
		ctx:  make([]*mat.Dense, m.ContextSize),
		qhat: mat.NewDense(n, m.Dim, nil),
	}

	// qhat[n] = sum_i C_i^T R[x[n,i]], computed as rows: ctx_i * C_i.
	var proj mat.Dense
	for i := range m.ContextSize {
		ids := make([]int, n)
		for row, ctx := range contexts {
			ids[row] = ctx[i]
		}
		a.ids[i] = ids
		a.ctx[i] = mat.NewDense(n, m.Dim, nil)
		tensor.Gather(a.ctx[i], m.R, ids)
		proj.Mul(a.ctx[i], m.C[i])
		a.qhat.Add(a.qhat, &proj)
	}

	a.score = mat.NewDense(n, m.VocabSize, nil)
	a.score.Mul(a.qhat, m.Q.T())
	a.probs = mat.NewDense(n, m.VocabSize, nil)
	a.lse = make([]float64, n)
	for row := range n {
		s := a.score.RawRowView(row)
		floats.Add(s, m.B)
		a.lse[row] = floats.LogSumExp(s)
		p := a.probs.RawRowView(row)
		for w, v := range s {
			p[w] = math.Exp(v - a.lse[row])
		}
	}
	return a, nil
}

// Forward returns the [len(contexts) x VocabSize] matrix of next-word
// probabilities. Every row sums to one.
func (m *Model) Forward(contexts [][]int) (*mat.Dense, error) {
	a, err := m.forward(contexts)
	if err != nil {
		return nil, err
	}
	return a.probs, nil
}

// Predict returns the most probable next word for every context.
func (m *Model) Predict(contexts [][]int) ([]int, error) {
	probs, err := m.Forward(contexts)
	if err != nil {
		return nil, err
	}
	return tensor.ArgmaxRows(probs), nil
}

// nll is the mean negative log2-probability of the targets.
func (a *activations) nll(targets []int) float64 {
	var sum float64
	for row, y := range targets {
		sum += a.lse[row] - a.score.At(row, y)
	}
	return sum / float64(len(targets)) / math.Ln2
}

// NegativeLogLikelihood returns -mean(log2 p(target | context)) over the
// batch, the cross-entropy in bits.
func (m *Model) NegativeLogLikelihood(contexts [][]int, targets []int) (float64, error) {
	a, err := m.forward(contexts)
	if err != nil {
		return 0, err
	}
	if err := m.checkTargets(targets, len(contexts)); err != nil {
		return 0, err
	}
	return a.nll(targets), nil
}

// Errors returns the fraction of contexts whose predicted word differs from
// the target.
func (m *Model) Errors(contexts [][]int, targets []int) (float64, error) {
	pred, err := m.Predict(contexts)
	if err != nil {
		return 0, err
	}
	return ErrorRate(pred, targets)
}

// Integer is the set of label element types accepted by ErrorRate.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ErrorRate returns the fraction of positions where pred and labels differ.
// Both slices must have the same length.
func ErrorRate[T Integer](pred, labels []T) (float64, error) {
	if len(pred) != len(labels) {
		return 0, fmt.Errorf("%w: %d predictions, %d labels", ErrShapeMismatch, len(pred), len(labels))
	}
	if len(pred) == 0 {
		return 0, nil
	}
	wrong := 0
	for i := range pred {
		if pred[i] != labels[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(len(pred)), nil
}

// Perplexity converts a mean negative log2-probability into perplexity.
func Perplexity(logp float64) float64 {
	return math.Pow(2, logp)
}
