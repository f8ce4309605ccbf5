package lbl

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/lbl/internal/tensor"
)

// Gradients holds dCost/dParam for every parameter of a Model, with the
// same shapes as the parameters.
type Gradients struct {
	R *mat.Dense
	Q *mat.Dense
	C []*mat.Dense
	B []float64
}

// sparseGrads is the backward pass result before the R gradient is
// scattered: only rows of R used by the batch receive gradient.
type sparseGrads struct {
	ids  [][]int      // per position word ids
	dctx []*mat.Dense // per position [N x Dim] gradient w.r.t. gathered rows
	dQ   *mat.Dense
	dC   []*mat.Dense
	dB   []float64
}

// backward derives the gradients of the mean negative log2-likelihood.
//
// With G = (P - onehot(y)) / (N ln 2):
//
//	dB     = sum_n G[n]
//	dQ     = G^T qhat
//	dqhat  = G Q
//	dC_i   = ctx_i^T dqhat
//	dctx_i = dqhat C_i^T, scattered into the rows x[:, i] of dR
func (m *Model) backward(a *activations, targets []int) *sparseGrads {
	n := len(targets)
	g := mat.DenseCopyOf(a.probs)
	for row, y := range targets {
		g.Set(row, y, g.At(row, y)-1)
	}
	g.Scale(1/(float64(n)*math.Ln2), g)

	out := &sparseGrads{
		ids:  a.ids,
		dctx: make([]*mat.Dense, m.ContextSize),
		dQ:   mat.NewDense(m.VocabSize, m.Dim, nil),
		dC:   make([]*mat.Dense, m.ContextSize),
		dB:   make([]float64, m.VocabSize),
	}
	for row := range n {
		floats.Add(out.dB, g.RawRowView(row))
	}
	out.dQ.Mul(g.T(), a.qhat)

	dqhat := mat.NewDense(n, m.Dim, nil)
	dqhat.Mul(g, m.Q)
	for i := range m.ContextSize {
		out.dC[i] = mat.NewDense(m.Dim, m.Dim, nil)
		out.dC[i].Mul(a.ctx[i].T(), dqhat)
		out.dctx[i] = mat.NewDense(n, m.Dim, nil)
		out.dctx[i].Mul(dqhat, m.C[i].T())
	}
	return out
}

func (s *sparseGrads) dense(vocabSize, dim int) *Gradients {
	dR := mat.NewDense(vocabSize, dim, nil)
	for i, ids := range s.ids {
		tensor.ScatterAdd(dR, s.dctx[i], ids)
	}
	return &Gradients{R: dR, Q: s.dQ, C: s.dC, B: s.dB}
}

// Gradients runs a forward and backward pass and returns the batch cost
// (mean negative log2-likelihood) with the gradient of every parameter.
func (m *Model) Gradients(contexts [][]int, targets []int) (float64, *Gradients, error) {
	a, err := m.forward(contexts)
	if err != nil {
		return 0, nil, err
	}
	if err := m.checkTargets(targets, len(contexts)); err != nil {
		return 0, nil, err
	}
	cost := a.nll(targets)
	return cost, m.backward(a, targets).dense(m.VocabSize, m.Dim), nil
}

// Step performs one gradient-descent update, param -= rate * gradient, on
// all four parameters and returns the batch cost measured before the
// update. Only the rows of R referenced by the batch are touched.
func (m *Model) Step(contexts [][]int, targets []int, rate float64) (float64, error) {
	a, err := m.forward(contexts)
	if err != nil {
		return 0, err
	}
	if err := m.checkTargets(targets, len(contexts)); err != nil {
		return 0, err
	}
	cost := a.nll(targets)
	g := m.backward(a, targets)

	for i, ids := range g.ids {
		g.dctx[i].Scale(-rate, g.dctx[i])
		tensor.ScatterAdd(m.R, g.dctx[i], ids)
	}
	tensor.AddScaled(m.Q, -rate, g.dQ)
	for i := range m.C {
		tensor.AddScaled(m.C[i], -rate, g.dC[i])
	}
	floats.AddScaled(m.B, -rate, g.dB)
	return cost, nil
}
