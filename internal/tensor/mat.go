package tensor

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewSource returns a deterministic random source for seed. Every parameter
// initialisation in a run draws from one source so a seed reproduces the
// whole model.
func NewSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
}

// FillUniform fills data with samples from U(lo, hi).
func FillUniform(data []float64, lo, hi float64, src rand.Source) {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: src}
	for i := range data {
		data[i] = dist.Rand()
	}
}

// FillNormal fills data with samples from N(mu, sigma^2).
func FillNormal(data []float64, mu, sigma float64, src rand.Source) {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	for i := range data {
		data[i] = dist.Rand()
	}
}

// NewUniform allocates an r x c matrix drawn from U(lo, hi).
func NewUniform(r, c int, lo, hi float64, src rand.Source) *mat.Dense {
	data := make([]float64, r*c)
	FillUniform(data, lo, hi, src)
	return mat.NewDense(r, c, data)
}

// NewNormal allocates an r x c matrix drawn from N(mu, sigma^2).
func NewNormal(r, c int, mu, sigma float64, src rand.Source) *mat.Dense {
	data := make([]float64, r*c)
	FillNormal(data, mu, sigma, src)
	return mat.NewDense(r, c, data)
}

// Gather copies src row rows[i] into dst row i. dst must have len(rows) rows
// and as many columns as src.
func Gather(dst, src *mat.Dense, rows []int) {
	for i, r := range rows {
		copy(dst.RawRowView(i), src.RawRowView(r))
	}
}

// ScatterAdd adds src row i into dst row rows[i]. Repeated row indices
// accumulate.
func ScatterAdd(dst, src *mat.Dense, rows []int) {
	for i, r := range rows {
		d := dst.RawRowView(r)
		for j, v := range src.RawRowView(i) {
			d[j] += v
		}
	}
}

// AddScaled performs dst += alpha * src element-wise. Both matrices must
// share a shape.
func AddScaled(dst *mat.Dense, alpha float64, src mat.Matrix) {
	var scaled mat.Dense
	scaled.Scale(alpha, src)
	dst.Add(dst, &scaled)
}
