// Package nets provides the network architectures used for signal
// classification - a plain convolutional net, a residual net, a temporal
// convolutional net and a convolutional-recurrent hybrid - together with the
// layer kit they are assembled from. Architectures are parameter-driven
// assemblies of layers; New dispatches on the configured model kind and
// returns a riser.Model.
package nets

// Tensor is a batch of channeled signals in channel-major layout: element
// (n, c, l) lives at Data[(n*C+c)*L+l]. Raw input signals enter the network
// as (N, 1, L).
type Tensor struct {
	Data    []float64
	N, C, L int
}

// NewTensor returns a zeroed (n, c, l) tensor.
func NewTensor(n, c, l int) *Tensor {
	return &Tensor{
		Data: make([]float64, n*c*l),
		N:    n,
		C:    c,
		L:    l,
	}
}

// At returns element (n, c, l).
func (t *Tensor) At(n, c, l int) float64 {
	return t.Data[(n*t.C+c)*t.L+l]
}

// Set assigns element (n, c, l).
func (t *Tensor) Set(n, c, l int, v float64) {
	t.Data[(n*t.C+c)*t.L+l] = v
}

// Add accumulates into element (n, c, l).
func (t *Tensor) Add(n, c, l int, v float64) {
	t.Data[(n*t.C+c)*t.L+l] += v
}

// row returns the length-L slice holding channel c of sample n.
func (t *Tensor) row(n, c int) []float64 {
	off := (n*t.C + c) * t.L
	return t.Data[off : off+t.L]
}
