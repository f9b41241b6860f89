package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
)

// Layer is one differentiable stage of a network. Forward consumes the
// output of the previous stage; Backward consumes the cost gradient with
// respect to this stage's output, accumulates into the layer's Params, and
// returns the gradient with respect to its input. A layer may cache
// whatever it needs from its most recent Forward; the layers here assume a
// single execution lane, with Backward following the matching Forward.
type Layer interface {
	Forward(x *Tensor) *Tensor
	Backward(grad *Tensor) *Tensor
	Params() []*riser.Param
}

// modal is implemented by layers whose behaviour differs between training
// and inference (batch norm, dropout).
type modal interface {
	SetTraining(training bool)
}

// buffered is implemented by layers carrying non-learnable state that must
// survive a checkpoint round-trip (batch norm running statistics). The
// returned slices alias the live state.
type buffered interface {
	Buffers() [][]float64
}

// Sequential chains layers in order.
type Sequential struct {
	layers []Layer
}

// Seq builds a Sequential from the given layers.
func Seq(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Forward runs the layers front to back.
func (s *Sequential) Forward(x *Tensor) *Tensor {
	for _, l := range s.layers {
		x = l.Forward(x)
	}
	return x
}

// Backward runs the layers back to front.
func (s *Sequential) Backward(grad *Tensor) *Tensor {
	for i := len(s.layers) - 1; i >= 0; i-- {
		grad = s.layers[i].Backward(grad)
	}
	return grad
}

// Params returns the learnable parameters of all layers, in order.
func (s *Sequential) Params() []*riser.Param {
	var out []*riser.Param
	for _, l := range s.layers {
		out = append(out, l.Params()...)
	}
	return out
}

// SetTraining propagates the mode to every layer that distinguishes one.
func (s *Sequential) SetTraining(training bool) {
	for _, l := range s.layers {
		if m, ok := l.(modal); ok {
			m.SetTraining(training)
		}
	}
}

// Buffers returns the non-learnable state of all layers, in order.
func (s *Sequential) Buffers() [][]float64 {
	var out [][]float64
	for _, l := range s.layers {
		if b, ok := l.(buffered); ok {
			out = append(out, b.Buffers()...)
		}
	}
	return out
}

// uniformInit fills data with values drawn uniformly from (-bound, bound).
func uniformInit(data []float64, bound float64, rng *rand.Rand) {
	for i := range data {
		data[i] = (2*rng.Float64() - 1) * bound
	}
}
