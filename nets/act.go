package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
)

// ReLU zeroes negative values.
type ReLU struct {
	y *Tensor
}

// NewReLU returns a rectified linear activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

func (r *ReLU) Forward(x *Tensor) *Tensor {
	y := NewTensor(x.N, x.C, x.L)
	for i, v := range x.Data {
		if v > 0 {
			y.Data[i] = v
		}
	}
	r.y = y
	return y
}

func (r *ReLU) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(grad.N, grad.C, grad.L)
	for i, g := range grad.Data {
		if r.y.Data[i] > 0 {
			dx.Data[i] = g
		}
	}
	return dx
}

func (r *ReLU) Params() []*riser.Param { return nil }

// Dropout zeroes each value with probability P during training, scaling the
// survivors by 1/(1-P) so the expected activation is unchanged. In
// inference mode it is the identity.
type Dropout struct {
	P float64

	rng      *rand.Rand
	training bool
	mask     []bool
}

// NewDropout returns a dropout layer with drop probability p.
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{P: p, rng: rng}
}

func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

func (d *Dropout) Forward(x *Tensor) *Tensor {
	if !d.training || d.P <= 0 {
		d.mask = nil
		return x
	}

	y := NewTensor(x.N, x.C, x.L)
	d.mask = make([]bool, len(x.Data))
	scale := 1 / (1 - d.P)
	for i, v := range x.Data {
		if d.rng.Float64() >= d.P {
			d.mask[i] = true
			y.Data[i] = v * scale
		}
	}
	return y
}

func (d *Dropout) Backward(grad *Tensor) *Tensor {
	if d.mask == nil {
		return grad
	}

	dx := NewTensor(grad.N, grad.C, grad.L)
	scale := 1 / (1 - d.P)
	for i, g := range grad.Data {
		if d.mask[i] {
			dx.Data[i] = g * scale
		}
	}
	return dx
}

func (d *Dropout) Params() []*riser.Param { return nil }

// Chomp1d trims the rightmost values of the length dimension, undoing the
// extra padding a causal convolution adds.
type Chomp1d struct {
	Size int
}

// NewChomp1d returns a layer trimming size values from the right.
func NewChomp1d(size int) *Chomp1d {
	return &Chomp1d{Size: size}
}

func (c *Chomp1d) Forward(x *Tensor) *Tensor {
	lout := x.L - c.Size
	y := NewTensor(x.N, x.C, lout)
	for n := 0; n < x.N; n++ {
		for ch := 0; ch < x.C; ch++ {
			copy(y.row(n, ch), x.row(n, ch)[:lout])
		}
	}
	return y
}

func (c *Chomp1d) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(grad.N, grad.C, grad.L+c.Size)
	for n := 0; n < grad.N; n++ {
		for ch := 0; ch < grad.C; ch++ {
			copy(dx.row(n, ch), grad.row(n, ch))
		}
	}
	return dx
}

func (c *Chomp1d) Params() []*riser.Param { return nil }

// TakeLast keeps only the final timestep of each channel, producing
// (N, C, 1). The receptive field of the last value covers the whole input
// for the architectures that use this.
type TakeLast struct {
	inL int
}

// NewTakeLast returns a layer selecting the last timestep.
func NewTakeLast() *TakeLast {
	return &TakeLast{}
}

func (t *TakeLast) Forward(x *Tensor) *Tensor {
	t.inL = x.L
	y := NewTensor(x.N, x.C, 1)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			y.Set(n, c, 0, x.At(n, c, x.L-1))
		}
	}
	return y
}

func (t *TakeLast) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(grad.N, grad.C, t.inL)
	for n := 0; n < grad.N; n++ {
		for c := 0; c < grad.C; c++ {
			dx.Set(n, c, t.inL-1, grad.At(n, c, 0))
		}
	}
	return dx
}

func (t *TakeLast) Params() []*riser.Param { return nil }
