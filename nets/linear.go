package nets

import (
	"math"
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/utils"
)

// Linear is a fully connected layer over the flattened (C, L) features of
// each sample, producing (N, Out, 1).
type Linear struct {
	In, Out int

	weight *riser.Param // (out, in)
	bias   *riser.Param

	x *Tensor
}

// NewLinear returns a fully connected layer with uniform init, the same
// fan-in bound the convolutions use.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:     in,
		Out:    out,
		weight: riser.NewParam(out * in),
		bias:   riser.NewParam(out),
	}

	bound := 1 / math.Sqrt(float64(in))
	uniformInit(l.weight.Data, bound, rng)
	uniformInit(l.bias.Data, bound, rng)

	return l
}

func (l *Linear) Forward(x *Tensor) *Tensor {
	l.x = x
	features := x.C * x.L
	y := NewTensor(x.N, l.Out, 1)
	w := l.weight.Data

	utils.MultiThread(0, x.N, func(n int) {
		in := x.Data[n*features : (n+1)*features]
		for o := 0; o < l.Out; o++ {
			sum := l.bias.Data[o]
			row := w[o*l.In : (o+1)*l.In]
			for i, v := range in {
				sum += row[i] * v
			}
			y.Set(n, o, 0, sum)
		}
	}, 1)

	return y
}

func (l *Linear) Backward(grad *Tensor) *Tensor {
	x := l.x
	features := x.C * x.L
	dx := NewTensor(x.N, x.C, x.L)
	w := l.weight.Data

	utils.MultiThread(0, x.N, func(n int) {
		out := dx.Data[n*features : (n+1)*features]
		for o := 0; o < l.Out; o++ {
			g := grad.At(n, o, 0)
			if g == 0 {
				continue
			}
			row := w[o*l.In : (o+1)*l.In]
			for i := range out {
				out[i] += row[i] * g
			}
		}
	}, 1)

	// weight and bias gradients, one claim per output unit
	utils.MultiThread(0, l.Out, func(o int) {
		grow := l.weight.Grad[o*l.In : (o+1)*l.In]
		for n := 0; n < x.N; n++ {
			g := grad.At(n, o, 0)
			if g == 0 {
				continue
			}
			l.bias.Grad[o] += g
			in := x.Data[n*features : (n+1)*features]
			for i, v := range in {
				grow[i] += g * v
			}
		}
	}, 1)

	return dx
}

func (l *Linear) Params() []*riser.Param {
	return []*riser.Param{l.weight, l.bias}
}
