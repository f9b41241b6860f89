package nets

import (
	"math"
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/utils"
)

// Conv1d is a one-dimensional convolution over (N, C, L) tensors. Stride,
// padding and dilation default to 1, 0 and 1, and the bias is enabled by
// default; the chainable setters adjust them before first use.
type Conv1d struct {
	In, Out, Kernel           int
	stride, padding, dilation int

	weight *riser.Param // (out, in, kernel)
	bias   *riser.Param // nil when disabled

	x *Tensor
}

// NewConv1d returns a convolution with kaiming-uniform initialised weights.
func NewConv1d(in, out, kernel int, rng *rand.Rand) *Conv1d {
	c := &Conv1d{
		In:       in,
		Out:      out,
		Kernel:   kernel,
		stride:   1,
		padding:  0,
		dilation: 1,
		weight:   riser.NewParam(out * in * kernel),
		bias:     riser.NewParam(out),
	}

	bound := 1 / math.Sqrt(float64(in*kernel))
	uniformInit(c.weight.Data, bound, rng)
	uniformInit(c.bias.Data, bound, rng)

	return c
}

// Stride sets the stride. Returns the layer for chaining.
func (c *Conv1d) Stride(s int) *Conv1d {
	c.stride = s
	return c
}

// Pad sets the zero padding on both ends.
func (c *Conv1d) Pad(p int) *Conv1d {
	c.padding = p
	return c
}

// Dilate sets the dilation.
func (c *Conv1d) Dilate(d int) *Conv1d {
	c.dilation = d
	return c
}

// NoBias removes the bias term.
func (c *Conv1d) NoBias() *Conv1d {
	c.bias = nil
	return c
}

// KaimingNormal reinitialises the weights from N(0, 2/fanOut), the scheme
// the residual network uses for its ReLU stacks.
func (c *Conv1d) KaimingNormal(rng *rand.Rand) *Conv1d {
	std := math.Sqrt(2 / float64(c.Out*c.Kernel))
	for i := range c.weight.Data {
		c.weight.Data[i] = rng.NormFloat64() * std
	}
	return c
}

// NormalInit reinitialises the weights from N(0, std).
func (c *Conv1d) NormalInit(std float64, rng *rand.Rand) *Conv1d {
	for i := range c.weight.Data {
		c.weight.Data[i] = rng.NormFloat64() * std
	}
	return c
}

// OutLen gives the output length for an input of length l.
func (c *Conv1d) OutLen(l int) int {
	return (l+2*c.padding-c.dilation*(c.Kernel-1)-1)/c.stride + 1
}

func (c *Conv1d) Forward(x *Tensor) *Tensor {
	c.x = x
	lout := c.OutLen(x.L)
	y := NewTensor(x.N, c.Out, lout)
	w := c.weight.Data

	utils.MultiThread(0, x.N*c.Out, func(idx int) {
		n, oc := idx/c.Out, idx%c.Out
		out := y.row(n, oc)
		for ol := 0; ol < lout; ol++ {
			var sum float64
			if c.bias != nil {
				sum = c.bias.Data[oc]
			}
			base := ol*c.stride - c.padding
			for ic := 0; ic < c.In; ic++ {
				woff := (oc*c.In + ic) * c.Kernel
				in := x.row(n, ic)
				for k := 0; k < c.Kernel; k++ {
					il := base + k*c.dilation
					if il < 0 || il >= x.L {
						continue
					}
					sum += w[woff+k] * in[il]
				}
			}
			out[ol] = sum
		}
	}, 1)

	return y
}

func (c *Conv1d) Backward(grad *Tensor) *Tensor {
	x := c.x
	dx := NewTensor(x.N, x.C, x.L)
	w := c.weight.Data

	// input gradients, one goroutine claim per sample
	utils.MultiThread(0, x.N, func(n int) {
		for oc := 0; oc < c.Out; oc++ {
			g := grad.row(n, oc)
			for ol := 0; ol < grad.L; ol++ {
				if g[ol] == 0 {
					continue
				}
				base := ol*c.stride - c.padding
				for ic := 0; ic < c.In; ic++ {
					woff := (oc*c.In + ic) * c.Kernel
					din := dx.row(n, ic)
					for k := 0; k < c.Kernel; k++ {
						il := base + k*c.dilation
						if il < 0 || il >= x.L {
							continue
						}
						din[il] += w[woff+k] * g[ol]
					}
				}
			}
		}
	}, 1)

	// weight and bias gradients, one claim per output channel so no two
	// goroutines touch the same accumulator
	utils.MultiThread(0, c.Out, func(oc int) {
		for n := 0; n < x.N; n++ {
			g := grad.row(n, oc)
			for ol := 0; ol < grad.L; ol++ {
				if g[ol] == 0 {
					continue
				}
				if c.bias != nil {
					c.bias.Grad[oc] += g[ol]
				}
				base := ol*c.stride - c.padding
				for ic := 0; ic < c.In; ic++ {
					woff := (oc*c.In + ic) * c.Kernel
					in := x.row(n, ic)
					for k := 0; k < c.Kernel; k++ {
						il := base + k*c.dilation
						if il < 0 || il >= x.L {
							continue
						}
						c.weight.Grad[woff+k] += g[ol] * in[il]
					}
				}
			}
		}
	}, 1)

	return dx
}

func (c *Conv1d) Params() []*riser.Param {
	if c.bias == nil {
		return []*riser.Param{c.weight}
	}
	return []*riser.Param{c.weight, c.bias}
}
