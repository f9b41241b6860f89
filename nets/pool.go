package nets

import (
	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/utils"
)

// MaxPool1d takes the maximum over sliding windows. Padding positions never
// win a window that also covers real input.
type MaxPool1d struct {
	Kernel, Stride, Padding int

	argmax        []int
	inN, inC, inL int
}

// NewMaxPool1d returns max pooling with the given window and stride.
func NewMaxPool1d(kernel, stride, padding int) *MaxPool1d {
	return &MaxPool1d{Kernel: kernel, Stride: stride, Padding: padding}
}

// OutLen gives the output length for an input of length l.
func (p *MaxPool1d) OutLen(l int) int {
	return (l+2*p.Padding-p.Kernel)/p.Stride + 1
}

func (p *MaxPool1d) Forward(x *Tensor) *Tensor {
	lout := p.OutLen(x.L)
	y := NewTensor(x.N, x.C, lout)
	p.argmax = make([]int, x.N*x.C*lout)
	p.inN, p.inC, p.inL = x.N, x.C, x.L

	utils.MultiThread(0, x.N*x.C, func(idx int) {
		n, c := idx/x.C, idx%x.C
		in, out := x.row(n, c), y.row(n, c)
		amax := p.argmax[idx*lout : (idx+1)*lout]
		for ol := 0; ol < lout; ol++ {
			base := ol*p.Stride - p.Padding
			best := -1
			for k := 0; k < p.Kernel; k++ {
				il := base + k
				if il < 0 || il >= x.L {
					continue
				}
				if best == -1 || in[il] > in[best] {
					best = il
				}
			}
			amax[ol] = best
			if best >= 0 {
				out[ol] = in[best]
			}
		}
	}, 1)

	return y
}

func (p *MaxPool1d) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(p.inN, p.inC, p.inL)

	utils.MultiThread(0, grad.N*grad.C, func(idx int) {
		n, c := idx/grad.C, idx%grad.C
		g := grad.row(n, c)
		out := dx.row(n, c)
		amax := p.argmax[idx*grad.L : (idx+1)*grad.L]
		for ol, il := range amax {
			if il >= 0 {
				out[il] += g[ol]
			}
		}
	}, 1)

	return dx
}

func (p *MaxPool1d) Params() []*riser.Param { return nil }

// GlobalAvgPool collapses each channel to its mean, producing (N, C, 1). It
// is the adaptive-average-pool-to-one used by the classifier heads.
type GlobalAvgPool struct {
	inL int
}

// NewGlobalAvgPool returns a pool that averages the whole length dimension.
func NewGlobalAvgPool() *GlobalAvgPool {
	return &GlobalAvgPool{}
}

func (p *GlobalAvgPool) Forward(x *Tensor) *Tensor {
	p.inL = x.L
	y := NewTensor(x.N, x.C, 1)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			var sum float64
			for _, v := range x.row(n, c) {
				sum += v
			}
			y.Set(n, c, 0, sum/float64(x.L))
		}
	}
	return y
}

func (p *GlobalAvgPool) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(grad.N, grad.C, p.inL)
	for n := 0; n < grad.N; n++ {
		for c := 0; c < grad.C; c++ {
			g := grad.At(n, c, 0) / float64(p.inL)
			out := dx.row(n, c)
			for l := range out {
				out[l] = g
			}
		}
	}
	return dx
}

func (p *GlobalAvgPool) Params() []*riser.Param { return nil }
