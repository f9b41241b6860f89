package nets

import (
	"math"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/utils"
)

// BatchNorm1d normalises each channel over the batch and length dimensions.
// In training mode it uses the batch statistics and maintains running
// estimates with momentum 0.1; in inference mode it uses the running
// estimates. Gamma starts at 1 and beta at 0.
type BatchNorm1d struct {
	C        int
	gamma    *riser.Param
	beta     *riser.Param
	momentum float64
	eps      float64
	training bool

	runningMean []float64
	runningVar  []float64

	// caches from the last training-mode Forward
	x      *Tensor
	mean   []float64
	invStd []float64
}

// NewBatchNorm1d returns batch normalisation over c channels.
func NewBatchNorm1d(c int) *BatchNorm1d {
	b := &BatchNorm1d{
		C:           c,
		gamma:       riser.NewParam(c),
		beta:        riser.NewParam(c),
		momentum:    0.1,
		eps:         1e-5,
		runningMean: make([]float64, c),
		runningVar:  make([]float64, c),
		mean:        make([]float64, c),
		invStd:      make([]float64, c),
	}
	for i := 0; i < c; i++ {
		b.gamma.Data[i] = 1
		b.runningVar[i] = 1
	}
	return b
}

func (b *BatchNorm1d) SetTraining(training bool) {
	b.training = training
}

func (b *BatchNorm1d) Forward(x *Tensor) *Tensor {
	y := NewTensor(x.N, x.C, x.L)
	m := float64(x.N * x.L)

	if !b.training {
		utils.MultiThread(0, x.C, func(c int) {
			scale := b.gamma.Data[c] / math.Sqrt(b.runningVar[c]+b.eps)
			shift := b.beta.Data[c] - scale*b.runningMean[c]
			for n := 0; n < x.N; n++ {
				in, out := x.row(n, c), y.row(n, c)
				for l := range in {
					out[l] = scale*in[l] + shift
				}
			}
		}, 1)
		return y
	}

	b.x = x
	utils.MultiThread(0, x.C, func(c int) {
		var sum float64
		for n := 0; n < x.N; n++ {
			for _, v := range x.row(n, c) {
				sum += v
			}
		}
		mean := sum / m

		var varSum float64
		for n := 0; n < x.N; n++ {
			for _, v := range x.row(n, c) {
				d := v - mean
				varSum += d * d
			}
		}
		variance := varSum / m

		b.mean[c] = mean
		b.invStd[c] = 1 / math.Sqrt(variance+b.eps)

		// running variance uses the unbiased estimate
		unbiased := variance
		if m > 1 {
			unbiased = varSum / (m - 1)
		}
		b.runningMean[c] = (1-b.momentum)*b.runningMean[c] + b.momentum*mean
		b.runningVar[c] = (1-b.momentum)*b.runningVar[c] + b.momentum*unbiased

		for n := 0; n < x.N; n++ {
			in, out := x.row(n, c), y.row(n, c)
			for l := range in {
				out[l] = b.gamma.Data[c]*(in[l]-mean)*b.invStd[c] + b.beta.Data[c]
			}
		}
	}, 1)

	return y
}

func (b *BatchNorm1d) Backward(grad *Tensor) *Tensor {
	x := b.x
	dx := NewTensor(x.N, x.C, x.L)
	m := float64(x.N * x.L)

	utils.MultiThread(0, x.C, func(c int) {
		mean, invStd := b.mean[c], b.invStd[c]

		// channel-wide sums of dy and dy*xhat
		var sumDy, sumDyXhat float64
		for n := 0; n < x.N; n++ {
			in, g := x.row(n, c), grad.row(n, c)
			for l := range g {
				xhat := (in[l] - mean) * invStd
				sumDy += g[l]
				sumDyXhat += g[l] * xhat
			}
		}

		b.gamma.Grad[c] += sumDyXhat
		b.beta.Grad[c] += sumDy

		scale := b.gamma.Data[c] * invStd
		for n := 0; n < x.N; n++ {
			in, g, out := x.row(n, c), grad.row(n, c), dx.row(n, c)
			for l := range g {
				xhat := (in[l] - mean) * invStd
				out[l] = scale * (g[l] - sumDy/m - xhat*sumDyXhat/m)
			}
		}
	}, 1)

	return dx
}

func (b *BatchNorm1d) Params() []*riser.Param {
	return []*riser.Param{b.gamma, b.beta}
}

func (b *BatchNorm1d) Buffers() [][]float64 {
	return [][]float64{b.runningMean, b.runningVar}
}
