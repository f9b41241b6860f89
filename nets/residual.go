package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
)

// residual wraps a block stack with a shortcut connection: the output is
// relu(blocks(x) + shortcut(x)), with an identity shortcut when the block
// preserves shape (nil shortcut).
type residual struct {
	blocks   *Sequential
	shortcut *Sequential

	y *Tensor // post-activation cache for the ReLU mask
}

func (r *residual) Forward(x *Tensor) *Tensor {
	res := x
	if r.shortcut != nil {
		res = r.shortcut.Forward(x)
	}

	out := r.blocks.Forward(x)
	y := NewTensor(out.N, out.C, out.L)
	for i := range out.Data {
		if v := out.Data[i] + res.Data[i]; v > 0 {
			y.Data[i] = v
		}
	}

	r.y = y
	return y
}

func (r *residual) Backward(grad *Tensor) *Tensor {
	dSum := NewTensor(grad.N, grad.C, grad.L)
	for i, g := range grad.Data {
		if r.y.Data[i] > 0 {
			dSum.Data[i] = g
		}
	}

	dx := r.blocks.Backward(dSum)
	if r.shortcut != nil {
		dRes := r.shortcut.Backward(dSum)
		for i := range dx.Data {
			dx.Data[i] += dRes.Data[i]
		}
	} else {
		for i := range dx.Data {
			dx.Data[i] += dSum.Data[i]
		}
	}

	return dx
}

func (r *residual) Params() []*riser.Param {
	out := r.blocks.Params()
	if r.shortcut != nil {
		out = append(out, r.shortcut.Params()...)
	}
	return out
}

func (r *residual) SetTraining(training bool) {
	r.blocks.SetTraining(training)
	if r.shortcut != nil {
		r.shortcut.SetTraining(training)
	}
}

func (r *residual) Buffers() [][]float64 {
	out := r.blocks.Buffers()
	if r.shortcut != nil {
		out = append(out, r.shortcut.Buffers()...)
	}
	return out
}

// convBNBlock is conv + batch norm, optionally activated. The last block of
// a residual stack stays unactivated so the block output and the residual
// can be summed first.
func convBNBlock(in, out, kernel, stride, padding int, last bool, rng *rand.Rand) *Sequential {
	layers := []Layer{
		NewConv1d(in, out, kernel, rng).Stride(stride).Pad(padding).NoBias(),
		NewBatchNorm1d(out),
	}
	if !last {
		layers = append(layers, NewReLU())
	}
	return Seq(layers...)
}

// NewBasicBlock is a two-convolution residual block. A projection shortcut
// (1x1 conv + batch norm) matches dimensions whenever the channel count or
// stride changes.
func NewBasicBlock(in, out, stride int, rng *rand.Rand) Layer {
	r := &residual{
		blocks: Seq(
			convBNBlock(in, out, 3, stride, 1, false, rng),
			convBNBlock(out, out, 3, 1, 1, true, rng),
		),
	}
	if in != out || stride != 1 {
		r.shortcut = Seq(
			NewConv1d(in, out, 1, rng).Stride(stride).NoBias(),
			NewBatchNorm1d(out),
		)
	}
	return r
}

// NewBottleneckBlock squeezes the channel count by the reduction factor
// around a strided 3x1 convolution, as in the torchvision residual nets.
func NewBottleneckBlock(in, out, reduction, stride int, rng *rand.Rand) Layer {
	mid := out / reduction
	r := &residual{
		blocks: Seq(
			convBNBlock(in, mid, 1, 1, 0, false, rng),
			convBNBlock(mid, mid, 3, stride, 1, false, rng), // downsample here
			convBNBlock(mid, out, 1, 1, 0, true, rng),
		),
	}
	if in != out || stride != 1 {
		r.shortcut = Seq(
			NewConv1d(in, out, 1, rng).Stride(stride).NoBias(),
			NewBatchNorm1d(out),
		)
	}
	return r
}

// NewTemporalBlock is the causal residual block of the temporal
// convolutional network: bottleneck 1x1 convolutions around two dilated
// causal convolutions, each chomped back to the input length. Convolution
// weights are drawn from N(0, 0.01).
func NewTemporalBlock(in, out, kernel, dilation, padding, reduction int, dropout float64, rng *rand.Rand) Layer {
	mid := out / reduction

	causal := func(in, out int) *Sequential {
		return Seq(
			NewConv1d(in, out, kernel, rng).Pad(padding).Dilate(dilation).NormalInit(0.01, rng),
			NewChomp1d(padding),
			NewReLU(),
			NewDropout(dropout, rng),
		)
	}
	pointwise := func(in, out int) *Sequential {
		return Seq(
			NewConv1d(in, out, 1, rng).NormalInit(0.01, rng),
			NewReLU(),
		)
	}

	r := &residual{
		blocks: Seq(
			pointwise(in, mid),
			causal(mid, mid),
			causal(mid, mid),
			pointwise(mid, out),
		),
	}
	if in != out {
		r.shortcut = Seq(NewConv1d(in, out, 1, rng).NormalInit(0.01, rng))
	}
	return r
}
