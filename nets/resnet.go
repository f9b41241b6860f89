package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/pkg/errors"
)

// NewResNet builds the residual classifier: a strided conv stem with max
// pooling, then one stage of residual blocks per configured width, then a
// global-average-pool + linear decoder. The first stage keeps stride 1;
// every later stage downsamples by 2 in its first block. Stem and block
// convolutions are reinitialised with the kaiming-normal scheme.
func NewResNet(c config.ResNetConfig, rng *rand.Rand) (riser.Model, error) {
	if c.NLayers < 1 || len(c.Channels) < c.NLayers || len(c.Blocks) < c.NLayers {
		return nil, errors.Errorf("resnet: need n_layers >= 1 with channels and blocks for each (%d, %d, %d)",
			c.NLayers, len(c.Channels), len(c.Blocks))
	}

	stemOut := c.Channels[0]
	layers := []Layer{
		NewConv1d(1, stemOut, c.Kernel, rng).Stride(c.Stride).Pad(c.Padding).KaimingNormal(rng),
		NewBatchNorm1d(stemOut),
		NewReLU(),
		NewMaxPool1d(2, 2, 1),
	}

	in := stemOut
	for i := 0; i < c.NLayers; i++ {
		stride := 2
		if i == 0 {
			stride = 1
		}
		out := c.Channels[i]

		// first block of the stage may downsample
		layers = append(layers, newStageBlock(c.Block, in, out, stride, rng))
		in = out
		for b := 1; b < c.Blocks[i]; b++ {
			layers = append(layers, newStageBlock(c.Block, in, out, 1, rng))
		}
	}

	layers = append(layers,
		NewGlobalAvgPool(),
		NewLinear(in, c.NClasses, rng),
	)

	return &network{kind: "resnet", seq: Seq(layers...)}, nil
}

func newStageBlock(kind string, in, out, stride int, rng *rand.Rand) Layer {
	if kind == "bottleneck" {
		return kaimingResidual(NewBottleneckBlock(in, out, 4, stride, rng), rng)
	}
	return kaimingResidual(NewBasicBlock(in, out, stride, rng), rng)
}

// kaimingResidual reinitialises every convolution inside a residual block.
func kaimingResidual(l Layer, rng *rand.Rand) Layer {
	r := l.(*residual)
	for _, seq := range []*Sequential{r.blocks, r.shortcut} {
		if seq == nil {
			continue
		}
		reinitConvs(seq, rng)
	}
	return r
}

func reinitConvs(s *Sequential, rng *rand.Rand) {
	for _, l := range s.layers {
		switch v := l.(type) {
		case *Conv1d:
			v.KaimingNormal(rng)
		case *Sequential:
			reinitConvs(v, rng)
		}
	}
}
