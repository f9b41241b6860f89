package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/pkg/errors"
)

// NewConvNet builds the plain convolutional classifier: a stack of
// conv / batch norm / ReLU / max-pool layers followed by a global average
// pool and a linear head. The first layer takes the raw one-channel signal;
// later layers take the previous layer's channel outputs.
func NewConvNet(c config.CNNConfig, rng *rand.Rand) (riser.Model, error) {
	if len(c.Channels) == 0 || len(c.Channels) != len(c.Kernels) {
		return nil, errors.Errorf("cnn: channels and kernels must be non-empty and equal length (%d, %d)",
			len(c.Channels), len(c.Kernels))
	}

	var layers []Layer
	in := 1
	for i, out := range c.Channels {
		layers = append(layers,
			NewConv1d(in, out, c.Kernels[i], rng),
			NewBatchNorm1d(out),
			NewReLU(),
			NewMaxPool1d(2, 2, 0),
		)
		in = out
	}

	layers = append(layers,
		NewGlobalAvgPool(),
		NewLinear(in, c.NClasses, rng),
	)

	return &network{kind: "cnn", seq: Seq(layers...)}, nil
}
