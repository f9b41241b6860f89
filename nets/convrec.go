package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/pkg/errors"
)

// NewConvRecNet builds the convolutional-recurrent hybrid: convolution and
// max-pool layers extract channel features, an LSTM stack consumes them as
// a sequence, and a linear head reads the hidden state of the final
// timestep. Dropout is applied between stacked recurrent layers when
// configured.
func NewConvRecNet(c config.CNNRNNConfig, rng *rand.Rand) (riser.Model, error) {
	if len(c.LayerChannels) == 0 || len(c.LayerChannels) != len(c.LayerKernels) {
		return nil, errors.Errorf("cnn-rnn: layer_channels and layer_kernels must be non-empty and equal length (%d, %d)",
			len(c.LayerChannels), len(c.LayerKernels))
	}
	if c.NRecLayers < 1 || c.RecHiddenSize < 1 {
		return nil, errors.Errorf("cnn-rnn: need n_rec_layers >= 1 and rec_hidden_size >= 1 (%d, %d)",
			c.NRecLayers, c.RecHiddenSize)
	}

	var layers []Layer
	in := 1
	for i, out := range c.LayerChannels {
		layers = append(layers,
			NewConv1d(in, out, c.LayerKernels[i], rng),
			NewMaxPool1d(2, 2, 0),
			NewReLU(),
		)
		in = out
	}

	for i := 0; i < c.NRecLayers; i++ {
		if i > 0 && c.RecDropout > 0 {
			layers = append(layers, NewDropout(c.RecDropout, rng))
		}
		layers = append(layers, NewLSTM(in, c.RecHiddenSize, rng))
		in = c.RecHiddenSize
	}

	layers = append(layers,
		NewTakeLast(),
		NewLinear(c.RecHiddenSize, c.NClasses, rng),
	)

	return &network{kind: "cnn-rnn", seq: Seq(layers...)}, nil
}
