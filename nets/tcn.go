package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/pkg/errors"
)

// NewTCN builds the temporal convolutional classifier: a stack of causal
// residual blocks with exponentially growing dilation, then a linear head
// over the last timestep, whose receptive field covers the whole input.
func NewTCN(c config.TCNConfig, rng *rand.Rand) (riser.Model, error) {
	if c.NLayers < 1 || c.NFilters < 1 || c.Kernel < 2 {
		return nil, errors.Errorf("tcn: need n_layers >= 1, n_filters >= 1, kernel >= 2 (%d, %d, %d)",
			c.NLayers, c.NFilters, c.Kernel)
	}

	inChannels := c.InChannels
	if inChannels == 0 {
		inChannels = 1
	}
	reduction := c.Reduction
	if reduction == 0 {
		reduction = 4
	}

	var layers []Layer
	for i := 0; i < c.NLayers; i++ {
		dilation := 1 << uint(i)
		in := c.NFilters
		if i == 0 {
			in = inChannels
		}
		layers = append(layers, NewTemporalBlock(
			in, c.NFilters, c.Kernel, dilation, (c.Kernel-1)*dilation, reduction, c.Dropout, rng))
	}

	layers = append(layers,
		NewTakeLast(),
		NewLinear(c.NFilters, c.NClasses, rng),
	)

	return &network{kind: "tcn", seq: Seq(layers...)}, nil
}

// ReceptiveField reports how many input values influence the last output
// timestep of a temporal network with the given kernel and depth.
func ReceptiveField(kernel, nLayers int) int {
	total := 1
	for i := 0; i < nLayers; i++ {
		total += 2 * (1 << uint(i)) * (kernel - 1)
	}
	return total
}
