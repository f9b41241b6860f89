package nets

import (
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/pkg/errors"
)

// New builds the model the configuration selects. Initialisation is
// deterministic for a given config seed.
func New(cfg *config.Config) (riser.Model, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	switch cfg.Model {
	case "cnn":
		return NewConvNet(cfg.CNN, rng)
	case "resnet":
		return NewResNet(cfg.ResNet, rng)
	case "tcn":
		return NewTCN(cfg.TCN, rng)
	case "cnn-rnn":
		return NewConvRecNet(cfg.CNNRNN, rng)
	}

	return nil, errors.Errorf("model %q is not supported - typo in config?", cfg.Model)
}
