// Package config loads and validates the YAML experiment configuration: the
// model kind, its architecture hyperparameters, and the training knobs.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level experiment configuration. Exactly one of the
// architecture sections is consulted, selected by Model.
type Config struct {
	Model        string  `yaml:"model"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	NEpochs      int     `yaml:"n_epochs"`
	Seed         int64   `yaml:"seed"`
	LogEvery     int     `yaml:"log_every"`

	// Buckets are the signal-duration groups combined during each epoch.
	Buckets []string `yaml:"buckets"`

	CNN    CNNConfig    `yaml:"cnn"`
	ResNet ResNetConfig `yaml:"resnet"`
	TCN    TCNConfig    `yaml:"tcn"`
	CNNRNN CNNRNNConfig `yaml:"cnn_rnn"`
}

// CNNConfig configures the plain convolutional network.
type CNNConfig struct {
	Channels []int `yaml:"channels"`
	Kernels  []int `yaml:"kernels"`
	NClasses int   `yaml:"n_classes"`
}

// ResNetConfig configures the residual network. Kernel, Padding and Stride
// describe the stem convolution; Channels and Blocks give the width and
// depth of each residual stage.
type ResNetConfig struct {
	Kernel   int    `yaml:"kernel"`
	Padding  int    `yaml:"padding"`
	Stride   int    `yaml:"stride"`
	Block    string `yaml:"block"` // "basic" or "bottleneck"
	NLayers  int    `yaml:"n_layers"`
	Channels []int  `yaml:"channels"`
	Blocks   []int  `yaml:"blocks"`
	NClasses int    `yaml:"n_classes"`
}

// TCNConfig configures the temporal convolutional network.
type TCNConfig struct {
	InChannels int     `yaml:"in_channels"`
	NLayers    int     `yaml:"n_layers"`
	NFilters   int     `yaml:"n_filters"`
	Kernel     int     `yaml:"kernel"`
	Dropout    float64 `yaml:"dropout"`
	Reduction  int     `yaml:"reduction"`
	NClasses   int     `yaml:"n_classes"`
}

// CNNRNNConfig configures the convolutional-recurrent hybrid.
type CNNRNNConfig struct {
	LayerChannels []int   `yaml:"layer_channels"`
	LayerKernels  []int   `yaml:"layer_kernels"`
	NRecLayers    int     `yaml:"n_rec_layers"`
	RecHiddenSize int     `yaml:"rec_hidden_size"`
	RecDropout    float64 `yaml:"rec_dropout"`
	NClasses      int     `yaml:"n_classes"`
}

// Load reads and validates a Config from a YAML file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Couldn't read config file %q", path)
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "Couldn't parse config file %q", path)
	}

	if err = cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid config %q", path)
	}

	return cfg, nil
}

// Validate checks the training knobs and the section selected by Model.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.Errorf("batch_size must be >= 1 (%d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning_rate must be > 0 (%g)", c.LearningRate)
	}
	if c.NEpochs < 1 {
		return errors.Errorf("n_epochs must be >= 1 (%d)", c.NEpochs)
	}
	if len(c.Buckets) == 0 {
		c.Buckets = []string{"2s", "3s", "4s"}
	}

	switch c.Model {
	case "cnn":
		if len(c.CNN.Channels) == 0 || len(c.CNN.Channels) != len(c.CNN.Kernels) {
			return errors.Errorf("cnn: channels and kernels must be non-empty and equal length (%d, %d)",
				len(c.CNN.Channels), len(c.CNN.Kernels))
		}
		if c.CNN.NClasses < 2 {
			return errors.Errorf("cnn: n_classes must be >= 2 (%d)", c.CNN.NClasses)
		}
	case "resnet":
		r := c.ResNet
		if r.NLayers < 1 || len(r.Channels) < r.NLayers || len(r.Blocks) < r.NLayers {
			return errors.Errorf("resnet: need n_layers >= 1 with channels and blocks for each (%d, %d, %d)",
				r.NLayers, len(r.Channels), len(r.Blocks))
		}
		if r.Block != "basic" && r.Block != "bottleneck" {
			return errors.Errorf("resnet: block must be \"basic\" or \"bottleneck\" (%q)", r.Block)
		}
		if r.NClasses < 2 {
			return errors.Errorf("resnet: n_classes must be >= 2 (%d)", r.NClasses)
		}
	case "tcn":
		t := c.TCN
		if t.NLayers < 1 || t.NFilters < 1 || t.Kernel < 2 {
			return errors.Errorf("tcn: need n_layers >= 1, n_filters >= 1, kernel >= 2 (%d, %d, %d)",
				t.NLayers, t.NFilters, t.Kernel)
		}
		if t.NClasses < 2 {
			return errors.Errorf("tcn: n_classes must be >= 2 (%d)", t.NClasses)
		}
	case "cnn-rnn":
		r := c.CNNRNN
		if len(r.LayerChannels) == 0 || len(r.LayerChannels) != len(r.LayerKernels) {
			return errors.Errorf("cnn-rnn: layer_channels and layer_kernels must be non-empty and equal length (%d, %d)",
				len(r.LayerChannels), len(r.LayerKernels))
		}
		if r.NRecLayers < 1 || r.RecHiddenSize < 1 {
			return errors.Errorf("cnn-rnn: need n_rec_layers >= 1 and rec_hidden_size >= 1 (%d, %d)",
				r.NRecLayers, r.RecHiddenSize)
		}
		if r.NClasses < 2 {
			return errors.Errorf("cnn-rnn: n_classes must be >= 2 (%d)", r.NClasses)
		}
	default:
		return errors.Errorf("model %q is not supported - typo in config?", c.Model)
	}

	return nil
}
