package nets

import (
	"math"
	"math/rand"
	"testing"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
)

func signalBatch(n, l int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, l)
		for j := range out[i] {
			out[i][j] = rng.NormFloat64()
		}
	}
	return out
}

func archConfig(model string) *config.Config {
	return &config.Config{
		Model:        model,
		BatchSize:    4,
		LearningRate: 0.001,
		NEpochs:      1,
		Seed:         42,
		CNN: config.CNNConfig{
			Channels: []int{8, 16},
			Kernels:  []int{5, 3},
			NClasses: 2,
		},
		ResNet: config.ResNetConfig{
			Kernel:   7,
			Padding:  3,
			Stride:   2,
			Block:    "basic",
			NLayers:  2,
			Channels: []int{8, 16},
			Blocks:   []int{1, 1},
			NClasses: 2,
		},
		TCN: config.TCNConfig{
			NLayers:  2,
			NFilters: 8,
			Kernel:   3,
			NClasses: 2,
		},
		CNNRNN: config.CNNRNNConfig{
			LayerChannels: []int{8},
			LayerKernels:  []int{5},
			NRecLayers:    2,
			RecHiddenSize: 6,
			RecDropout:    0.1,
			NClasses:      2,
		},
	}
}

func TestArchitecturesForwardBackward(t *testing.T) {
	for _, kind := range []string{"cnn", "resnet", "tcn", "cnn-rnn"} {
		m, err := New(archConfig(kind))
		if err != nil {
			t.Fatalf("%s: New: %v", kind, err)
		}
		m.SetTraining(true)

		inputs := signalBatch(3, 64, 1)
		scores, err := m.Forward(inputs)
		if err != nil {
			t.Fatalf("%s: Forward: %v", kind, err)
		}
		if len(scores) != 3 {
			t.Fatalf("%s: %d score rows, want 3", kind, len(scores))
		}
		for i, row := range scores {
			if len(row) != 2 {
				t.Fatalf("%s: score row %d has %d classes, want 2", kind, i, len(row))
			}
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s: non-finite score %v", kind, v)
				}
			}
		}

		grads := [][]float64{{1, -1}, {0.5, -0.5}, {-1, 1}}
		if err := m.Backward(grads); err != nil {
			t.Fatalf("%s: Backward: %v", kind, err)
		}

		nonzero := false
		for _, p := range m.Parameters() {
			for _, g := range p.Grad {
				if g != 0 {
					nonzero = true
				}
			}
		}
		if !nonzero {
			t.Errorf("%s: backward pass left every gradient at zero", kind)
		}
	}
}

func TestArchitecturesHandleDifferentLengths(t *testing.T) {
	// a combined epoch feeds each model batches of several signal lengths
	for _, kind := range []string{"cnn", "resnet", "tcn", "cnn-rnn"} {
		m, err := New(archConfig(kind))
		if err != nil {
			t.Fatalf("%s: New: %v", kind, err)
		}
		for _, l := range []int{48, 64, 96} {
			if _, err := m.Forward(signalBatch(2, l, int64(l))); err != nil {
				t.Errorf("%s: Forward on length %d: %v", kind, l, err)
			}
		}
	}
}

func TestNewDeterministicForSeed(t *testing.T) {
	a, err := New(archConfig("cnn"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(archConfig("cnn"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	inputs := signalBatch(2, 32, 7)
	sa, err := a.Forward(inputs)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	sb, err := b.Forward(inputs)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	for i := range sa {
		for j := range sa[i] {
			if sa[i][j] != sb[i][j] {
				t.Fatalf("same seed produced different models")
			}
		}
	}
}

func TestNewUnknownModel(t *testing.T) {
	cfg := archConfig("cnn")
	cfg.Model = "transformer"
	if _, err := New(cfg); err == nil {
		t.Errorf("expected error for an unknown model kind")
	}
}

func TestStateRestoresExactOutputs(t *testing.T) {
	for _, kind := range []string{"cnn", "resnet", "tcn", "cnn-rnn"} {
		src, err := New(archConfig(kind))
		if err != nil {
			t.Fatalf("%s: New: %v", kind, err)
		}

		cfg := archConfig(kind)
		cfg.Seed = 1234
		dst, err := New(cfg)
		if err != nil {
			t.Fatalf("%s: New (different seed): %v", kind, err)
		}

		inputs := signalBatch(2, 64, 3)
		want, err := src.Forward(inputs)
		if err != nil {
			t.Fatalf("%s: Forward: %v", kind, err)
		}

		if err := dst.SetState(src.State()); err != nil {
			t.Fatalf("%s: SetState: %v", kind, err)
		}
		got, err := dst.Forward(inputs)
		if err != nil {
			t.Fatalf("%s: Forward after restore: %v", kind, err)
		}

		for i := range want {
			for j := range want[i] {
				if got[i][j] != want[i][j] {
					t.Fatalf("%s: restored model diverges at score [%d][%d]", kind, i, j)
				}
			}
		}
	}
}

func TestSetStateRejectsMismatch(t *testing.T) {
	m, err := New(archConfig("cnn"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.SetState(riser.State{{1, 2, 3}}); err == nil {
		t.Errorf("expected error for a snapshot with too few tensors")
	}

	s := m.State()
	s[0] = s[0][:len(s[0])-1]
	if err := m.SetState(s); err == nil {
		t.Errorf("expected error for a truncated tensor")
	}
}

func TestForwardRejectsBadBatches(t *testing.T) {
	m, err := New(archConfig("cnn"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := m.Forward(nil); err == nil {
		t.Errorf("expected error for an empty batch")
	}
	if _, err := m.Forward([][]float64{{}}); err == nil {
		t.Errorf("expected error for an empty signal")
	}
	if _, err := m.Forward([][]float64{{1, 2, 3}, {1, 2}}); err == nil {
		t.Errorf("expected error for a ragged batch")
	}
}

func TestBackwardRejectsMismatch(t *testing.T) {
	m, err := New(archConfig("cnn"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.Backward([][]float64{{1, 0}}); err == nil {
		t.Errorf("expected error for backward without forward")
	}

	if _, err := m.Forward(signalBatch(2, 32, 1)); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if err := m.Backward([][]float64{{1, 0}}); err == nil {
		t.Errorf("expected error for a gradient batch size mismatch")
	}
	if err := m.Backward([][]float64{{1}, {0}}); err == nil {
		t.Errorf("expected error for a gradient class count mismatch")
	}
}

func TestReceptiveField(t *testing.T) {
	cases := []struct {
		kernel, layers, want int
	}{
		{2, 1, 3},
		{3, 1, 5},
		{3, 2, 13},
		{8, 4, 211},
	}
	for _, c := range cases {
		if got := ReceptiveField(c.kernel, c.layers); got != c.want {
			t.Errorf("ReceptiveField(%d, %d) = %d, want %d", c.kernel, c.layers, got, c.want)
		}
	}
}
