// Package riser defines neural network architectures for classifying
// fixed-rate time-series signals (such as nanopore RNA squiggles) into
// discrete classes, and trains them with a combined-batch epoch loop that
// interleaves datasets of different signal durations.
//
// Training data is grouped into duration buckets ("2s", "3s", "4s", ...),
// each backed by its own finite batch stream. A CombinedStream composes the
// buckets under the max-size policy: one epoch runs until the longest bucket
// is drained, with exhausted buckets yielding nothing on later steps.
// TrainEpoch and ValidateEpoch consume a CombinedStream; Run drives full
// training runs with best/latest checkpointing.
//
// Network architectures live in the subpackage "nets", loss functions in
// "costfuncs", and optimizers in "optimizers".
package riser

// Param is a single learnable tensor, stored flat, together with the
// gradient accumulated by the most recent backward pass. Models expose their
// Params so that optimizers can update them in place.
type Param struct {
	Data []float64
	Grad []float64
}

// NewParam returns a zeroed Param holding n values.
func NewParam(n int) *Param {
	return &Param{
		Data: make([]float64, n),
		Grad: make([]float64, n),
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// State is an ordered snapshot of model parameters, one slice per Param. It
// round-trips exactly through SaveState and LoadState.
type State [][]float64

// Clone returns a deep copy of the snapshot.
func (s State) Clone() State {
	c := make(State, len(s))
	for i := range s {
		c[i] = make([]float64, len(s[i]))
		copy(c[i], s[i])
	}
	return c
}

// Model is a classifier over batches of signals. Forward maps a batch of
// signals to one row of class scores per signal. Backward propagates the
// cost gradient with respect to those scores, accumulating into the model's
// Params. SetTraining toggles between training behaviour (batch statistics,
// active dropout) and inference behaviour.
type Model interface {
	Forward(inputs [][]float64) ([][]float64, error)
	Backward(grads [][]float64) error
	Parameters() []*Param
	SetTraining(training bool)
	State() State
	SetState(s State) error
}

// CostFunction scores a batch of model outputs against integer class labels.
// Cost returns the mean cost over the batch; Deriv returns the gradient of
// that mean with respect to every score.
type CostFunction interface {
	Cost(scores [][]float64, labels []int) (float64, error)
	Deriv(scores [][]float64, labels []int) ([][]float64, error)
}

// Optimizer updates the parameters it was constructed with, using whatever
// gradients the model has accumulated since the last ZeroGrad.
type Optimizer interface {
	ZeroGrad()
	Step()
}

// Recorder is a sink for scalar metrics.
type Recorder interface {
	RecordScalar(name string, value float64, step int)
}

// CheckpointStore is a named, addressable location for parameter snapshots.
type CheckpointStore interface {
	Save(name string, s State) error
	Load(name string) (State, error)
}
