package nets

import (
	"github.com/charlesxu90/riser"
	"github.com/pkg/errors"
)

// network adapts a layer stack to riser.Model: raw signal batches in, class
// score rows out. All four architectures share this plumbing and differ
// only in the stack they assemble.
type network struct {
	kind string
	seq  *Sequential

	lastN, lastClasses int
}

func (m *network) Forward(inputs [][]float64) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, errors.Errorf("%s: can't run forward pass on an empty batch", m.kind)
	}
	length := len(inputs[0])
	if length == 0 {
		return nil, errors.Errorf("%s: signals must be non-empty", m.kind)
	}
	for i, row := range inputs {
		if len(row) != length {
			return nil, errors.Errorf("%s: ragged batch (signal %d has length %d, expected %d)",
				m.kind, i, len(row), length)
		}
	}

	x := NewTensor(len(inputs), 1, length)
	for n, row := range inputs {
		copy(x.row(n, 0), row)
	}

	y := m.seq.Forward(x)
	if y.L != 1 {
		return nil, errors.Errorf("%s: classifier head produced length %d, expected 1", m.kind, y.L)
	}

	scores := make([][]float64, y.N)
	for n := range scores {
		scores[n] = make([]float64, y.C)
		for c := 0; c < y.C; c++ {
			scores[n][c] = y.At(n, c, 0)
		}
	}

	m.lastN, m.lastClasses = y.N, y.C
	return scores, nil
}

func (m *network) Backward(grads [][]float64) error {
	if m.lastN == 0 {
		return errors.Errorf("%s: backward pass without a preceding forward pass", m.kind)
	}
	if len(grads) != m.lastN {
		return errors.Errorf("%s: gradient batch size %d does not match forward batch size %d",
			m.kind, len(grads), m.lastN)
	}

	g := NewTensor(m.lastN, m.lastClasses, 1)
	for n, row := range grads {
		if len(row) != m.lastClasses {
			return errors.Errorf("%s: gradient row %d has %d classes, expected %d",
				m.kind, n, len(row), m.lastClasses)
		}
		for c, v := range row {
			g.Set(n, c, 0, v)
		}
	}

	m.seq.Backward(g)
	return nil
}

func (m *network) Parameters() []*riser.Param {
	return m.seq.Params()
}

func (m *network) SetTraining(training bool) {
	m.seq.SetTraining(training)
}

// State snapshots every learnable parameter followed by every non-learnable
// buffer, in layer order.
func (m *network) State() riser.State {
	var s riser.State
	for _, p := range m.seq.Params() {
		s = append(s, append([]float64(nil), p.Data...))
	}
	for _, b := range m.seq.Buffers() {
		s = append(s, append([]float64(nil), b...))
	}
	return s
}

// SetState restores a snapshot taken from a model of identical
// architecture. Any shape mismatch is an error and nothing is restored.
func (m *network) SetState(s riser.State) error {
	params := m.seq.Params()
	buffers := m.seq.Buffers()
	if len(s) != len(params)+len(buffers) {
		return errors.Errorf("%s: snapshot has %d tensors, model has %d",
			m.kind, len(s), len(params)+len(buffers))
	}

	for i, p := range params {
		if len(s[i]) != len(p.Data) {
			return errors.Errorf("%s: snapshot tensor %d has %d values, parameter has %d",
				m.kind, i, len(s[i]), len(p.Data))
		}
	}
	for i, b := range buffers {
		if len(s[len(params)+i]) != len(b) {
			return errors.Errorf("%s: snapshot tensor %d has %d values, buffer has %d",
				m.kind, len(params)+i, len(s[len(params)+i]), len(b))
		}
	}

	for i, p := range params {
		copy(p.Data, s[i])
	}
	for i, b := range buffers {
		copy(b, s[len(params)+i])
	}

	return nil
}
