// Package optimizers provides the gradient-based parameter update rules
// used by the training loop. All of them implement riser.Optimizer over a
// fixed set of riser.Params.
package optimizers

import "github.com/charlesxu90/riser"

type sgd struct {
	params []*riser.Param
	lr     float64
}

// SGD returns plain stochastic gradient descent over the given parameters.
func SGD(params []*riser.Param, learningRate float64) *sgd {
	return &sgd{params: params, lr: learningRate}
}

func (s *sgd) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

func (s *sgd) Step() {
	for _, p := range s.params {
		for i, g := range p.Grad {
			p.Data[i] -= s.lr * g
		}
	}
}
