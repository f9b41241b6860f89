package optimizers

import (
	"math"

	"github.com/charlesxu90/riser"
)

type adam struct {
	params []*riser.Param
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64

	m [][]float64
	v [][]float64
	t int
}

// Adam returns the Adam update rule with the standard defaults
// (β1 = 0.9, β2 = 0.999, ε = 1e-8).
func Adam(params []*riser.Param, learningRate float64) *adam {
	a := &adam{
		params: params,
		lr:     learningRate,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p.Data))
		a.v[i] = make([]float64, len(p.Data))
	}
	return a
}

// Betas overrides the moment decay rates. Returns the optimizer for
// chaining.
func (a *adam) Betas(beta1, beta2 float64) *adam {
	a.beta1, a.beta2 = beta1, beta2
	return a
}

func (a *adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

func (a *adam) Step() {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i, p := range a.params {
		m, v := a.m[i], a.v[i]
		for j, g := range p.Grad {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g

			mHat := m[j] / c1
			vHat := v[j] / c2
			p.Data[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
