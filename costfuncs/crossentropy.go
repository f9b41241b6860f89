// Package costfuncs provides the loss functions consumed by the training
// loops. All of them implement riser.CostFunction.
package costfuncs

import (
	"math"

	"github.com/pkg/errors"
)

type crossEntropy int8

// CrossEntropy returns the softmax cross-entropy cost over raw class scores
// and integer labels, averaged over the batch. Scores are logits; no softmax
// layer is needed in the network itself.
func CrossEntropy() crossEntropy {
	return crossEntropy(0)
}

func (crossEntropy) Cost(scores [][]float64, labels []int) (float64, error) {
	if err := check(scores, labels); err != nil {
		return 0, err
	}

	var total float64
	for i, row := range scores {
		total += logSumExp(row) - row[labels[i]]
	}

	return total / float64(len(scores)), nil
}

func (crossEntropy) Deriv(scores [][]float64, labels []int) ([][]float64, error) {
	if err := check(scores, labels); err != nil {
		return nil, err
	}

	n := float64(len(scores))
	grads := make([][]float64, len(scores))
	for i, row := range scores {
		g := softmax(row)
		g[labels[i]] -= 1
		for j := range g {
			g[j] /= n
		}
		grads[i] = g
	}

	return grads, nil
}

func check(scores [][]float64, labels []int) error {
	if len(scores) == 0 {
		return errors.Errorf("Can't get cost of empty batch")
	} else if len(scores) != len(labels) {
		return errors.Errorf("len(scores) != len(labels) (%d != %d)", len(scores), len(labels))
	}

	for i, row := range scores {
		if labels[i] < 0 || labels[i] >= len(row) {
			return errors.Errorf("label out of range at index %d (%d, %d classes)", i, labels[i], len(row))
		}
	}

	return nil
}

func logSumExp(xs []float64) float64 {
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}

	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - max)
	}

	return max + math.Log(sum)
}

func softmax(xs []float64) []float64 {
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}

	out := make([]float64, len(xs))
	var sum float64
	for i, x := range xs {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}

	return out
}
