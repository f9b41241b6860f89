package costfuncs

type mse int8

// MSE returns the mean squared error between class scores and the one-hot
// encoding of the labels, averaged over the batch.
func MSE() mse {
	return mse(0)
}

func (mse) Cost(scores [][]float64, labels []int) (float64, error) {
	if err := check(scores, labels); err != nil {
		return 0, err
	}

	var total float64
	for i, row := range scores {
		for j, x := range row {
			target := 0.0
			if j == labels[i] {
				target = 1.0
			}
			d := x - target
			total += d * d
		}
	}

	return total / float64(len(scores)), nil
}

func (mse) Deriv(scores [][]float64, labels []int) ([][]float64, error) {
	if err := check(scores, labels); err != nil {
		return nil, err
	}

	n := float64(len(scores))
	grads := make([][]float64, len(scores))
	for i, row := range scores {
		g := make([]float64, len(row))
		for j, x := range row {
			target := 0.0
			if j == labels[i] {
				target = 1.0
			}
			g[j] = 2 * (x - target) / n
		}
		grads[i] = g
	}

	return grads, nil
}
