package costfuncs

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCrossEntropyUniformScores(t *testing.T) {
	// equal logits over k classes cost exactly ln(k)
	scores := [][]float64{
		{0, 0, 0},
		{5, 5, 5},
	}
	cost, err := CrossEntropy().Cost(scores, []int{0, 2})
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if !approx(cost, math.Log(3)) {
		t.Errorf("cost = %v, want ln(3) = %v", cost, math.Log(3))
	}
}

func TestCrossEntropyConfidentScores(t *testing.T) {
	// a very large margin toward the true class drives the cost to zero
	cost, err := CrossEntropy().Cost([][]float64{{50, 0}}, []int{0})
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost > 1e-9 {
		t.Errorf("cost = %v, want ~0 for a confident correct score", cost)
	}

	// the same margin toward the wrong class costs the full margin
	cost, err = CrossEntropy().Cost([][]float64{{50, 0}}, []int{1})
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if !approx(cost, 50) {
		t.Errorf("cost = %v, want ~50 for a confident wrong score", cost)
	}
}

func TestCrossEntropyStability(t *testing.T) {
	cost, err := CrossEntropy().Cost([][]float64{{1000, 999}}, []int{0})
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		t.Errorf("cost = %v with large logits, want a finite value", cost)
	}
}

func TestCrossEntropyDeriv(t *testing.T) {
	scores := [][]float64{
		{1, 2, 3},
		{0, 0, 0},
	}
	labels := []int{2, 1}

	grads, err := CrossEntropy().Deriv(scores, labels)
	if err != nil {
		t.Fatalf("Deriv: %v", err)
	}

	// each row of softmax - onehot sums to zero
	for i, g := range grads {
		var sum float64
		for _, x := range g {
			sum += x
		}
		if !approx(sum, 0) {
			t.Errorf("row %d gradient sums to %v, want 0", i, sum)
		}
		if g[labels[i]] >= 0 {
			t.Errorf("row %d gradient at the true class is %v, want < 0", i, g[labels[i]])
		}
	}

	// uniform row: softmax is 1/3 everywhere, divided by the batch size 2
	if !approx(grads[1][0], 1.0/6) || !approx(grads[1][1], (1.0/3-1)/2) {
		t.Errorf("uniform row gradient = %v", grads[1])
	}
}

func TestCrossEntropyDerivMatchesCost(t *testing.T) {
	// finite differences against the analytic gradient
	scores := [][]float64{{0.3, -1.2, 0.7}}
	labels := []int{1}
	cf := CrossEntropy()

	grads, err := cf.Deriv(scores, labels)
	if err != nil {
		t.Fatalf("Deriv: %v", err)
	}

	const h = 1e-6
	for j := range scores[0] {
		up := [][]float64{append([]float64(nil), scores[0]...)}
		up[0][j] += h
		down := [][]float64{append([]float64(nil), scores[0]...)}
		down[0][j] -= h

		cu, _ := cf.Cost(up, labels)
		cd, _ := cf.Cost(down, labels)
		numeric := (cu - cd) / (2 * h)

		if math.Abs(numeric-grads[0][j]) > 1e-5 {
			t.Errorf("class %d: numeric gradient %v vs analytic %v", j, numeric, grads[0][j])
		}
	}
}

func TestMSE(t *testing.T) {
	// scores (1,0) with label 0 are exact; with label 1 both classes miss by 1
	cost, err := MSE().Cost([][]float64{{1, 0}}, []int{0})
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if !approx(cost, 0) {
		t.Errorf("cost = %v, want 0", cost)
	}

	cost, err = MSE().Cost([][]float64{{1, 0}}, []int{1})
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if !approx(cost, 2) {
		t.Errorf("cost = %v, want 2", cost)
	}

	grads, err := MSE().Deriv([][]float64{{1, 0}, {0.5, 0.5}}, []int{1, 0})
	if err != nil {
		t.Fatalf("Deriv: %v", err)
	}
	want := [][]float64{{1, -1}, {-0.5, 0.5}}
	for i := range want {
		for j := range want[i] {
			if !approx(grads[i][j], want[i][j]) {
				t.Errorf("grads[%d][%d] = %v, want %v", i, j, grads[i][j], want[i][j])
			}
		}
	}
}

func TestArgumentChecks(t *testing.T) {
	if _, err := CrossEntropy().Cost(nil, nil); err == nil {
		t.Errorf("expected error for an empty batch")
	}
	if _, err := CrossEntropy().Cost([][]float64{{1, 2}}, []int{0, 1}); err == nil {
		t.Errorf("expected error for mismatched lengths")
	}
	if _, err := CrossEntropy().Cost([][]float64{{1, 2}}, []int{2}); err == nil {
		t.Errorf("expected error for an out-of-range label")
	}
	if _, err := MSE().Deriv([][]float64{{1, 2}}, []int{-1}); err == nil {
		t.Errorf("expected error for a negative label")
	}
}
