package riser

import (
	"log/slog"
	"math/rand"

	"github.com/pkg/errors"
)

// EpochOptions carries the optional knobs shared by TrainEpoch and
// ValidateEpoch.
type EpochOptions struct {
	// Epoch is the index of the current epoch, used for progress reporting.
	Epoch int

	// LogEvery is the number of processed batches between progress records.
	// Zero or negative means the default of 100.
	LogEvery int

	// Rec receives progress scalars. Can be nil.
	Rec Recorder

	// RNG drives the per-step shuffle of the bucket traversal order, so that
	// the model does not see the buckets in a fixed order. Required for
	// TrainEpoch; optional for ValidateEpoch, where traversal order carries
	// no training signal.
	RNG *rand.Rand

	// Logger receives human-readable progress lines. Nil means slog.Default.
	Logger *slog.Logger
}

func (o EpochOptions) withDefaults() EpochOptions {
	if o.LogEvery <= 0 {
		o.LogEvery = 100
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// TrainEpoch runs one training epoch over the combined stream: every outer
// step draws the next group of per-bucket batches, visits the available
// buckets in a freshly shuffled order, and performs one forward/backward/
// update cycle per batch. Exhausted buckets are skipped. The returned value
// is the sum of per-batch costs divided by the stream's static batch count,
// which equals the number of update steps actually performed.
//
// The stream must be freshly Reset; TrainEpoch drains it completely. Any
// failure inside the forward or backward pass aborts the epoch.
func TrainEpoch(stream *CombinedStream, m Model, cf CostFunction, opt Optimizer, o EpochOptions) (float64, error) {
	if stream == nil || m == nil || cf == nil || opt == nil {
		return 0, errors.Errorf("TrainEpoch requires a stream, model, cost function and optimizer")
	}
	if o.RNG == nil {
		return 0, errors.Errorf("TrainEpoch requires an RNG for bucket-order shuffling")
	}
	o = o.withDefaults()

	m.SetTraining(true)

	totalSamples := stream.Samples()
	totalBatches := stream.Batches()
	o.Logger.Info("training epoch", "epoch", o.Epoch, "samples", totalSamples, "batches", totalBatches)

	var totalLoss float64
	batchN := 0
	order := stream.Buckets()

	for {
		group, ok := stream.Next()
		if !ok {
			break
		}

		// Randomize the order the buckets are shown to the network.
		o.RNG.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for _, bucket := range order {
			b := group[bucket]
			if b == nil {
				continue
			}

			scores, err := m.Forward(b.Inputs)
			if err != nil {
				return 0, errors.Wrapf(err, "Forward pass failed on batch %d (bucket %s)", batchN, bucket)
			}

			loss, err := cf.Cost(scores, b.Labels)
			if err != nil {
				return 0, errors.Wrapf(err, "Cost failed on batch %d (bucket %s)", batchN, bucket)
			}
			totalLoss += loss

			grads, err := cf.Deriv(scores, b.Labels)
			if err != nil {
				return 0, errors.Wrapf(err, "Cost derivative failed on batch %d (bucket %s)", batchN, bucket)
			}

			opt.ZeroGrad()
			if err = m.Backward(grads); err != nil {
				return 0, errors.Wrapf(err, "Backward pass failed on batch %d (bucket %s)", batchN, bucket)
			}
			opt.Step()

			if batchN != 0 && batchN%o.LogEvery == 0 {
				sample := batchN * len(b.Inputs)
				avg := totalLoss / float64(batchN)
				o.Logger.Info("training progress",
					"epoch", o.Epoch, "loss", avg, "sample", sample, "samples", totalSamples)
				if o.Rec != nil {
					o.Rec.RecordScalar("training loss", avg, o.Epoch*totalSamples+sample)
				}
			}

			batchN++
		}
	}

	return totalLoss / float64(totalBatches), nil
}

// ValidateEpoch runs one evaluation epoch over the combined stream with the
// model in inference mode: no parameter updates, no gradients. In addition
// to the average cost it reports accuracy as a percentage, where a sample is
// correct when the argmax of its scores equals its label. Both averages use
// the stream's static totals as denominators.
func ValidateEpoch(stream *CombinedStream, m Model, cf CostFunction, o EpochOptions) (float64, float64, error) {
	if stream == nil || m == nil || cf == nil {
		return 0, 0, errors.Errorf("ValidateEpoch requires a stream, model and cost function")
	}
	o = o.withDefaults()

	m.SetTraining(false)

	totalSamples := stream.Samples()
	totalBatches := stream.Batches()

	var totalLoss float64
	nCorrect := 0
	order := stream.Buckets()

	for {
		group, ok := stream.Next()
		if !ok {
			break
		}

		if o.RNG != nil {
			o.RNG.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		for _, bucket := range order {
			b := group[bucket]
			if b == nil {
				continue
			}

			scores, err := m.Forward(b.Inputs)
			if err != nil {
				return 0, 0, errors.Wrapf(err, "Forward pass failed on validation batch (bucket %s)", bucket)
			}

			loss, err := cf.Cost(scores, b.Labels)
			if err != nil {
				return 0, 0, errors.Wrapf(err, "Cost failed on validation batch (bucket %s)", bucket)
			}
			totalLoss += loss

			for i, row := range scores {
				if Argmax(row) == b.Labels[i] {
					nCorrect++
				}
			}
		}
	}

	avgLoss := totalLoss / float64(totalBatches)
	acc := 100 * float64(nCorrect) / float64(totalSamples)

	o.Logger.Info("validation epoch", "epoch", o.Epoch, "accuracy", acc, "loss", avgLoss)

	return avgLoss, acc, nil
}

// Argmax returns the index of the largest value, or -1 for an empty slice.
// Ties go to the earliest index.
func Argmax(xs []float64) int {
	best := -1
	for i, x := range xs {
		if best == -1 || x > xs[best] {
			best = i
		}
	}
	return best
}
