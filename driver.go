package riser

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// phase is the current stage of the run driver. One full cycle is completed
// per epoch: training, then validation, then checkpointing.
type phase int

const (
	phaseTraining phase = iota
	phaseValidating
	phaseCheckpointing
	phaseDone
)

// EpochMetrics holds the aggregated scalars of one completed epoch.
type EpochMetrics struct {
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	ValAccuracy float64
	TrainTime   time.Duration
	ValTime     time.Duration
}

// RunSummary reports the outcome of a full training run.
type RunSummary struct {
	// BestEpoch and BestAccuracy identify the strongest validation result
	// seen; BestAccuracy never decreases over the course of a run.
	BestEpoch    int
	BestAccuracy float64

	Epochs []EpochMetrics
}

// RunArgs configures a full training run.
type RunArgs struct {
	Train *CombinedStream
	Val   *CombinedStream

	Model Model
	Cost  CostFunction
	Opt   Optimizer

	// Epochs is the index past the last epoch to run; epochs are numbered
	// [StartEpoch, Epochs).
	Epochs int

	// StartEpoch is the first epoch to run. It must be 0 for a fresh run and
	// strictly positive when Resume is supplied.
	StartEpoch int

	// Resume is an optional parameter snapshot to restore before training.
	Resume State

	// Checkpoints persists the best and latest snapshots each epoch. Can be
	// nil to disable persistence.
	Checkpoints CheckpointStore

	// ExpID names the experiment; it prefixes checkpoint names.
	ExpID string

	// LogEvery is forwarded to TrainEpoch. Zero means the default.
	LogEvery int

	// Rec receives per-epoch scalars and training progress. Can be nil.
	Rec Recorder

	// Seed drives bucket-order shuffling.
	Seed int64

	// Logger can be nil, in which case slog.Default is used.
	Logger *slog.Logger
}

// Run drives a full training run: for each epoch it trains over the combined
// training stream, validates over the combined validation stream, then
// checkpoints: the "best" snapshot only on a strict validation-accuracy
// improvement, the "latest" snapshot unconditionally so an interrupted run
// can always resume from it.
func Run(args RunArgs) (RunSummary, error) {
	// handle error cases and set defaults
	{
		if args.Train == nil || args.Val == nil {
			return RunSummary{}, errors.Errorf("Train and Val streams must not be nil")
		}
		if args.Model == nil || args.Cost == nil || args.Opt == nil {
			return RunSummary{}, errors.Errorf("Model, Cost and Opt must not be nil")
		}

		if args.Resume != nil && args.StartEpoch <= 0 {
			return RunSummary{}, errors.Errorf("Resume snapshot given but start epoch is %d (must be > 0)", args.StartEpoch)
		}
		if args.Resume == nil && args.StartEpoch != 0 {
			return RunSummary{}, errors.Errorf("No resume snapshot but start epoch is %d (must be 0)", args.StartEpoch)
		}
		if args.Epochs <= args.StartEpoch {
			return RunSummary{}, errors.Errorf("Nothing to run: epochs (%d) <= start epoch (%d)", args.Epochs, args.StartEpoch)
		}

		if args.ExpID == "" {
			args.ExpID = "run"
		}
		if args.Logger == nil {
			args.Logger = slog.Default()
		}
	}

	if args.Resume != nil {
		if err := args.Model.SetState(args.Resume); err != nil {
			return RunSummary{}, errors.Wrapf(err, "Couldn't restore resume snapshot")
		}
	}

	bestName := fmt.Sprintf("%s_%d_best_model.json", args.ExpID, args.StartEpoch)
	latestName := fmt.Sprintf("%s_latest_model.json", args.ExpID)

	rng := rand.New(rand.NewSource(args.Seed))
	summary := RunSummary{}

	var em EpochMetrics
	epoch := args.StartEpoch
	current := phaseTraining

	for current != phaseDone {
		switch current {
		case phaseTraining:
			args.Logger.Info("epoch", "epoch", epoch)

			args.Train.Reset()
			start := time.Now()
			trainLoss, err := TrainEpoch(args.Train, args.Model, args.Cost, args.Opt, EpochOptions{
				Epoch:    epoch,
				LogEvery: args.LogEvery,
				Rec:      args.Rec,
				RNG:      rng,
				Logger:   args.Logger,
			})
			if err != nil {
				return summary, errors.Wrapf(err, "Training epoch %d failed", epoch)
			}

			em = EpochMetrics{
				Epoch:     epoch,
				TrainLoss: trainLoss,
				TrainTime: time.Since(start),
			}
			current = phaseValidating

		case phaseValidating:
			args.Val.Reset()
			start := time.Now()
			valLoss, valAcc, err := ValidateEpoch(args.Val, args.Model, args.Cost, EpochOptions{
				Epoch:  epoch,
				Logger: args.Logger,
			})
			if err != nil {
				return summary, errors.Wrapf(err, "Validation epoch %d failed", epoch)
			}

			em.ValLoss = valLoss
			em.ValAccuracy = valAcc
			em.ValTime = time.Since(start)
			current = phaseCheckpointing

		case phaseCheckpointing:
			if args.Rec != nil {
				args.Rec.RecordScalar("train_loss", em.TrainLoss, epoch)
				args.Rec.RecordScalar("val_loss", em.ValLoss, epoch)
				args.Rec.RecordScalar("val_acc", em.ValAccuracy, epoch)
				args.Rec.RecordScalar("train_t", em.TrainTime.Seconds(), epoch)
				args.Rec.RecordScalar("val_t", em.ValTime.Seconds(), epoch)
				args.Rec.RecordScalar("train - val loss", em.TrainLoss-em.ValLoss, epoch)
			}

			if em.ValAccuracy > summary.BestAccuracy {
				summary.BestAccuracy = em.ValAccuracy
				summary.BestEpoch = epoch
				if args.Checkpoints != nil {
					if err := args.Checkpoints.Save(bestName, args.Model.State()); err != nil {
						return summary, errors.Wrapf(err, "Couldn't save best snapshot at epoch %d", epoch)
					}
				}
				args.Logger.Info("saved best model", "epoch", epoch, "accuracy", summary.BestAccuracy)
			}

			if args.Checkpoints != nil {
				if err := args.Checkpoints.Save(latestName, args.Model.State()); err != nil {
					return summary, errors.Wrapf(err, "Couldn't save latest snapshot at epoch %d", epoch)
				}
			}
			args.Logger.Info("saved latest model", "epoch", epoch, "accuracy", em.ValAccuracy)

			summary.Epochs = append(summary.Epochs, em)

			epoch++
			if epoch >= args.Epochs {
				current = phaseDone
			} else {
				current = phaseTraining
			}
		}
	}

	args.Logger.Info("training complete",
		"best_epoch", summary.BestEpoch, "best_accuracy", summary.BestAccuracy)

	return summary, nil
}
