package riser

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Batch is one minibatch of signals and their class labels. Inputs holds one
// signal per row; rows within a batch have equal length, but lengths may
// differ between batches from different buckets.
type Batch struct {
	Inputs [][]float64
	Labels []int
}

// SourceStream is a finite, restartable producer of batches with static
// counts known up front. Next returns false once the stream is exhausted for
// the current epoch; Reset rewinds it (reshuffling, if applicable) so a new
// epoch can begin. Samples and Batches report the fixed per-epoch totals and
// must not depend on iteration state.
type SourceStream interface {
	Next() (Batch, bool)
	Reset()
	Samples() int
	Batches() int
}

// SliceStream is an in-memory SourceStream over a signal matrix. Batches are
// cut in order from a per-epoch permutation when shuffling is enabled, so
// every sample appears exactly once per epoch. The final batch may be short.
type SliceStream struct {
	inputs    [][]float64
	labels    []int
	batchSize int
	shuffle   bool
	rng       *rand.Rand

	order []int
	pos   int
}

// NewSliceStream wraps the given signals and labels in a SliceStream. The
// seed only matters when shuffle is enabled.
func NewSliceStream(inputs [][]float64, labels []int, batchSize int, shuffle bool, seed int64) (*SliceStream, error) {
	if len(inputs) == 0 {
		return nil, errors.Errorf("stream has no data (len == 0)")
	} else if len(inputs) != len(labels) {
		return nil, errors.Errorf("len(inputs) != len(labels) (%d != %d)", len(inputs), len(labels))
	} else if batchSize < 1 {
		return nil, errors.Errorf("batch size must be >= 1 (%d)", batchSize)
	}

	s := &SliceStream{
		inputs:    inputs,
		labels:    labels,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, len(inputs)),
	}
	for i := range s.order {
		s.order[i] = i
	}
	s.Reset()

	return s, nil
}

// Samples returns the number of signals per epoch.
func (s *SliceStream) Samples() int {
	return len(s.inputs)
}

// Batches returns the number of batches per epoch.
func (s *SliceStream) Batches() int {
	return (len(s.inputs) + s.batchSize - 1) / s.batchSize
}

// Next returns the next batch, or false if the epoch is over.
func (s *SliceStream) Next() (Batch, bool) {
	if s.pos >= len(s.order) {
		return Batch{}, false
	}

	end := s.pos + s.batchSize
	if end > len(s.order) {
		end = len(s.order)
	}

	b := Batch{
		Inputs: make([][]float64, 0, end-s.pos),
		Labels: make([]int, 0, end-s.pos),
	}
	for _, i := range s.order[s.pos:end] {
		b.Inputs = append(b.Inputs, s.inputs[i])
		b.Labels = append(b.Labels, s.labels[i])
	}
	s.pos = end

	return b, true
}

// Reset rewinds the stream for a new epoch, drawing a fresh permutation if
// shuffling is enabled.
func (s *SliceStream) Reset() {
	s.pos = 0
	if s.shuffle {
		s.rng.Shuffle(len(s.order), func(i, j int) {
			s.order[i], s.order[j] = s.order[j], s.order[i]
		})
	}
}

// LoadSignals reads a JSON file holding an array of signal rows.
func LoadSignals(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Couldn't open signal file %q", path)
	}
	defer f.Close()

	var signals [][]float64
	dec := json.NewDecoder(f)
	if err = dec.Decode(&signals); err != nil {
		return nil, errors.Wrapf(err, "Couldn't decode signal file %q", path)
	}

	return signals, nil
}

// NewBucketStreams builds one stream per duration bucket for the given
// dataset split. Each bucket directory is expected to hold 'positive.json'
// and 'negative.json' (labels 1 and 0), following the layout
// <dataDir>/<bucket>/<split>/.
func NewBucketStreams(dataDir, split string, buckets []string, batchSize int, shuffle bool, seed int64) (map[string]SourceStream, error) {
	streams := make(map[string]SourceStream, len(buckets))
	for i, bucket := range buckets {
		dir := filepath.Join(dataDir, bucket, split)

		pos, err := LoadSignals(filepath.Join(dir, "positive.json"))
		if err != nil {
			return nil, errors.Wrapf(err, "Couldn't load positive signals for bucket %q", bucket)
		}
		neg, err := LoadSignals(filepath.Join(dir, "negative.json"))
		if err != nil {
			return nil, errors.Wrapf(err, "Couldn't load negative signals for bucket %q", bucket)
		}

		inputs := make([][]float64, 0, len(pos)+len(neg))
		labels := make([]int, 0, len(pos)+len(neg))
		for _, sig := range pos {
			inputs = append(inputs, sig)
			labels = append(labels, 1)
		}
		for _, sig := range neg {
			inputs = append(inputs, sig)
			labels = append(labels, 0)
		}

		s, err := NewSliceStream(inputs, labels, batchSize, shuffle, seed+int64(i))
		if err != nil {
			return nil, errors.Wrapf(err, "Couldn't build stream for bucket %q", bucket)
		}
		streams[bucket] = s
	}

	return streams, nil
}
