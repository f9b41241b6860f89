// Package metrics provides scalar-metric sinks implementing riser.Recorder:
// an append-only CSV file for external analysis and an in-memory recorder
// for tests and summaries.
package metrics

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Point is one recorded scalar.
type Point struct {
	Name  string
	Value float64
	Step  int
}

// Memory buffers recorded scalars in process.
type Memory struct {
	mu     sync.Mutex
	points []Point
}

// RecordScalar appends the scalar to the buffer.
func (m *Memory) RecordScalar(name string, value float64, step int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, Point{Name: name, Value: value, Step: step})
}

// Points returns a copy of everything recorded so far.
func (m *Memory) Points() []Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Point(nil), m.points...)
}

// CSVRecorder appends scalars to a CSV file, one row per scalar, stamped
// with a run ID so several runs can share a file. Write failures are held
// until Close rather than interrupting training.
type CSVRecorder struct {
	mu    sync.Mutex
	f     *os.File
	w     *csv.Writer
	runID string
	err   error
}

// NewCSVRecorder opens (or creates) the file and writes a header when the
// file is new.
func NewCSVRecorder(path string) (*CSVRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "Couldn't open metrics file %q", path)
	}

	r := &CSVRecorder{
		f:     f,
		w:     csv.NewWriter(f),
		runID: uuid.NewString(),
	}

	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		r.write([]string{"run_id", "name", "value", "step"})
	}

	return r, nil
}

// RunID identifies this recorder's rows within the file.
func (r *CSVRecorder) RunID() string {
	return r.runID
}

// RecordScalar appends one row.
func (r *CSVRecorder) RecordScalar(name string, value float64, step int) {
	r.write([]string{
		r.runID,
		name,
		strconv.FormatFloat(value, 'g', -1, 64),
		strconv.Itoa(step),
	})
}

func (r *CSVRecorder) write(row []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.w.Write(row); err != nil {
		r.err = err
		return
	}
	r.w.Flush()
	r.err = r.w.Error()
}

// Close flushes and reports the first write error, if any.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.w.Flush()
	if r.err == nil {
		r.err = r.w.Error()
	}

	if err := r.f.Close(); err != nil && r.err == nil {
		r.err = err
	}

	return errors.Wrapf(r.err, "Couldn't finish metrics file")
}
