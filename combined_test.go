package riser

import "testing"

func mustStream(t *testing.T, samples, batchSize int, label int) *SliceStream {
	t.Helper()
	inputs := make([][]float64, samples)
	labels := make([]int, samples)
	for i := range inputs {
		inputs[i] = []float64{float64(i)}
		labels[i] = label
	}
	s, err := NewSliceStream(inputs, labels, batchSize, false, 0)
	if err != nil {
		t.Fatalf("NewSliceStream: %v", err)
	}
	return s
}

func TestCombinedStreamStaticTotals(t *testing.T) {
	c, err := NewCombinedStream(map[string]SourceStream{
		"2s": mustStream(t, 10, 4, 0), // 3 batches
		"3s": mustStream(t, 8, 4, 0),  // 2 batches
		"4s": mustStream(t, 5, 4, 0),  // 2 batches
	})
	if err != nil {
		t.Fatalf("NewCombinedStream: %v", err)
	}

	if got := c.Samples(); got != 23 {
		t.Errorf("Samples() = %d, want 23", got)
	}
	if got := c.Batches(); got != 7 {
		t.Errorf("Batches() = %d, want 7", got)
	}

	want := []string{"2s", "3s", "4s"}
	got := c.Buckets()
	if len(got) != len(want) {
		t.Fatalf("Buckets() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Buckets()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCombinedStreamFairExhaustion(t *testing.T) {
	counts := map[string]int{"2s": 3, "3s": 5, "4s": 2}
	streams := make(map[string]SourceStream, len(counts))
	for bucket, n := range counts {
		streams[bucket] = mustStream(t, n, 1, 0)
	}
	c, err := NewCombinedStream(streams)
	if err != nil {
		t.Fatalf("NewCombinedStream: %v", err)
	}

	processed := map[string]int{}
	steps := 0
	for {
		group, ok := c.Next()
		if !ok {
			break
		}
		steps++
		for bucket, b := range group {
			if b != nil {
				processed[bucket]++
			}
		}
	}

	// the epoch runs until the longest bucket finishes
	if steps != 5 {
		t.Errorf("outer steps = %d, want 5", steps)
	}
	total := 0
	for bucket, want := range counts {
		if processed[bucket] != want {
			t.Errorf("bucket %q processed %d batches, want %d", bucket, processed[bucket], want)
		}
		total += processed[bucket]
	}
	if total != 10 {
		t.Errorf("total processed batches = %d, want 10", total)
	}
}

func TestCombinedStreamExhaustionSentinel(t *testing.T) {
	c, err := NewCombinedStream(map[string]SourceStream{
		"long":  mustStream(t, 5, 1, 0),
		"short": mustStream(t, 2, 1, 0),
	})
	if err != nil {
		t.Fatalf("NewCombinedStream: %v", err)
	}

	for step := 1; step <= 5; step++ {
		group, ok := c.Next()
		if !ok {
			t.Fatalf("stream exhausted early at step %d", step)
		}
		if group["long"] == nil {
			t.Errorf("step %d: long bucket yielded nil", step)
		}
		if step <= 2 && group["short"] == nil {
			t.Errorf("step %d: short bucket yielded nil before exhaustion", step)
		}
		if step > 2 && group["short"] != nil {
			t.Errorf("step %d: short bucket yielded a batch after exhaustion", step)
		}
	}

	if _, ok := c.Next(); ok {
		t.Errorf("stream not exhausted after the longest bucket drained")
	}
}

func TestCombinedStreamReset(t *testing.T) {
	c, err := NewCombinedStream(map[string]SourceStream{
		"2s": mustStream(t, 3, 2, 0),
	})
	if err != nil {
		t.Fatalf("NewCombinedStream: %v", err)
	}

	drain := func() int {
		n := 0
		for {
			group, ok := c.Next()
			if !ok {
				return n
			}
			if group["2s"] != nil {
				n++
			}
		}
	}

	if got := drain(); got != 2 {
		t.Fatalf("first epoch processed %d batches, want 2", got)
	}
	c.Reset()
	if got := drain(); got != 2 {
		t.Fatalf("second epoch processed %d batches, want 2", got)
	}
}

func TestCombinedStreamRejectsEmpty(t *testing.T) {
	if _, err := NewCombinedStream(nil); err == nil {
		t.Errorf("expected error for empty bucket set")
	}
	if _, err := NewCombinedStream(map[string]SourceStream{"2s": nil}); err == nil {
		t.Errorf("expected error for nil bucket stream")
	}
}
