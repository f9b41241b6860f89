package riser

import (
	"sort"

	"github.com/pkg/errors"
)

// CombinedStream is a parallel composition of named bucket streams under the
// max-size policy: each call to Next pulls one batch from every bucket that
// still has data, and the composition is only exhausted once every bucket
// is. A bucket that drains before its siblings yields nil for the remainder
// of the epoch.
//
// The bucket set is fixed at construction and visited in sorted order;
// callers that want a randomized traversal shuffle the result of Buckets
// themselves.
type CombinedStream struct {
	buckets []string
	streams map[string]SourceStream
	done    map[string]bool
}

// NewCombinedStream composes the given bucket streams. At least one bucket
// is required, and no stream may be nil.
func NewCombinedStream(streams map[string]SourceStream) (*CombinedStream, error) {
	if len(streams) == 0 {
		return nil, errors.Errorf("combined stream requires at least one bucket")
	}

	c := &CombinedStream{
		buckets: make([]string, 0, len(streams)),
		streams: make(map[string]SourceStream, len(streams)),
		done:    make(map[string]bool, len(streams)),
	}
	for bucket, s := range streams {
		if s == nil {
			return nil, errors.Errorf("stream for bucket %q is nil", bucket)
		}
		c.buckets = append(c.buckets, bucket)
		c.streams[bucket] = s
	}
	sort.Strings(c.buckets)

	return c, nil
}

// Buckets returns a copy of the bucket names, sorted.
func (c *CombinedStream) Buckets() []string {
	out := make([]string, len(c.buckets))
	copy(out, c.buckets)
	return out
}

// Samples returns the static sample total summed across all buckets.
func (c *CombinedStream) Samples() int {
	var n int
	for _, bucket := range c.buckets {
		n += c.streams[bucket].Samples()
	}
	return n
}

// Batches returns the static batch total summed across all buckets.
func (c *CombinedStream) Batches() int {
	var n int
	for _, bucket := range c.buckets {
		n += c.streams[bucket].Batches()
	}
	return n
}

// Next returns the next synchronized group of batches, keyed by bucket, with
// nil entries for buckets that have already drained. It returns false once
// every bucket is exhausted; the group map is nil in that case.
func (c *CombinedStream) Next() (map[string]*Batch, bool) {
	group := make(map[string]*Batch, len(c.buckets))
	any := false
	for _, bucket := range c.buckets {
		if c.done[bucket] {
			group[bucket] = nil
			continue
		}

		b, ok := c.streams[bucket].Next()
		if !ok {
			c.done[bucket] = true
			group[bucket] = nil
			continue
		}

		group[bucket] = &b
		any = true
	}

	if !any {
		return nil, false
	}
	return group, true
}

// Reset rewinds every bucket so a new epoch can begin.
func (c *CombinedStream) Reset() {
	for _, bucket := range c.buckets {
		c.streams[bucket].Reset()
		c.done[bucket] = false
	}
}
