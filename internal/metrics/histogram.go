package metrics

import (
	"slices"
	"sync"
	"time"
)

// Histogram keeps the most recent duration samples in a ring and answers
// percentile queries over them.
type Histogram struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

// NewHistogram creates a histogram holding at most size samples.
func NewHistogram(size int) *Histogram {
	if size <= 0 {
		size = 1000
	}
	return &Histogram{samples: make([]time.Duration, size)}
}

// Record adds a sample, overwriting the oldest one once the ring is full.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[h.next] = d
	h.next++
	if h.next == len(h.samples) {
		h.next = 0
		h.full = true
	}
}

func (h *Histogram) sorted() []time.Duration {
	h.mu.Lock()
	n := h.next
	if h.full {
		n = len(h.samples)
	}
	out := slices.Clone(h.samples[:n])
	h.mu.Unlock()
	slices.Sort(out)
	return out
}

// Percentile returns the nearest-rank sample for p in [0, 100], or 0 with no
// samples.
func (h *Histogram) Percentile(p float64) time.Duration {
	s := h.sorted()
	if len(s) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	return s[int(p/100*float64(len(s)-1)+0.5)]
}

// Count returns the number of samples held.
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.samples)
	}
	return h.next
}
