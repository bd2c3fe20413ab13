package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistogram_Percentile(t *testing.T) {
	h := NewHistogram(10)
	assert.Equal(t, time.Duration(0), h.Percentile(50))

	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	assert.Equal(t, 5, h.Count())
	assert.Equal(t, 1*time.Millisecond, h.Percentile(0))
	assert.Equal(t, 3*time.Millisecond, h.Percentile(50))
	assert.Equal(t, 5*time.Millisecond, h.Percentile(100))
	assert.Equal(t, 5*time.Millisecond, h.Percentile(250))
}

func TestHistogram_RingOverwritesOldest(t *testing.T) {
	h := NewHistogram(3)
	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Second)
	}
	assert.Equal(t, 3, h.Count())
	assert.Equal(t, 3*time.Second, h.Percentile(0))
	assert.Equal(t, 5*time.Second, h.Percentile(100))
}
