// Package backoff provides interval counters used to pace retry loops.
package backoff

import (
	"time"
)

// DurationCounter produces the wait interval for each successive retry.
// It is not safe for concurrent use.
type DurationCounter struct {
	count                     int
	baseInterval, maxInterval time.Duration
	calcNext                  func(count int, baseInterval time.Duration) time.Duration
}

// Next increments the count and returns the interval to wait before the
// next attempt. Results are capped at the max interval.
func (dc *DurationCounter) Next() time.Duration {
	dc.count++
	interval := dc.calcNext(dc.count, dc.baseInterval)
	if interval > dc.maxInterval {
		return dc.maxInterval
	}
	return interval
}

// Reset resets the count to 0.
func (dc *DurationCounter) Reset() {
	dc.count = 0
}

// NewMultiplicativeDurationCounter creates a DurationCounter where each
// interval = baseInterval * count, capped at maxInterval.
func NewMultiplicativeDurationCounter(baseInterval, maxInterval time.Duration) *DurationCounter {
	return &DurationCounter{
		baseInterval: baseInterval,
		maxInterval:  maxInterval,
		calcNext: func(count int, baseInterval time.Duration) time.Duration {
			return baseInterval * time.Duration(count)
		},
	}
}

// NewConstantDurationCounter creates a DurationCounter that always returns
// baseInterval.
func NewConstantDurationCounter(baseInterval time.Duration) *DurationCounter {
	return &DurationCounter{
		baseInterval: baseInterval,
		maxInterval:  baseInterval,
		calcNext: func(_ int, baseInterval time.Duration) time.Duration {
			return baseInterval
		},
	}
}
