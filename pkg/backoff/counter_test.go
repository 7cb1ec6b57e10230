package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMultiplicativeDurationCounter(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name         string
		baseInterval time.Duration
		maxInterval  time.Duration
		expected     []time.Duration
	}{
		{
			name:         "grows then caps",
			baseInterval: time.Second,
			maxInterval:  3 * time.Second,
			expected: []time.Duration{
				time.Second,
				2 * time.Second,
				3 * time.Second,
				3 * time.Second,
			},
		},
		{
			name:         "zero base stays zero",
			baseInterval: 0,
			maxInterval:  time.Minute,
			expected:     []time.Duration{0, 0, 0},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dc := NewMultiplicativeDurationCounter(tt.baseInterval, tt.maxInterval)
			for i, expected := range tt.expected {
				require.Equal(t, expected, dc.Next(), "interval %d", i)
			}
		})
	}
}

func TestDurationCounterReset(t *testing.T) {
	t.Parallel()

	dc := NewMultiplicativeDurationCounter(time.Second, time.Minute)
	require.Equal(t, time.Second, dc.Next())
	require.Equal(t, 2*time.Second, dc.Next())

	dc.Reset()
	require.Equal(t, time.Second, dc.Next())
}

func TestConstantDurationCounter(t *testing.T) {
	t.Parallel()

	dc := NewConstantDurationCounter(30 * time.Second)
	for i := 0; i < 5; i++ {
		require.Equal(t, 30*time.Second, dc.Next())
	}
}
