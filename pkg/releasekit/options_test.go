package releasekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReleaseOptionsValidate(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name          string
		in            ReleaseOptions
		expectedError bool
	}{
		{
			name: "valid",
			in:   ReleaseOptions{Name: "MyApp", BundleID: "com.example.myapp", Version: "1.2.3"},
		},
		{
			name:          "missing name",
			in:            ReleaseOptions{BundleID: "com.example.myapp", Version: "1.2.3"},
			expectedError: true,
		},
		{
			name:          "missing bundle id",
			in:            ReleaseOptions{Name: "MyApp", Version: "1.2.3"},
			expectedError: true,
		},
		{
			name:          "bad version",
			in:            ReleaseOptions{Name: "MyApp", BundleID: "com.example.myapp", Version: "not-a-version"},
			expectedError: true,
		},
		{
			name: "version with prerelease",
			in:   ReleaseOptions{Name: "MyApp", BundleID: "com.example.myapp", Version: "2.0.0-beta.1"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.in.validate()
			if tt.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestReleaseOptionsPollDefaults(t *testing.T) {
	t.Parallel()

	ro := &ReleaseOptions{}
	require.Equal(t, 30*time.Second, ro.pollInterval())
	require.Equal(t, 60, ro.maxPollAttempts())

	ro = &ReleaseOptions{PollInterval: time.Second, MaxPollAttempts: 3}
	require.Equal(t, time.Second, ro.pollInterval())
	require.Equal(t, 3, ro.maxPollAttempts())
}
