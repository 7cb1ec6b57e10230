package codesign

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignArgs(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name     string
		opts     []SignOpt
		expected []string
	}{
		{
			name: "defaults",
			expected: []string{
				"--force", "--timestamp", "--options", "runtime",
				"--sign", "Developer ID Application: Example Corp", "/tmp/MyApp.app",
			},
		},
		{
			name: "deep with entitlements",
			opts: []SignOpt{WithDeep(), WithEntitlements("/tmp/MyApp.entitlements")},
			expected: []string{
				"--force", "--timestamp", "--options", "runtime",
				"--deep",
				"--entitlements", "/tmp/MyApp.entitlements",
				"--sign", "Developer ID Application: Example Corp", "/tmp/MyApp.app",
			},
		},
		{
			name: "extra args",
			opts: []SignOpt{WithExtraArgs([]string{"--keychain", "/tmp/build.keychain"})},
			expected: []string{
				"--force", "--timestamp", "--options", "runtime",
				"--keychain", "/tmp/build.keychain",
				"--sign", "Developer ID Application: Example Corp", "/tmp/MyApp.app",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			so := &signOptions{}
			for _, opt := range tt.opts {
				opt(so)
			}

			args := signArgs(so, "Developer ID Application: Example Corp", "/tmp/MyApp.app")
			require.Equal(t, tt.expected, args)
		})
	}
}

func TestSign(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("no true(1) on windows")
	}

	// Substituting true(1) exercises the sign-then-verify call sequence
	// without a real signing identity.
	err := Sign(context.TODO(), "/tmp/MyApp.app", "Developer ID Application: Example Corp",
		WithCodesignPath("true"),
	)
	require.NoError(t, err)

	err = Sign(context.TODO(), "/tmp/MyApp.app", "Developer ID Application: Example Corp",
		WithCodesignPath("false"),
	)
	require.Error(t, err)
}
