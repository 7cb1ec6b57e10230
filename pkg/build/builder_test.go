package build

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXcodeVersionFromOutput(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name          string
		output        string
		expected      string
		expectedError bool
	}{
		{
			name:     "current",
			output:   "Xcode 15.2\nBuild version 15C500b\n",
			expected: "15.2",
		},
		{
			name:     "old",
			output:   "Xcode 12.4\nBuild version 12D4e\n",
			expected: "12.4",
		},
		{
			name:          "garbage",
			output:        "command not found",
			expectedError: true,
		},
		{
			name:          "empty",
			output:        "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ver, err := xcodeVersionFromOutput(tt.output)
			if tt.expectedError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.expected, ver)
			}
		})
	}
}

func TestArchiveArgs(t *testing.T) {
	t.Parallel()

	args := archiveArgs("MyApp", "Release", "macosx", "/tmp/out/MyApp.xcarchive")
	require.Equal(t, []string{
		"-scheme", "MyApp",
		"-configuration", "Release",
		"-sdk", "macosx",
		"-archivePath", "/tmp/out/MyApp.xcarchive",
		"archive",
	}, args)

	// sdk is optional
	args = archiveArgs("MyApp", "Release", "", "/tmp/out/MyApp.xcarchive")
	require.NotContains(t, args, "-sdk")
}

func TestExportArgs(t *testing.T) {
	t.Parallel()

	args := exportArgs("/tmp/out/MyApp.xcarchive", "/tmp/out")
	require.Equal(t, []string{
		"-exportArchive",
		"-archivePath", "/tmp/out/MyApp.xcarchive",
		"-exportOptionsPlist", filepath.Join("/tmp/out", "ExportOptions.plist"),
		"-exportPath", "/tmp/out",
	}, args)
}

func TestBuildWithBuildCommand(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("no true(1) on windows")
	}

	b := New(
		WithBuildCommand("true"),
		WithWorkdir(t.TempDir()),
	)

	appPath, err := b.Build(context.TODO(), "/tmp/out", "MyApp")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/out", "MyApp.app"), appPath)
}

func TestBuildAll(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("no true(1) on windows")
	}

	b := New(
		WithBuildCommand("true"),
		WithWorkdir(t.TempDir()),
	)

	paths, err := b.BuildAll(context.TODO(), "/tmp/out", "MyApp", "MyHelper")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join("/tmp/out", "MyApp.app"),
		filepath.Join("/tmp/out", "MyHelper.app"),
	}, paths)
}

func TestNewEnv(t *testing.T) {
	t.Parallel()

	b := New(WithEnv("RELEASE_CHANNEL=stable"))
	require.Contains(t, b.cmdEnv, "RELEASE_CHANNEL=stable")

	// Only PATH and HOME come across from the shell.
	b2 := New()
	require.Len(t, b2.cmdEnv, 2)
}
