package releasekit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteChecksums(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	// sha256 of "hello world\n"
	const helloSum = "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447"

	artifacts := []string{}
	for _, name := range []string{"MyApp-1.2.3.zip", "MyApp-1.2.3.dmg"} {
		p := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(p, []byte("hello world\n"), 0644))
		artifacts = append(artifacts, p)
	}

	sumsPath, err := WriteChecksums(context.TODO(), tmpDir, artifacts)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmpDir, "SHA256SUMS"), sumsPath)

	contents, err := os.ReadFile(sumsPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, fmt.Sprintf("%s  MyApp-1.2.3.zip", helloSum), lines[0])
	require.Equal(t, fmt.Sprintf("%s  MyApp-1.2.3.dmg", helloSum), lines[1])
}

func TestWriteChecksumsMissingArtifact(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	_, err := WriteChecksums(context.TODO(), tmpDir, []string{filepath.Join(tmpDir, "nope.dmg")})
	require.Error(t, err)
}
