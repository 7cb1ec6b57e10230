package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZipArgs(t *testing.T) {
	t.Parallel()

	args := zipArgs("/tmp/out/MyApp.app", "/tmp/out/MyApp.zip")
	require.Equal(t, []string{
		"-c", "-k", "--keepParent",
		"/tmp/out/MyApp.app",
		"/tmp/out/MyApp.zip",
	}, args)
}

func TestDiskImageArgs(t *testing.T) {
	t.Parallel()

	args := diskImageArgs("/tmp/out/MyApp.app", "MyApp", "/tmp/out/MyApp-1.2.3.dmg")
	require.Equal(t, []string{
		"create",
		"-volname", "MyApp",
		"-srcfolder", "/tmp/out/MyApp.app",
		"-ov",
		"-format", "UDZO",
		"/tmp/out/MyApp-1.2.3.dmg",
	}, args)
}
