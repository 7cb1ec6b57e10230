// Package archive produces the container formats a release needs: a zip for
// the notarization upload and a disk image for distribution.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"

	"go.opencensus.io/trace"
)

// Zip compresses src into dest with ditto. ditto, unlike zip(1), preserves
// the resource forks and extended attributes the notarization service
// checks.
func Zip(ctx context.Context, src, dest string) error {
	ctx, span := trace.StartSpan(ctx, "archive.Zip")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "archive.Zip")

	args := zipArgs(src, dest)

	level.Debug(logger).Log(
		"msg", "Running ditto",
		"args", fmt.Sprintf("%v", args),
	)

	cmd := exec.CommandContext(ctx, "ditto", args...)

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("creating zip archive: %s: %w", stderr, err)
	}

	return nil
}

// DiskImage wraps src into a compressed dmg at dest.
func DiskImage(ctx context.Context, src, volumeName, dest string) error {
	ctx, span := trace.StartSpan(ctx, "archive.DiskImage")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "archive.DiskImage")

	args := diskImageArgs(src, volumeName, dest)

	level.Debug(logger).Log(
		"msg", "Running hdiutil",
		"args", fmt.Sprintf("%v", args),
	)

	cmd := exec.CommandContext(ctx, "hdiutil", args...)

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("creating disk image: %s: %w", stderr, err)
	}

	return nil
}

func zipArgs(src, dest string) []string {
	return []string{
		"-c",
		"-k",
		"--keepParent",
		src,
		dest,
	}
}

func diskImageArgs(src, volumeName, dest string) []string {
	return []string{
		"create",
		"-volname", volumeName,
		"-srcfolder", src,
		"-ov",
		"-format", "UDZO",
		dest,
	}
}
