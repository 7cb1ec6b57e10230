// Package releasekit orchestrates a desktop application release: build the
// bundle, sign it, zip it for upload, notarize, staple, wrap it in a disk
// image, and write checksums. Every stage is an exec of an external tool;
// any stage failing aborts the release.
package releasekit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shipkit/shipkit/pkg/archive"
	"github.com/shipkit/shipkit/pkg/build"
	"github.com/shipkit/shipkit/pkg/codesign"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"
	"github.com/shipkit/shipkit/pkg/notarize"

	"go.opencensus.io/trace"
)

// Release runs the whole pipeline and copies the distribution image to w.
func Release(ctx context.Context, w io.Writer, ro *ReleaseOptions) error {
	ctx, span := trace.StartSpan(ctx, "releasekit.Release")
	defer span.End()

	if err := ro.validate(); err != nil {
		return err
	}

	outputPathDir := ro.OutputPathDir
	if outputPathDir == "" {
		var err error
		outputPathDir, err = os.MkdirTemp("", "releasekit-output")
		if err != nil {
			return fmt.Errorf("making TempDir: %w", err)
		}
		defer os.RemoveAll(outputPathDir)
	}

	appPath, err := runBuild(ctx, outputPathDir, ro)
	if err != nil {
		return fmt.Errorf("running build: %w", err)
	}

	if err := runSign(ctx, appPath, ro); err != nil {
		return fmt.Errorf("running codesign: %w", err)
	}

	zipPath := filepath.Join(outputPathDir, fmt.Sprintf("%s-%s.zip", ro.Name, ro.Version))
	if err := archive.Zip(ctx, appPath, zipPath); err != nil {
		return fmt.Errorf("running zip: %w", err)
	}

	if err := runNotarize(ctx, zipPath, appPath, ro); err != nil {
		return fmt.Errorf("running notarize: %w", err)
	}

	dmgPath := filepath.Join(outputPathDir, fmt.Sprintf("%s-%s.dmg", ro.Name, ro.Version))
	if err := archive.DiskImage(ctx, appPath, ro.Name, dmgPath); err != nil {
		return fmt.Errorf("running dmg: %w", err)
	}

	sumsPath, err := WriteChecksums(ctx, outputPathDir, []string{zipPath, dmgPath})
	if err != nil {
		return fmt.Errorf("writing checksums: %w", err)
	}

	if ro.GPGSigningKey != "" {
		if err := SignChecksums(ctx, sumsPath, ro.GPGSigningKey); err != nil {
			return fmt.Errorf("signing checksums: %w", err)
		}
	}

	outputFH, err := os.Open(dmgPath)
	if err != nil {
		return fmt.Errorf("opening resultant output file: %w", err)
	}
	defer outputFH.Close()

	if _, err := io.Copy(w, outputFH); err != nil {
		return fmt.Errorf("copying output: %w", err)
	}

	setInContext(ctx, ContextReleaseVersionKey, ro.Version)
	setInContext(ctx, ContextArtifactPathKey, dmgPath)

	return nil
}

func runBuild(ctx context.Context, outputPathDir string, ro *ReleaseOptions) (string, error) {
	ctx, span := trace.StartSpan(ctx, "releasekit.runBuild")
	defer span.End()

	opts := []build.Option{
		build.WithScheme(ro.Scheme),
		build.WithWorkdir(ro.WorkDir),
	}

	if ro.Configuration != "" {
		opts = append(opts, build.WithConfiguration(ro.Configuration))
	}

	if ro.SDK != "" {
		opts = append(opts, build.WithSDK(ro.SDK))
	}

	if len(ro.BuildCommand) > 0 {
		opts = append(opts, build.WithBuildCommand(ro.BuildCommand...))
	}

	return build.New(opts...).Build(ctx, outputPathDir, ro.Name)
}

func runSign(ctx context.Context, appPath string, ro *ReleaseOptions) error {
	if ro.SigningIdentity == "" {
		return nil
	}

	ctx, span := trace.StartSpan(ctx, "releasekit.runSign")
	defer span.End()

	opts := []codesign.SignOpt{}
	if ro.Entitlements != "" {
		opts = append(opts, codesign.WithEntitlements(ro.Entitlements))
	}
	if ro.DeepSign {
		opts = append(opts, codesign.WithDeep())
	}

	return codesign.Sign(ctx, appPath, ro.SigningIdentity, opts...)
}

// runNotarize submits the zipped bundle, waits for the verdict, and staples
// the ticket onto the app. Missing credentials skip the stage entirely,
// which is the right behavior for local development builds.
func runNotarize(ctx context.Context, zipPath string, appPath string, ro *ReleaseOptions) error {
	if ro.AppleID == "" || ro.ApplePassword == "" {
		return nil
	}

	ctx, span := trace.StartSpan(ctx, "releasekit.runNotarize")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "releasekit.runNotarize")

	notarizer := notarize.New(ro.AppleID, ro.ApplePassword, ro.AppleTeamID)

	sub, err := notarizer.Submit(ctx, zipPath, ro.BundleID)
	if err != nil {
		return fmt.Errorf("submitting file for notarization: %w", err)
	}

	level.Debug(logger).Log(
		"msg", "Got uuid",
		"uuid", sub.UUID,
	)

	setInContext(ctx, ContextNotarizationUuidKey, sub.UUID)

	report, err := notarizer.Wait(ctx, sub, ro.pollInterval(), ro.maxPollAttempts())
	if err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "notarization complete",
		"status", report.Status,
		"log", report.LogURL,
	)

	return notarizer.Staple(ctx, appPath)
}
