/* Package build drives the application build system.

The build environment is assembled explicitly rather than inherited from the
invoking shell, so a release is reproducible from its flags alone.
*/

package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"

	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"
)

// notarytool ships with Xcode 13. Older toolchains would force the release
// back onto altool, so we refuse them.
const minXcodeVersion = ">= 13.0"

type Builder struct {
	scheme        string
	configuration string
	sdk           string
	workdir       string
	buildCommand  []string // non-Xcode projects supply their own build invocation

	xcodebuildPath string

	cmdEnv []string
	execCC func(context.Context, string, ...string) *exec.Cmd
}

type Option func(*Builder)

func WithScheme(scheme string) Option {
	return func(b *Builder) {
		b.scheme = scheme
	}
}

func WithConfiguration(configuration string) Option {
	return func(b *Builder) {
		b.configuration = configuration
	}
}

func WithSDK(sdk string) Option {
	return func(b *Builder) {
		b.sdk = sdk
	}
}

func WithWorkdir(workdir string) Option {
	return func(b *Builder) {
		b.workdir = workdir
	}
}

// WithBuildCommand replaces the xcodebuild invocation entirely. The command
// is expected to leave the app bundle at the path passed to Build.
func WithBuildCommand(argv ...string) Option {
	return func(b *Builder) {
		b.buildCommand = argv
	}
}

// WithEnv appends KEY=VALUE pairs to the build environment.
func WithEnv(pairs ...string) Option {
	return func(b *Builder) {
		b.cmdEnv = append(b.cmdEnv, pairs...)
	}
}

func New(opts ...Option) *Builder {
	b := Builder{
		configuration:  "Release",
		xcodebuildPath: "xcodebuild",

		execCC: exec.CommandContext,
	}

	// Start from a minimal environment rather than inheriting the whole
	// shell. PATH and HOME are needed for the toolchain's keychain and
	// provisioning lookups.
	cmdEnv := []string{
		fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
		fmt.Sprintf("HOME=%s", os.Getenv("HOME")),
	}
	b.cmdEnv = cmdEnv

	for _, opt := range opts {
		opt(&b)
	}

	return &b
}

// Build produces the app bundle and returns its path. Xcode projects get an
// archive/export pair; anything else runs the caller-supplied command.
func (b *Builder) Build(ctx context.Context, outputDir string, appName string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "build.Build")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	if len(b.buildCommand) > 0 {
		if err := b.runBuildCommand(ctx); err != nil {
			return "", err
		}
		return filepath.Join(outputDir, appName+".app"), nil
	}

	if err := b.xcodeVersionCompatible(ctx, logger); err != nil {
		return "", err
	}

	archivePath := filepath.Join(outputDir, appName+".xcarchive")
	if err := b.runArchive(ctx, archivePath); err != nil {
		return "", fmt.Errorf("running xcodebuild archive: %w", err)
	}

	if err := b.runExportArchive(ctx, archivePath, outputDir); err != nil {
		return "", fmt.Errorf("running xcodebuild -exportArchive: %w", err)
	}

	return filepath.Join(outputDir, appName+".app"), nil
}

func (b *Builder) runBuildCommand(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "build.runBuildCommand")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "build.runBuildCommand")

	level.Debug(logger).Log(
		"msg", "Running build command",
		"cmd", strings.Join(b.buildCommand, " "),
	)

	cmd := b.execCC(ctx, b.buildCommand[0], b.buildCommand[1:]...)
	cmd.Dir = b.workdir
	cmd.Env = append(cmd.Env, b.cmdEnv...)

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running build command: %s: %w", stderr, err)
	}

	return nil
}

func (b *Builder) runArchive(ctx context.Context, archivePath string) error {
	ctx, span := trace.StartSpan(ctx, "build.runArchive")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "build.runArchive")

	args := archiveArgs(b.scheme, b.configuration, b.sdk, archivePath)

	level.Debug(logger).Log(
		"msg", "Running xcodebuild archive",
		"args", fmt.Sprintf("%v", args),
	)

	cmd := b.execCC(ctx, b.xcodebuildPath, args...)
	cmd.Dir = b.workdir
	cmd.Env = append(cmd.Env, b.cmdEnv...)

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("creating archive: %s: %w", stderr, err)
	}

	return nil
}

func (b *Builder) runExportArchive(ctx context.Context, archivePath, exportPath string) error {
	ctx, span := trace.StartSpan(ctx, "build.runExportArchive")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "build.runExportArchive")

	args := exportArgs(archivePath, exportPath)

	level.Debug(logger).Log(
		"msg", "Running xcodebuild -exportArchive",
		"args", fmt.Sprintf("%v", args),
	)

	cmd := b.execCC(ctx, b.xcodebuildPath, args...)
	cmd.Dir = b.workdir
	cmd.Env = append(cmd.Env, b.cmdEnv...)

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("exporting archive: %s: %w", stderr, err)
	}

	return nil
}

// BuildAll builds several schemes concurrently into outputDir.
func (b *Builder) BuildAll(ctx context.Context, outputDir string, schemes ...string) ([]string, error) {
	paths := make([]string, len(schemes))

	var g errgroup.Group
	for i, scheme := range schemes {
		i, scheme := i, scheme
		g.Go(func() error {
			sb := *b
			sb.scheme = scheme
			appPath, err := sb.Build(ctx, outputDir, scheme)
			if err != nil {
				return fmt.Errorf("building scheme %s: %w", scheme, err)
			}
			paths[i] = appPath
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}

func archiveArgs(scheme, configuration, sdk, archivePath string) []string {
	args := []string{
		"-scheme", scheme,
		"-configuration", configuration,
	}

	if sdk != "" {
		args = append(args, "-sdk", sdk)
	}

	args = append(args,
		"-archivePath", archivePath,
		"archive",
	)

	return args
}

func exportArgs(archivePath, exportPath string) []string {
	return []string{
		"-exportArchive",
		"-archivePath", archivePath,
		"-exportOptionsPlist", filepath.Join(exportPath, "ExportOptions.plist"),
		"-exportPath", exportPath,
	}
}

func (b *Builder) xcodeVersionCompatible(ctx context.Context, logger log.Logger) error {
	cmd := b.execCC(ctx, b.xcodebuildPath, "-version")
	cmd.Env = append(cmd.Env, b.cmdEnv...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run xcodebuild -version, output=%s: %w", out, err)
	}

	ver, err := xcodeVersionFromOutput(string(out))
	if err != nil {
		return err
	}

	xcodeVer, err := semver.NewVersion(ver)
	if err != nil {
		return fmt.Errorf("parse xcode version %q as semver: %w", ver, err)
	}

	c, _ := semver.NewConstraint(minXcodeVersion)
	if !c.Check(xcodeVer) {
		return fmt.Errorf("release requires Xcode %s, have %s", minXcodeVersion, ver)
	}

	level.Debug(logger).Log(
		"msg", "xcode version compatible",
		"version", ver,
	)

	return nil
}

// xcodeVersionFromOutput parses `xcodebuild -version` output, which looks
// like "Xcode 15.2\nBuild version 15C500b".
func xcodeVersionFromOutput(output string) (string, error) {
	fields := strings.Fields(output)
	if len(fields) < 2 || fields[0] != "Xcode" {
		return "", fmt.Errorf("unexpected xcodebuild -version output %q", strings.TrimSpace(output))
	}
	return fields[1], nil
}
