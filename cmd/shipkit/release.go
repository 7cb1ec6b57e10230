package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/peterbourgon/ff/v3"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"
	"github.com/shipkit/shipkit/pkg/releasekit"
)

func runRelease(args []string) error {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	var (
		flDebug = fs.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flName = fs.String(
			"name",
			env.String("NAME", ""),
			"the app name (example: MyApp)",
		)
		flVersion = fs.String(
			"version",
			env.String("VERSION", ""),
			"the release version (semver)",
		)
		flBundleID = fs.String(
			"bundle_id",
			env.String("BUNDLE_ID", ""),
			"the bundle identifier (example: com.example.myapp)",
		)
		flScheme = fs.String(
			"scheme",
			env.String("SCHEME", ""),
			"the xcode scheme to archive, defaults to the app name",
		)
		flConfiguration = fs.String(
			"configuration",
			env.String("CONFIGURATION", "Release"),
			"the xcode build configuration",
		)
		flBuildCommand = fs.String(
			"build_command",
			env.String("BUILD_COMMAND", ""),
			"space-separated build invocation replacing xcodebuild (example: 'make app')",
		)
		flWorkDir = fs.String(
			"workdir",
			env.String("WORKDIR", ""),
			"the directory to build in",
		)
		flSigningIdentity = fs.String(
			"signing_identity",
			env.String("SIGNING_IDENTITY", ""),
			"the codesign identity; signing is skipped when empty",
		)
		flEntitlements = fs.String(
			"entitlements",
			env.String("ENTITLEMENTS", ""),
			"the path to an entitlements plist",
		)
		flAppleID = fs.String(
			"apple_id",
			env.String("APPLE_ID", ""),
			"the apple id for notarization; notarization is skipped when empty",
		)
		flApplePassword = fs.String(
			"apple_password",
			env.String("APPLE_PASSWORD", ""),
			"the app-specific password for notarization",
		)
		flAppleTeamID = fs.String(
			"apple_team_id",
			env.String("APPLE_TEAM_ID", ""),
			"the developer team identifier",
		)
		flPollInterval = fs.Duration(
			"poll_interval",
			30*time.Second,
			"base wait between notarization status polls",
		)
		flMaxPollAttempts = fs.Int(
			"max_poll_attempts",
			60,
			"how many non-terminal polls before giving up",
		)
		flGPGKey = fs.String(
			"gpg_signing_key",
			env.String("GPG_SIGNING_KEY", ""),
			"the key id used to sign the checksums file; skipped when empty",
		)
		flOutputDir = fs.String(
			"output_dir",
			env.String("OUTPUT_DIR", ""),
			"where to leave release artifacts, a temp dir when empty",
		)
		flOutput = fs.String(
			"output",
			env.String("OUTPUT", ""),
			"path for the distribution image, defaults to <name>-<version>.dmg",
		)
	)

	fs.Usage = usageFor(fs, "shipkit release [flags]")
	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("SHIPKIT"),
	); err != nil {
		return err
	}

	logger := logutil.NewCLILogger(*flDebug)

	ro := &releasekit.ReleaseOptions{
		Name:            *flName,
		Version:         *flVersion,
		BundleID:        *flBundleID,
		Scheme:          *flScheme,
		Configuration:   *flConfiguration,
		WorkDir:         *flWorkDir,
		SigningIdentity: *flSigningIdentity,
		Entitlements:    *flEntitlements,
		AppleID:         *flAppleID,
		ApplePassword:   *flApplePassword,
		AppleTeamID:     *flAppleTeamID,
		PollInterval:    *flPollInterval,
		MaxPollAttempts: *flMaxPollAttempts,
		GPGSigningKey:   *flGPGKey,
		OutputPathDir:   *flOutputDir,
	}

	if *flBuildCommand != "" {
		ro.BuildCommand = strings.Fields(*flBuildCommand)
	}

	if ro.Scheme == "" {
		ro.Scheme = ro.Name
	}

	outputPath := *flOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s-%s.dmg", ro.Name, ro.Version)
	}

	outputFH, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer outputFH.Close()

	err = runWithSignals(logger, func(ctx context.Context) error {
		ctx = ctxlog.NewContext(ctx, logger)
		ctx = releasekit.InitContext(ctx)

		if err := releasekit.Release(ctx, outputFH, ro); err != nil {
			return err
		}

		uuid, _ := releasekit.GetFromContext(ctx, releasekit.ContextNotarizationUuidKey)
		level.Info(logger).Log(
			"msg", "release complete",
			"version", ro.Version,
			"notarization_uuid", uuid,
			"output", outputPath,
		)
		return nil
	})
	if err != nil {
		// Don't leave a partial image behind.
		os.Remove(outputPath)
		return err
	}

	return nil
}
