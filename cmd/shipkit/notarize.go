package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/peterbourgon/ff/v3"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"
	"github.com/shipkit/shipkit/pkg/notarize"
)

func runNotarize(args []string) error {
	fs := flag.NewFlagSet("notarize", flag.ExitOnError)
	var (
		flDebug = fs.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flArtifact = fs.String(
			"artifact",
			env.String("ARTIFACT", ""),
			"the zip, dmg, or pkg to notarize",
		)
		flBundleID = fs.String(
			"bundle_id",
			env.String("BUNDLE_ID", ""),
			"the bundle identifier (example: com.example.myapp)",
		)
		flAppleID = fs.String(
			"apple_id",
			env.String("APPLE_ID", ""),
			"the apple id",
		)
		flApplePassword = fs.String(
			"apple_password",
			env.String("APPLE_PASSWORD", ""),
			"the app-specific password",
		)
		flAppleTeamID = fs.String(
			"apple_team_id",
			env.String("APPLE_TEAM_ID", ""),
			"the developer team identifier",
		)
		flPollInterval = fs.Duration(
			"poll_interval",
			30*time.Second,
			"base wait between status polls",
		)
		flMaxPollAttempts = fs.Int(
			"max_poll_attempts",
			60,
			"how many non-terminal polls before giving up",
		)
		flFetchLog = fs.Bool(
			"fetch_log",
			true,
			"fetch and print the service log when notarization fails",
		)
		flStaple = fs.String(
			"staple",
			env.String("STAPLE", ""),
			"a path to staple the ticket onto after acceptance (.app, .pkg, or .dmg)",
		)
	)

	fs.Usage = usageFor(fs, "shipkit notarize [flags]")
	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("SHIPKIT"),
	); err != nil {
		return err
	}

	logger := logutil.NewCLILogger(*flDebug)

	if *flArtifact == "" {
		return errors.New("artifact undefined")
	}
	if *flAppleID == "" || *flApplePassword == "" {
		return errors.New("apple_id and apple_password must be set")
	}

	notarizer := notarize.New(*flAppleID, *flApplePassword, *flAppleTeamID)

	return runWithSignals(logger, func(ctx context.Context) error {
		ctx = ctxlog.NewContext(ctx, logger)

		sub, err := notarizer.Submit(ctx, *flArtifact, *flBundleID)
		if err != nil {
			return err
		}

		level.Info(logger).Log(
			"msg", "submitted for notarization",
			"uuid", sub.UUID,
		)

		report, err := notarizer.Wait(ctx, sub, *flPollInterval, *flMaxPollAttempts)
		if err != nil {
			var failedErr *notarize.FailedError
			if *flFetchLog && errors.As(err, &failedErr) {
				if serviceLog, logErr := notarizer.FetchLog(ctx, sub); logErr == nil {
					fmt.Fprintln(os.Stderr, serviceLog)
				}
			}
			return err
		}

		level.Info(logger).Log(
			"msg", "notarization complete",
			"uuid", report.UUID,
			"status", report.Status,
			"log", report.LogURL,
		)

		if *flStaple != "" {
			if err := notarizer.Staple(ctx, *flStaple); err != nil {
				return err
			}
		}

		return nil
	})
}

func runStaple(args []string) error {
	fs := flag.NewFlagSet("staple", flag.ExitOnError)
	var (
		flDebug = fs.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flArtifact = fs.String(
			"artifact",
			env.String("ARTIFACT", ""),
			"the .app, .pkg, or .dmg to staple",
		)
	)

	fs.Usage = usageFor(fs, "shipkit staple [flags]")
	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("SHIPKIT"),
	); err != nil {
		return err
	}

	logger := logutil.NewCLILogger(*flDebug)

	if *flArtifact == "" {
		return errors.New("artifact undefined")
	}

	return runWithSignals(logger, func(ctx context.Context) error {
		ctx = ctxlog.NewContext(ctx, logger)
		return notarize.New("", "", "").Staple(ctx, *flArtifact)
	})
}
