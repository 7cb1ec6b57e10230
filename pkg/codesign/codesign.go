// Package codesign is a light wrapper around signing app bundles with the
// codesign tool.
//
// See
//
// https://developer.apple.com/documentation/security/notarizing_macos_software_before_distribution
package codesign

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"
)

// signOptions are the options for how we call codesign. These are *not* the
// tool options, but instead our own representation of the arguments.
type signOptions struct {
	entitlements   string
	deep           bool
	skipValidation bool
	codesignPath   string
	extraArgs      []string

	execCC func(context.Context, string, ...string) *exec.Cmd // Allows test overrides
}

type SignOpt func(*signOptions)

func SkipValidation() SignOpt {
	return func(so *signOptions) {
		so.skipValidation = true
	}
}

// WithEntitlements signs with the entitlements in the given plist file.
func WithEntitlements(path string) SignOpt {
	return func(so *signOptions) {
		so.entitlements = path
	}
}

// WithDeep resigns nested bundles and helpers as well.
func WithDeep() SignOpt {
	return func(so *signOptions) {
		so.deep = true
	}
}

// WithExtraArgs sets additional arguments for codesign.
func WithExtraArgs(args []string) SignOpt {
	return func(so *signOptions) {
		so.extraArgs = args
	}
}

func WithCodesignPath(path string) SignOpt {
	return func(so *signOptions) {
		so.codesignPath = path
	}
}

// Sign signs the bundle at file with the named identity, then verifies the
// result unless validation is skipped. Hardened runtime and a secure
// timestamp are always requested; notarization rejects anything without
// them.
func Sign(ctx context.Context, file string, identity string, opts ...SignOpt) error {
	so := &signOptions{
		codesignPath: "codesign",
		execCC:       exec.CommandContext,
	}

	for _, opt := range opts {
		opt(so)
	}

	args := signArgs(so, identity, file)

	if _, err := so.execOut(ctx, so.codesignPath, args...); err != nil {
		return errors.Wrap(err, "calling codesign")
	}

	if so.skipValidation {
		return nil
	}

	if _, err := so.execOut(ctx, so.codesignPath, "--verify", "--strict", "--verbose=2", file); err != nil {
		return errors.Wrap(err, "verifying signature")
	}

	return nil
}

func signArgs(so *signOptions, identity string, file string) []string {
	args := []string{
		"--force",
		"--timestamp",
		"--options", "runtime",
	}

	if so.deep {
		args = append(args, "--deep")
	}

	if so.entitlements != "" {
		args = append(args, "--entitlements", so.entitlements)
	}

	if len(so.extraArgs) > 0 {
		args = append(args, so.extraArgs...)
	}

	args = append(args, "--sign", identity, file)

	return args
}

// Assess asks Gatekeeper whether it would admit the artifact. Useful as a
// final check after stapling.
func Assess(ctx context.Context, file string, assessType string) error {
	so := &signOptions{
		execCC: exec.CommandContext,
	}

	if assessType == "" {
		assessType = "execute"
	}

	if _, err := so.execOut(ctx, "spctl", "--assess", "--type", assessType, "--verbose=2", file); err != nil {
		return errors.Wrap(err, "calling spctl")
	}

	return nil
}

func (so *signOptions) execOut(ctx context.Context, argv0 string, args ...string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	cmd := so.execCC(ctx, argv0, args...)

	level.Debug(logger).Log(
		"msg", "execing",
		"cmd", strings.Join(cmd.Args, " "),
	)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "run command %s %v, stderr=%s", argv0, args, stderr)
	}
	return strings.TrimSpace(stdout.String()), nil
}
