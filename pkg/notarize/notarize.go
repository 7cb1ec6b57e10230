// Package notarize is a wrapper around the apple notarization tools.
//
// It supports submitting an artifact, recording the request uuid, polling
// until the service reaches a terminal status, and stapling the resulting
// ticket. Submissions are never retried; the bounded poll loop in Wait is
// the only repetition.
package notarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/groob/plist"
	"github.com/shipkit/shipkit/pkg/backoff"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"
)

// maxPollInterval caps the multiplicative growth of the wait between polls.
const maxPollInterval = 2 * time.Minute

type Notarizer struct {
	username string // apple id
	password string // app-specific password
	teamID   string // developer team identifier

	fakeResponses []string
	execCC        func(context.Context, string, ...string) *exec.Cmd // test override
}

func New(username, password, teamID string) *Notarizer {
	return &Notarizer{
		username: username,
		password: password,
		teamID:   teamID,
		execCC:   exec.CommandContext,
	}
}

// Submit uploads an artifact to the notarization service and returns the
// submission holding the service-assigned request uuid. Each call produces
// a distinct submission; the service does not deduplicate uploads.
func (n *Notarizer) Submit(ctx context.Context, filePath string, bundleID string) (*Submission, error) {
	rawResp, err := n.runNotarytool(ctx, "submit", filePath, []string{"--no-wait"})
	if err != nil {
		return nil, &SubmissionError{Path: filePath, Err: err}
	}

	uuid, err := parseReceipt(rawResp)
	if err != nil {
		return nil, &SubmissionError{Path: filePath, Err: err}
	}

	return &Submission{
		UUID:     uuid,
		Path:     filePath,
		BundleID: bundleID,
	}, nil
}

// parseReceipt extracts the request uuid from a submit response. notarytool
// emits JSON; responses from scripts still driving altool arrive as plists.
func parseReceipt(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)

	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		var r altoolUploadResponse
		if err := plist.Unmarshal(trimmed, &r); err != nil {
			return "", fmt.Errorf("could not unmarshal altool upload response: %w", err)
		}
		if r.Upload.RequestUUID == "" {
			return "", fmt.Errorf("altool upload response missing RequestUUID")
		}
		return r.Upload.RequestUUID, nil
	}

	var r submitResponse
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return "", fmt.Errorf("could not unmarshal notarization response: %w", err)
	}
	if r.ID == "" {
		return "", fmt.Errorf("notarization response missing id")
	}
	return r.ID, nil
}

// Wait polls the notarization status for a submission until the service
// reports a terminal status. Polling is bounded: after maxAttempts
// non-terminal responses Wait returns a TimeoutError rather than looping
// forever. Cancelling the context during the inter-poll sleep aborts
// without issuing another poll.
func (n *Notarizer) Wait(ctx context.Context, sub *Submission, pollInterval time.Duration, maxAttempts int) (*Report, error) {
	logger := log.With(ctxlog.FromContext(ctx),
		"caller", "notarize.Wait",
		"request-uuid", sub.UUID,
	)

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	intervals := backoff.NewMultiplicativeDurationCounter(pollInterval, maxPollInterval)

	for attempt := 1; ; attempt++ {
		report, err := n.check(ctx, sub.UUID)
		if err != nil {
			return nil, fmt.Errorf("checking notarization status: %w", err)
		}

		switch {
		case report.Status == StatusAccepted:
			level.Debug(logger).Log(
				"msg", "notarization accepted",
				"attempts", attempt,
			)
			return report, nil

		case report.Status.Terminal():
			return nil, &FailedError{
				UUID:   sub.UUID,
				Status: report.Status,
				LogURL: report.LogURL,
			}
		}

		if attempt >= maxAttempts {
			return nil, &TimeoutError{
				UUID:       sub.UUID,
				Attempts:   attempt,
				LastStatus: report.Status,
			}
		}

		level.Debug(logger).Log(
			"msg", "notarization not yet terminal",
			"status", report.Status,
			"attempt", attempt,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting on notarization %s: %w", sub.UUID, ctx.Err())
		case <-time.After(intervals.Next()):
		}
	}
}

// check fetches the current status of a request uuid.
func (n *Notarizer) check(ctx context.Context, uuid string) (*Report, error) {
	rawResp, err := n.runNotarytool(ctx, "info", uuid, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching notarization info: %w", err)
	}

	var r infoResponse
	if err := json.Unmarshal(bytes.TrimSpace(rawResp), &r); err != nil {
		return nil, fmt.Errorf("could not unmarshal notarization info response: %w", err)
	}

	if r.ID != uuid {
		return nil, fmt.Errorf("something went wrong. Expected response for %s, but got %s", uuid, r.ID)
	}

	return &Report{
		UUID:   r.ID,
		Status: Status(r.Status),
		LogURL: r.LogFileURL,
	}, nil
}

// FetchLog retrieves the service's log document for a submission. The log
// names the specific findings behind an Invalid verdict.
func (n *Notarizer) FetchLog(ctx context.Context, sub *Submission) (string, error) {
	rawResp, err := n.runNotarytool(ctx, "log", sub.UUID, nil)
	if err != nil {
		return "", fmt.Errorf("fetching notarization log: %w", err)
	}

	return strings.TrimSpace(string(rawResp)), nil
}

// Staple attaches the notarization ticket to the artifact so it validates
// offline. Only works on .app, .pkg, and .dmg targets.
func (n *Notarizer) Staple(ctx context.Context, path string) error {
	logger := log.With(ctxlog.FromContext(ctx), "caller", "notarize.Staple")

	args := []string{"stapler", "staple", path}

	if len(n.fakeResponses) > 0 {
		n.fakeResponses = n.fakeResponses[1:]
		return nil
	}

	level.Debug(logger).Log(
		"msg", "running stapler",
		"target", path,
	)

	cmd := n.execCC(ctx, "xcrun", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("stapling error: error `%w`, output `%s`", err, string(out))
	}

	return nil
}

func (n *Notarizer) runNotarytool(ctx context.Context, command string, target string, additionalArgs []string) ([]byte, error) {
	baseArgs := []string{
		"notarytool",
		command,
		target,
		"--apple-id", n.username,
		"--password", n.password,
		"--team-id", n.teamID,
		"--output-format", "json",
	}
	if len(additionalArgs) > 0 {
		baseArgs = append(baseArgs, additionalArgs...)
	}

	if len(n.fakeResponses) > 0 {
		resp := n.fakeResponses[0]
		n.fakeResponses = n.fakeResponses[1:]
		return []byte(resp), nil
	}

	cmd := n.execCC(ctx, "xcrun", baseArgs...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("notarizing error: error `%w`, output `%s`", err, string(out))
	}

	return out, nil
}
