package releasekit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shipkit/shipkit/pkg/contexts/ctxlog"

	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"
)

const checksumsFilename = "SHA256SUMS"

// WriteChecksums hashes each artifact and writes a sha256sum-compatible sums
// file next to them. Returns the path of the sums file.
func WriteChecksums(ctx context.Context, outputPathDir string, artifacts []string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "releasekit.WriteChecksums")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "releasekit.WriteChecksums")

	lines := make([]string, len(artifacts))

	var g errgroup.Group
	for i, artifact := range artifacts {
		i, artifact := i, artifact
		g.Go(func() error {
			sum, err := fileSHA256(artifact)
			if err != nil {
				return fmt.Errorf("hashing %s: %w", artifact, err)
			}
			lines[i] = fmt.Sprintf("%s  %s\n", sum, filepath.Base(artifact))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	sumsPath := filepath.Join(outputPathDir, checksumsFilename)
	if err := os.WriteFile(sumsPath, []byte(strings.Join(lines, "")), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", checksumsFilename, err)
	}

	level.Debug(logger).Log(
		"msg", "wrote checksums",
		"path", sumsPath,
		"artifacts", len(artifacts),
	)

	return sumsPath, nil
}

func fileSHA256(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SignChecksums writes an armored detached signature for the sums file by
// execing gpg.
func SignChecksums(ctx context.Context, sumsPath string, keyID string) error {
	ctx, span := trace.StartSpan(ctx, "releasekit.SignChecksums")
	defer span.End()

	logger := log.With(ctxlog.FromContext(ctx), "method", "releasekit.SignChecksums")

	args := []string{
		"--batch",
		"--yes",
		"--armor",
		"--local-user", keyID,
		"--output", sumsPath + ".asc",
		"--detach-sign",
		sumsPath,
	}

	level.Debug(logger).Log(
		"msg", "Running gpg",
		"args", fmt.Sprintf("%v", args),
	)

	cmd := exec.CommandContext(ctx, "gpg", args...)

	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("signing checksums: %s: %w", stderr, err)
	}

	return nil
}
