package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, exitCodeForError(nil))
	require.Equal(t, 1, exitCodeForError(fmt.Errorf("notarization failed")))
	require.Equal(t, 130, exitCodeForError(fmt.Errorf("received signal interrupt: %w", context.Canceled)))
	require.Equal(t, 130, exitCodeForError(context.Canceled))
}

func TestRunWithSignals(t *testing.T) {
	t.Parallel()

	err := runWithSignals(log.NewNopLogger(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	expectedErr := fmt.Errorf("release failed")
	err = runWithSignals(log.NewNopLogger(), func(ctx context.Context) error {
		return expectedErr
	})
	require.ErrorIs(t, err, expectedErr)
}
