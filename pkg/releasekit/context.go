package releasekit

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Release stages record interesting values (the notarization request uuid,
// the released version) against the context, so callers can report on them
// after the pipeline returns.

type contextKey string

const (
	ContextReleaseVersionKey   contextKey = "release_version"
	ContextNotarizationUuidKey contextKey = "notarization_uuid"
	ContextArtifactPathKey     contextKey = "artifact_path"
)

type contextValues struct {
	mu     sync.Mutex
	values map[contextKey]string
}

type valuesKeyType int

const valuesKey valuesKeyType = 0

// InitContext returns a context that release stages can record values into.
func InitContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, valuesKey, &contextValues{
		values: make(map[contextKey]string),
	})
}

func setInContext(ctx context.Context, key contextKey, val string) {
	cv, ok := ctx.Value(valuesKey).(*contextValues)
	if !ok {
		// Not initialized. Nowhere to record the value.
		return
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	cv.values[key] = val
}

// SetInContext records a value against an initialized context.
func SetInContext(ctx context.Context, key contextKey, val string) {
	setInContext(ctx, key, val)
}

// GetFromContext returns the recorded value for key. Unset keys on an
// initialized context return the empty string; an uninitialized context is
// an error.
func GetFromContext(ctx context.Context, key contextKey) (string, error) {
	cv, ok := ctx.Value(valuesKey).(*contextValues)
	if !ok {
		return "", errors.New("context was not initialized with InitContext")
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	return cv.values[key], nil
}
