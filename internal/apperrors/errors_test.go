package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "TenantError", KindTenant.String())
	assert.Equal(t, "ValidationError", KindValidation.String())
	assert.Equal(t, "ContextError", KindContext.String())
	assert.Equal(t, "StoreError", KindStore.String())
	assert.Equal(t, "TimeoutError", KindTimeout.String())
	assert.Equal(t, "InternalError", KindInternal.String())
	assert.Equal(t, "UnknownError", KindUnknown.String())
}

func TestIs_MatchesDirectError(t *testing.T) {
	err := TenantNotFound("tenant-a")
	assert.True(t, Is(err, KindTenant))
	assert.False(t, Is(err, KindStore))
}

func TestIs_MatchesThroughWrappedFmtError(t *testing.T) {
	base := Validation("bad_shape", "nope")
	wrapped := fmt.Errorf("context: %w", base)
	assert.True(t, Is(wrapped, KindValidation))
}

func TestIs_FalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindInternal))
	assert.False(t, Is(nil, KindInternal))
}

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, KindInternal, "wrap_test", "wrapped")

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "root cause")
	assert.Contains(t, err.Error(), "wrapped")
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := TenantAlreadyInitialized("tenant-a")
	assert.Contains(t, err.Error(), "TenantError")
	assert.Contains(t, err.Error(), "already_initialized")
	assert.Contains(t, err.Error(), "tenant-a")
}
