package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindCodes(t *testing.T) {
	assert.Equal(t, "MISSING_CREDENTIAL", KindMissingCredential.Code())
	assert.Equal(t, "PRIVATE_ACTIVITIES_REQUIRED", KindPrivateDataPermission.Code())
	assert.Equal(t, "NOT_FOUND", KindNotFound.Code())
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", KindExternalService.Code())
	assert.Equal(t, "VALIDATION_ERROR", KindValidation.Code())
	assert.Equal(t, "INTERNAL_ERROR", KindUnknown.Code())
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	err := New(KindNotFound, "challenge not found")
	wrapped := fmt.Errorf("loading challenge: %w", err)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindValidation))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindExternalService, "fetching activities", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "fetching activities")
	assert.Contains(t, err.Error(), "connection reset")
}
