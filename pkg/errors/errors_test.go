package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrEmptyPeriod, "period 3 has no courses")
	require.Equal(t, "period 3 has no courses", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrEmptyPeriod))
	assert.False(t, errors.Is(cloned, ErrCatalogInvalid))

	wrapped := fmt.Errorf("aggregate: %w", cloned)
	assert.True(t, errors.Is(wrapped, ErrEmptyPeriod))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestWrapMessage(t *testing.T) {
	err := Wrap(errors.New("timeout"), ErrIngestion.Code, ErrIngestion.Status, "parse transcript")
	assert.Equal(t, "parse transcript: timeout", err.Error())
	assert.True(t, errors.Is(err, ErrIngestion))
}
