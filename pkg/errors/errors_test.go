package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"invalid claim", errors.ErrCodeInvalidClaim, "land_type is required"},
		{"artifacts missing", errors.ErrCodeArtifactsNotFound, "no generation persisted"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	ae := errors.New(errors.ErrCodeAnalysisFailed, "claim analysis failed")
	assert.Equal(t, "[DSS_001] claim analysis failed", ae.Error())

	withDetail := ae.WithDetail("claim_id=FRA-1")
	assert.Equal(t, "[DSS_001] claim analysis failed: claim_id=FRA-1", withDetail.Error())

	withCause := withDetail.WithCause(fmt.Errorf("boom"))
	assert.Equal(t, "[DSS_001] claim analysis failed: claim_id=FRA-1: boom", withCause.Error())

	// copies never mutate the original
	assert.Empty(t, ae.Detail)
	assert.Nil(t, ae.Cause)
}

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
	})

	t.Run("cause is reachable", func(t *testing.T) {
		root := stderrors.New("disk full")
		wrapped := errors.Wrap(root, errors.ErrCodeStorageError, "write artifact")
		require.NotNil(t, wrapped)
		assert.True(t, stderrors.Is(wrapped, root))
		assert.Equal(t, errors.ErrCodeStorageError, wrapped.Code)
	})

	t.Run("unknown code preserves inner code", func(t *testing.T) {
		inner := errors.New(errors.ErrCodeArtifactsCorrupt, "bad scaler")
		outer := errors.Wrap(inner, errors.CodeUnknown, "load generation")
		assert.Equal(t, errors.ErrCodeArtifactsCorrupt, outer.Code)
	})
}

func TestIsCodeAndGetCode(t *testing.T) {
	inner := errors.New(errors.ErrCodeArtifactsNotFound, "missing")
	outer := fmt.Errorf("context: %w", errors.Wrap(inner, errors.ErrCodeAnalysisFailed, "analysis"))

	assert.True(t, errors.IsCode(outer, errors.ErrCodeAnalysisFailed))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeArtifactsNotFound))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeTrainingFailed))
	assert.True(t, errors.IsNotFound(outer))

	assert.Equal(t, errors.ErrCodeAnalysisFailed, errors.GetCode(outer))
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
}

func TestSentinelMatchingSurvivesCopies(t *testing.T) {
	sentinel := errors.New(errors.ErrCodeLockError, "lock not acquired")
	copyWithDetail := sentinel.WithDetail("name=training")

	assert.True(t, stderrors.Is(copyWithDetail, sentinel))
	assert.False(t, stderrors.Is(errors.New(errors.ErrCodeLockError, "other"), sentinel))
}

func TestFactories(t *testing.T) {
	assert.Equal(t, errors.CodeNotFound, errors.NotFound("x").Code)
	assert.Equal(t, errors.CodeInvalidParam, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.CodeInternal, errors.Internal("x").Code)
	assert.Equal(t, errors.CodeConflict, errors.Conflict("x").Code)
	assert.Equal(t, "corpus size 0", errors.Newf(errors.ErrCodeInvalidCorpusRequest, "corpus size %d", 0).Message)
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode(errors.ErrCodeAnalysisFailed))
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.ErrCodeValidation))
	assert.Equal(t, http.StatusServiceUnavailable, errors.HTTPStatusForCode(errors.ErrCodeModelNotAvailable))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode(errors.ErrorCode("NOPE_1")))
}
