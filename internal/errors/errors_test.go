package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus_MapsCodes(t *testing.T) {
	tests := []struct {
		status int
		want   Code
	}{
		{http.StatusBadRequest, CodeValidation},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeConflict},
		{http.StatusTooManyRequests, CodeRateLimited},
		{http.StatusBadGateway, CodeUnavailable},
		{http.StatusTeapot, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "")
			assert.Equal(t, tt.want, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, http.StatusText(tt.status), err.Message)
		})
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("load posts: %w", FromStatus(http.StatusNotFound, "no posts"))

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrForbidden))
}

func TestMessage_PrefersServerMessage(t *testing.T) {
	assert.Equal(t, "tag already exists", Message(FromStatus(http.StatusConflict, "tag already exists"), "fallback"))
	assert.Equal(t, "fallback", Message(fmt.Errorf("plain"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
}

func TestPostLimitReached(t *testing.T) {
	err := PostLimitReached(5)

	assert.True(t, Is(err, ErrPostLimitReached))
	assert.Equal(t, http.StatusForbidden, err.HTTPStatus())
	assert.Contains(t, err.Message, "5 post limit")
}

func TestUnavailable_Unwraps(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Unavailable(cause, "remote API unreachable")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Contains(t, err.Error(), "dial tcp")
}
