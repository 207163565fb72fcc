package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/errors"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details map[string]any  `json:"details"`
	State   string          `json:"state"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func newErrorTestAPI(t *testing.T, fail error) humatest.TestAPI {
	t.Helper()
	RegisterErrorHandler()

	config := huma.DefaultConfig("Test", "1.0.0")
	config.Transformers = append(config.Transformers, EnvelopeTransformer)
	_, api := humatest.New(t, config)

	huma.Register(api, huma.Operation{
		OperationID: "fail",
		Method:      http.MethodGet,
		Path:        "/fail",
	}, func(_ context.Context, _ *struct{}) (*OKOutput, error) {
		if fail != nil {
			return nil, fail
		}
		return ok(), nil
	})
	return api
}

func TestEnvelopeTransformer_WrapsSuccess(t *testing.T) {
	api := newErrorTestAPI(t, nil)

	resp := api.Get("/fail")

	assert.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))
}

func TestErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCode     string
		wantRedirect string
	}{
		{
			name:         "unauthorized goes to sign in",
			err:          errors.Unauthorized("Please sign in to continue."),
			wantStatus:   http.StatusUnauthorized,
			wantCode:     "UNAUTHORIZED",
			wantRedirect: "/signin",
		},
		{
			name:         "forbidden goes to forbidden page",
			err:          errors.Forbidden("Admin access required."),
			wantStatus:   http.StatusForbidden,
			wantCode:     "FORBIDDEN",
			wantRedirect: "/forbidden",
		},
		{
			name:         "post limit keeps membership redirect",
			err:          errors.PostLimitReached(5).WithDetails(map[string]string{"redirect": "/membership"}),
			wantStatus:   http.StatusForbidden,
			wantCode:     "POST_LIMIT_REACHED",
			wantRedirect: "/membership",
		},
		{
			name:       "upstream not found",
			err:        errors.FromStatus(http.StatusNotFound, "Post not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newErrorTestAPI(t, tt.err)

			resp := api.Get("/fail")

			assert.Equal(t, tt.wantStatus, resp.Code)
			env := decodeEnvelope(t, resp.Body.Bytes())
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Error)
			if tt.wantRedirect != "" {
				assert.Equal(t, tt.wantRedirect, env.Details["redirect"])
			}
		})
	}
}
