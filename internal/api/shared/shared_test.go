package shared

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := SetTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.Len(t, traceID, 2*traceIDLength)

	// Fresh contexts get fresh IDs.
	other := GetTraceID(SetTraceID(context.Background()))
	assert.NotEqual(t, traceID, other)

	assert.Empty(t, GetTraceID(context.Background()))
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	t.Parallel()

	ctx := SetTraceID(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, http.StatusNotFound, "Task not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Task not found", resp.Error)
	assert.Equal(t, GetTraceID(ctx), resp.TraceID)
}

func TestDecodeAndValidate(t *testing.T) {
	t.Parallel()

	type body struct {
		Name string `json:"name" validate:"required"`
	}

	req := httptest.NewRequest(
		http.MethodPost, "/", strings.NewReader(`{"name":"sync"}`))

	var b body
	require.NoError(t, DecodeJSON(req, &b))
	assert.Equal(t, "sync", b.Name)
	assert.NoError(t, ValidateRequest(b))

	assert.Error(t, ValidateRequest(body{}), "missing required field")

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, DecodeJSON(bad, &b))
}
