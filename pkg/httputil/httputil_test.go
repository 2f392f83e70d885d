package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{apperrors.Validation("model is required"), http.StatusBadRequest, `{"error":"model is required"}`},
		{apperrors.UnknownModel("gpt-99"), http.StatusBadRequest, `{"error":"unknown model: gpt-99"}`},
		{apperrors.AuthFailure("incorrect username or password"), http.StatusUnauthorized, `{"error":"incorrect username or password"}`},
		{apperrors.ForbiddenRole("nope"), http.StatusForbidden, `{"error":"nope"}`},
		{apperrors.NotFound("file", "f1"), http.StatusNotFound, `{"error":"file not found: f1"}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"error":"boom"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)
		assert.JSONEq(t, tc.body, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestParseJSONOrError(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"a"}`))
	rec := httptest.NewRecorder()
	var p payload
	require.True(t, ParseJSONOrError(rec, req, &p))
	assert.Equal(t, "a", p.Name)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{not json`))
	rec = httptest.NewRecorder()
	assert.False(t, ParseJSONOrError(rec, req, &p))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?limit=5", nil)
	val, err := ParseQueryInt(req, "limit", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, val)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	val, err = ParseQueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, val)

	req = httptest.NewRequest(http.MethodGet, "/x?limit=many", nil)
	_, err = ParseQueryInt(req, "limit", 0)
	assert.Error(t, err)
}

func TestRequireNonEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(rec, "x", "visibility"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(rec, "", "visibility"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"visibility is required"}`, rec.Body.String())
}
