package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, http.StatusOK, map[string]string{"id": "ds-1"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"ds-1"}`, rec.Body.String())
}

func TestWriteNotFoundError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteNotFoundError(rec, "data set not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"data set not found"}`, rec.Body.String())
}

func TestWriteForbidden(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteForbidden(rec, "access denied")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
}

func TestWriteDetailedError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteDetailedError(rec, http.StatusBadRequest, errors.New("invalid meta types"), map[string]string{
		"types[0]": "unknown meta type: invalid1",
		"types[1]": "unknown meta type: invalid2",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid meta types", resp.Error)
	assert.Len(t, resp.Details, 2)
	assert.Contains(t, resp.Details["types[1]"], "invalid2")
}
