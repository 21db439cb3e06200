package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketIDShape(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateTicketID()
		assert.Regexp(t, re, id)
		assert.False(t, seen[id], "duplicate ticket id %s", id)
		seen[id] = true
	}
}

func TestGenerateQRCodeIsDistinct(t *testing.T) {
	a, b := GenerateQRCode(), GenerateQRCode()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "Ticket not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Ticket not found", body.Error)
}
