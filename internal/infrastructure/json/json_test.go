package json

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestRead(t *testing.T) {
	var p payload
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, Read(r, &p))
	assert.Equal(t, "alice", p.Name)
}

func TestRead_RejectsEmptyAndUnknown(t *testing.T) {
	var p payload

	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	assert.ErrorIs(t, Read(r, &p), ErrEmptyBody)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","role":"admin"}`))
	assert.Error(t, Read(r, &p))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 404, "room not found")

	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Not Found","message":"room not found"}`, rec.Body.String())
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"missing room", domain.ErrRoomNotFound, 404, `{"error":"Not Found","message":"room not found"}`},
		{"bad room id", fmt.Errorf("%w: too long", domain.ErrInvalidRoomID), 400, `{"error":"Bad Request","message":"invalid room id: too long"}`},
		{"bad language", domain.ErrUnsupportedLanguage, 400, `{"error":"Bad Request","message":"unsupported language"}`},
		{"empty body", ErrEmptyBody, 400, `{"error":"Bad Request","message":"request body is empty"}`},
		{"store failure", errors.New("mongo: connection refused"), 500, `{"error":"Internal Server Error","message":"An unexpected error occurred"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestStatusFor_OversizedBody(t *testing.T) {
	var p payload
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"`+strings.Repeat("a", maxBodyBytes)+`"}`))

	err := Read(r, &p)
	require.Error(t, err)
	assert.Equal(t, 413, StatusFor(err))
}

func TestWriteRateLimitError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimitError(rec, 3)

	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	WriteRateLimitError(rec, 0)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}
