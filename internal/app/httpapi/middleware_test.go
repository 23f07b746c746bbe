package httpapi

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func TestWithLogging_SemRequestID_DeveGerarUUID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	w := httptest.NewRecorder()
	WithLogging(logger, okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/votes", nil))

	id := w.Header().Get(requestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, buf.String(), id)
	assert.Contains(t, buf.String(), `"status":201`)
}

func TestWithLogging_ComRequestID_DeveReaproveitar(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/votes", nil)
	req.Header.Set(requestIDHeader, "abc-123")

	w := httptest.NewRecorder()
	WithLogging(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), okHandler()).ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestCORS_Preflight_DeveResponderSemChamarProximo(t *testing.T) {
	chamado := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { chamado = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/ballots", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	CORS("*", next).ServeHTTP(w, req)

	assert.False(t, chamado)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORS_OrigemConfigurada_DeveSerFixa(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/votes", nil)
	req.Header.Set("Origin", "https://outro.example")
	w := httptest.NewRecorder()

	CORS("https://app.example", okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SemOrigem_DeveUsarCuringa(t *testing.T) {
	w := httptest.NewRecorder()

	CORS("", okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
