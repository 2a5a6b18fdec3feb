package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN", "prod"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("", "dev"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("", "prod"))
}

func TestJSONLoggerInProd(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "info")
	log.Debug("hidden")
	log.Info("booking created", "booking_id", "bk-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "booking created", line["msg"])
	assert.Equal(t, "bk-1", line["booking_id"])
}

func TestRequestIDPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware{}.RequestID())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	healthy := HealthHandlers{Checks: map[string]Check{"db": func(context.Context) error { return nil }}}
	broken := HealthHandlers{Checks: map[string]Check{"db": func(context.Context) error { return errors.New("down") }}}
	r.GET("/ok", healthy.Readyz)
	r.GET("/broken", broken.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "down")
}
