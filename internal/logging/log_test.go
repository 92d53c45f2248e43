package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelsAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "test")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	l.Warn(ctx, "upload failed", "kind", "acte_naissance")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARNING", lines[0]["level"])
	assert.Equal(t, "upload failed", lines[0]["msg"])
	assert.Equal(t, "acte_naissance", lines[0]["kind"])
	assert.Equal(t, "req-42", lines[0]["request_id"])
	assert.Equal(t, "test", lines[0]["component"])
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "http")

	h := l.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "/healthz", lines[0]["uri"])
	assert.EqualValues(t, http.StatusTeapot, lines[0]["status"])
}

func TestGormLogger_SilentSwallowsTraces(t *testing.T) {
	var buf bytes.Buffer
	g := NewGormLogger(NewLoggerTo(&buf, "db"), gormlogger.Silent)

	g.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Empty(t, buf.String())

	g.LogMode(gormlogger.Info).Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Contains(t, buf.String(), "SELECT 1")
}
