package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
)

const (
	LvlDebug = "DEBUG"
	LvlInfo  = "INFO"
	LvlWarn  = "WARNING"
	LvlErr   = "ERROR"
)

func NewLogger(component string) *Logger {
	return NewLoggerTo(os.Stderr, component)
}

func NewLoggerTo(w io.Writer, component string) *Logger {
	var kitlogger log.Logger
	kitlogger = log.NewJSONLogger(log.NewSyncWriter(w))
	kitlogger = log.With(kitlogger, "ts", log.DefaultTimestampUTC)
	kitlogger = log.With(kitlogger, "component", component)

	return &Logger{kitlogger}
}

// Nop discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{log.NewNopLogger()}
}

type Logger struct {
	log.Logger
}

func (l *Logger) Debug(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlDebug, message, keyvals)
}

func (l *Logger) Info(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlInfo, message, keyvals)
}

func (l *Logger) Warn(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlWarn, message, keyvals)
}

func (l *Logger) Err(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlErr, message, keyvals)
}

func (l *Logger) logWithLvl(ctx context.Context, lvl string, message string, keyvals []interface{}) {
	if ctx != nil {
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			keyvals = append(keyvals, "request_id", reqID)
		}
	}
	keyvals = append(keyvals, "level", lvl, "msg", message)
	_ = l.Log(keyvals...)
}

// RequestLogger logs one line per request once the handler returns.
func (l *Logger) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, req)

		l.Info(req.Context(), "http request",
			"method", req.Method,
			"uri", req.RequestURI,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
