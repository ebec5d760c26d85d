package httpapi

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("SDMODELD_LOG_LEVEL"))

// SetDefaultLogLevel overrides the level used when a request carries no
// override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// RequestLogger logs request start and end at the per-request level. Errors
// (status >= 500) are logged from LevelError up.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lvl := requestLogLevel(r)
		if lvl == LevelOff {
			next.ServeHTTP(w, r)
			return
		}
		rid := middleware.GetReqID(r.Context())
		if lvl >= LevelDebug {
			logf(rid, "request start method=%s path=%s", r.Method, r.URL.Path)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if lvl >= LevelInfo || status >= http.StatusInternalServerError {
			logEnd(rid, r, status, time.Since(start))
		}
	})
}

func logEnd(rid string, r *http.Request, status int, dur time.Duration) {
	if zlog != nil {
		ev := zlog.Info()
		if status >= http.StatusInternalServerError {
			ev = zlog.Error()
		}
		if rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Dur("dur", dur).Msg("request end")
		return
	}
	log.Printf("request end method=%s path=%s status=%d dur=%s request_id=%s", r.Method, r.URL.Path, status, dur, rid)
}

func logf(rid, format string, args ...any) {
	if zlog != nil {
		ev := zlog.Debug()
		if rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Msgf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// loggingLineWriter logs complete backend output lines. It is teed onto
// streamed ingestion bodies at debug level.
type loggingLineWriter struct {
	rid string
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := strings.TrimRight(string(lw.buf[:idx]), "\r"); line != "" {
			logf(lw.rid, "backend> %s", line)
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (lw *loggingLineWriter) Flush() {
	if len(lw.buf) > 0 {
		logf(lw.rid, "backend> %s", string(lw.buf))
		lw.buf = nil
	}
}
