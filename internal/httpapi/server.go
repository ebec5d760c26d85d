package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sdmodeld/internal/prompt"
	"sdmodeld/internal/session"
	"sdmodeld/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *session.Session satisfies it.
type Service interface {
	ModelsFor(kind types.Kind, implementation string) ([]types.Model, error)
	Model(name string) (types.Model, error)
	Refresh() []types.Model
	Embeddings() []types.Model
	Triggers() map[string]string
	IngestLine(line string) int
	IngestLog(ctx context.Context, r io.Reader) (int, error)
	Prepare(prompt, negative string) session.PreparedPrompt
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if c := corsMiddleware(); c != nil {
		r.Use(c)
	}
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		kind, err := types.ParseKind(r.URL.Query().Get("kind"))
		if err != nil {
			IncrementRejected("invalid_kind")
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		models, err := svc.ModelsFor(kind, r.URL.Query().Get("implementation"))
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, types.ModelsResponse{Models: nonNil(models)})
	})

	r.Post("/models/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: nonNil(svc.Refresh())})
	})

	r.Get("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.Model(chi.URLParam(r, "name"))
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, m)
	})

	r.Get("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: nonNil(svc.Embeddings())})
	})

	r.Get("/triggers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.TriggersResponse{Triggers: svc.Triggers()})
	})

	r.Post("/triggers", func(w http.ResponseWriter, r *http.Request) {
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mt {
		case "application/json":
			var req types.IngestRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			n := svc.IngestLine(req.Line)
			writeJSON(w, types.IngestResponse{Loaded: n, Triggers: svc.Triggers()})
		case "text/plain":
			ingestStream(w, r, svc)
		default:
			IncrementRejected("unsupported_media_type")
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json or text/plain")
		}
	})

	r.Post("/prompt/normalize", func(w http.ResponseWriter, r *http.Request) {
		var req types.NormalizeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			IncrementRejected("empty_prompt")
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		writeJSON(w, types.NormalizeResponse{Prompt: prompt.Normalize(req.Prompt)})
	})

	r.Post("/prompt/prepare", func(w http.ResponseWriter, r *http.Request) {
		var req types.PrepareRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			IncrementRejected("empty_prompt")
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		p := svc.Prepare(req.Prompt, req.Negative)
		writeJSON(w, types.PrepareResponse{Prompt: p.Prompt, Incompatible: p.Incompatible})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("scanning"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// decodeJSON enforces the JSON content type and body size limit, writing the
// error response itself. It reports whether v was decoded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		IncrementRejected("unsupported_media_type")
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// oversized bodies also land here; report them as invalid JSON
		IncrementRejected("invalid_json")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// ingestStream feeds a raw backend log body to the session until EOF, client
// disconnect or server shutdown.
func ingestStream(w http.ResponseWriter, r *http.Request, svc Service) {
	body := io.Reader(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if requestLogLevel(r) >= LevelDebug {
		lw := &loggingLineWriter{rid: middleware.GetReqID(r.Context())}
		defer lw.Flush()
		body = io.TeeReader(body, lw)
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	loaded, err := svc.IngestLog(ctx, body)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, types.IngestResponse{Loaded: loaded, Triggers: svc.Triggers()})
}

func nonNil(models []types.Model) []types.Model {
	if models == nil {
		return []types.Model{}
	}
	return models
}
