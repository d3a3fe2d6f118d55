package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mahirjain10/quicksvg/internal/observability"
)

type RouterConfig struct {
	PublicDir    string
	PublicPrefix string
}

// NewRouter wires the upload endpoint, health check and the read-only
// static route for converted PNGs.
func NewRouter(cfg RouterConfig, upload *UploadHandler, logger *observability.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger.WithComponent("http")))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"quicksvg"}`))
	})

	r.Post("/upload", upload.Upload)
	r.Post("/api/upload", upload.Upload)

	prefix := strings.TrimRight(cfg.PublicPrefix, "/")
	static := http.StripPrefix(prefix, noListing(http.FileServer(http.Dir(cfg.PublicDir))))
	r.Get(prefix+"/*", static.ServeHTTP)
	r.Head(prefix+"/*", static.ServeHTTP)

	return r
}

// noListing hides directory indexes so only known file names are fetchable.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
