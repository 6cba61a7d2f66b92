package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qrcraft/qrcraft/studio"
)

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Studio      *studio.Studio
	Log         *slog.Logger
	Version     string
	DefaultSize int
	// MaxUploadBytes bounds the multipart body of a logo upload.
	MaxUploadBytes int64
}

// NewRouter returns a fully configured chi router with all front-end routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Log))

	r.Get("/", s.handlePage)
	r.Get("/status", s.handleStatus)

	r.Post("/logo", s.handleSelectLogo)
	r.Delete("/logo", s.handleClearLogo)

	r.Post("/generate", s.handleGenerate)

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- middleware --------------------------------------------------------------

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
