package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
)

// NewHandler serves the catalog to the companion website.
//
//	GET /health         liveness and server version
//	GET /catalog        platform list; ?context=, ?q=, ?category= filters
//	GET /catalog/{id}   one platform
func NewHandler(s *Store, version string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	mux.HandleFunc("GET /catalog", func(w http.ResponseWriter, r *http.Request) {
		f := Filter{
			Context:  engine.Context(r.URL.Query().Get("context")),
			Query:    r.URL.Query().Get("q"),
			Category: r.URL.Query().Get("category"),
		}
		platforms, err := s.List(f)
		if err != nil {
			logger.Error("[Catalog] List failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
			return
		}
		if platforms == nil {
			platforms = []Platform{}
		}
		writeJSON(w, http.StatusOK, platforms)
	})

	mux.HandleFunc("GET /catalog/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, ok, err := s.Get(r.PathValue("id"))
		if err != nil {
			logger.Error("[Catalog] Get failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "platform not found"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("[Catalog] Failed to encode response: %v", err)
	}
}
