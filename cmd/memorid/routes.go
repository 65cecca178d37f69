package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kadirpekel/memori/pkg/memori"
	"github.com/kadirpekel/memori/pkg/tenant"
)

func newRouter(m *memori.Memori, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth(m))
	mux.HandleFunc("GET /v1/search", handleSearch(m, log))
	mux.HandleFunc("GET /v1/stats", handleStats(m, log))
	mux.Handle("GET /metrics", m.MetricsHandler())
	return mux
}

func handleHealth(m *memori.Memori) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "disabled"
		if m.Enabled() {
			status = "ok"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func tenantFromQuery(q map[string][]string) tenant.Context {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return tenant.Context{UserID: get("user_id"), AssistantID: get("assistant_id"), SessionID: get("session_id")}
}

func handleSearch(m *memori.Memori, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tc := tenantFromQuery(q)
		query := q.Get("q")
		limit := 10
		if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
			limit = l
		}

		hits, err := m.Search(r.Context(), tc, query, limit)
		if err != nil {
			log.Warn("memorid: search failed", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
	}
}

func handleStats(m *memori.Memori, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc := tenantFromQuery(r.URL.Query())
		stats, err := m.GetStats(r.Context(), tc)
		if err != nil {
			log.Warn("memorid: stats failed", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
