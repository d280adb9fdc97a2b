package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// DiagnosticsHandler exposes the graph store on the admin port.
type DiagnosticsHandler struct {
	store  *GraphStore
	logger zerolog.Logger
}

func NewDiagnosticsHandler(store *GraphStore, logger zerolog.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		store:  store,
		logger: logger,
	}
}

func (h *DiagnosticsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/debug/graphs", h.ListGraphs).Methods("GET")
	router.HandleFunc("/debug/graphs/{key}/summary", h.GraphSummary).Methods("GET")
	router.HandleFunc("/debug/graphs/{key}/verify", h.VerifyGraph).Methods("GET")
}

func (h *DiagnosticsHandler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	entries := h.store.Entries()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"graphs": entries,
		"count":  len(entries),
	})
}

func (h *DiagnosticsHandler) GraphSummary(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, entry.Graph.Summary())
}

// VerifyGraph re-runs the structural checks on a cached graph.
func (h *DiagnosticsHandler) VerifyGraph(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	valid, reason := entry.Graph.Verify()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":    entry.Key,
		"ok":     valid,
		"reason": reason,
	})
}

func (h *DiagnosticsHandler) entry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	key := mux.Vars(r)["key"]
	entry, ok := h.store.Lookup(key)
	if !ok {
		http.Error(w, "graph not found", http.StatusNotFound)
		return nil, false
	}
	return entry, true
}

func (h *DiagnosticsHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode diagnostics response")
	}
}
