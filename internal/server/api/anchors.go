package api

import (
	"net/http"
	"strconv"

	"github.com/fabriziosardo/AR-Project/internal/store"
)

// AnchorHandler serves the anchor log at GET /api/anchors.
//
// Query parameters:
//   - artwork: only events for this reference image
//   - limit: number of events, newest first (default 100)
type AnchorHandler struct {
	store *store.Store
}

// NewAnchorHandler creates a new AnchorHandler with the given store.
func NewAnchorHandler(s *store.Store) *AnchorHandler {
	return &AnchorHandler{store: s}
}

type anchorLogResponse struct {
	Events []store.AnchorEvent `json:"events"`
	Stats  []store.AnchorStats `json:"stats"`
}

func (h *AnchorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	events, err := h.store.AnchorLog().Recent(r.URL.Query().Get("artwork"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read anchor log")
		return
	}
	stats, err := h.store.AnchorLog().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read anchor log")
		return
	}

	response := anchorLogResponse{Events: events, Stats: stats}
	if response.Events == nil {
		response.Events = []store.AnchorEvent{}
	}
	if response.Stats == nil {
		response.Stats = []store.AnchorStats{}
	}
	writeJSON(w, http.StatusOK, response)
}
