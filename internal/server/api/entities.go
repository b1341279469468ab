package api

import (
	"net/http"
	"time"

	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
)

// Snapshotter lists the live characters. *lifecycle.Manager implements it.
type Snapshotter interface {
	Snapshot() []lifecycle.EntityInfo
}

// EntityResponse is the JSON form of one managed character.
type EntityResponse struct {
	ID          string     `json:"id"`
	Artwork     string     `json:"artwork"`
	CharacterID string     `json:"character_id"`
	AnchorID    string     `json:"anchor_id,omitempty"`
	Phase       string     `json:"phase"`
	Visible     bool       `json:"visible"`
	Quality     string     `json:"quality"`
	Attempts    int        `json:"attempts"`
	SpawnedAt   time.Time  `json:"spawned_at"`
	StableSince *time.Time `json:"stable_since,omitempty"`
	Position    [3]float64 `json:"position"`
}

// EntityResponses converts a manager snapshot.
func EntityResponses(infos []lifecycle.EntityInfo) []EntityResponse {
	out := make([]EntityResponse, 0, len(infos))
	for _, e := range infos {
		r := EntityResponse{
			ID:          string(e.ID),
			Artwork:     e.Artwork,
			CharacterID: e.CharacterID,
			AnchorID:    e.AnchorID,
			Phase:       string(e.Phase),
			Visible:     e.Visible,
			Quality:     e.Quality.String(),
			Attempts:    e.Attempts,
			SpawnedAt:   e.SpawnedAt,
			Position:    [3]float64{e.Position.X, e.Position.Y, e.Position.Z},
		}
		if !e.StableSince.IsZero() {
			since := e.StableSince
			r.StableSince = &since
		}
		out = append(out, r)
	}
	return out
}

// EntitiesHandler serves GET /api/entities.
type EntitiesHandler struct {
	source Snapshotter
}

// NewEntitiesHandler creates a handler reading from source.
func NewEntitiesHandler(source Snapshotter) *EntitiesHandler {
	return &EntitiesHandler{source: source}
}

func (h *EntitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": EntityResponses(h.source.Snapshot()),
	})
}
