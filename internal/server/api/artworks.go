// Package api provides HTTP API handlers for the museum guide.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/store"
)

// ArtworkHandler handles HTTP requests for artwork resources.
type ArtworkHandler struct {
	store    *store.Store
	onChange func() error
}

// NewArtworkHandler creates a new ArtworkHandler with the given store.
// onChange, if set, runs after every successful write so the live registry
// can be rebuilt.
func NewArtworkHandler(s *store.Store, onChange func() error) *ArtworkHandler {
	return &ArtworkHandler{store: s, onChange: onChange}
}

// ServeHTTP routes /api/artworks and /api/artworks/{id}.
func (h *ArtworkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/artworks")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type artworkRequest struct {
	ReferenceImage   string      `json:"reference_image"`
	Template         string      `json:"template"`
	Offset           *[3]float64 `json:"offset"`
	Scale            float64     `json:"scale"`
	DistanceFromWall *float64    `json:"distance_from_wall"`
	Description      string      `json:"description"`
	ImagePath        string      `json:"image_path"`
	PhysicalWidth    float64     `json:"physical_width"`
	Dialogue         []string    `json:"dialogue"`
}

type artworkResponse struct {
	ID               string     `json:"id"`
	ReferenceImage   string     `json:"reference_image"`
	Template         string     `json:"template"`
	Offset           [3]float64 `json:"offset"`
	Scale            float64    `json:"scale"`
	DistanceFromWall float64    `json:"distance_from_wall"`
	Description      string     `json:"description,omitempty"`
	ImagePath        string     `json:"image_path,omitempty"`
	PhysicalWidth    float64    `json:"physical_width,omitempty"`
	Dialogue         []string   `json:"dialogue"`
	CreatedAt        string     `json:"created_at"`
	UpdatedAt        string     `json:"updated_at"`
}

type listArtworksResponse struct {
	Artworks []artworkResponse `json:"artworks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(a *store.Artwork) artworkResponse {
	dialogue := a.Dialogue
	if dialogue == nil {
		dialogue = []string{}
	}
	return artworkResponse{
		ID:               a.ID,
		ReferenceImage:   a.ReferenceImage,
		Template:         a.Template,
		Offset:           [3]float64{a.Offset.X, a.Offset.Y, a.Offset.Z},
		Scale:            a.Scale,
		DistanceFromWall: a.DistanceFromWall,
		Description:      a.Description,
		ImagePath:        a.ImagePath,
		PhysicalWidth:    a.PhysicalWidth,
		Dialogue:         dialogue,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// apply copies the request fields that were set onto a.
func (req *artworkRequest) apply(a *store.Artwork) {
	if req.ReferenceImage != "" {
		a.ReferenceImage = req.ReferenceImage
	}
	if req.Template != "" {
		a.Template = req.Template
	}
	if req.Offset != nil {
		a.Offset = geom.Vec{X: req.Offset[0], Y: req.Offset[1], Z: req.Offset[2]}
	}
	if req.Scale != 0 {
		a.Scale = req.Scale
	}
	if req.DistanceFromWall != nil {
		a.DistanceFromWall = *req.DistanceFromWall
	}
	if req.Description != "" {
		a.Description = req.Description
	}
	if req.ImagePath != "" {
		a.ImagePath = req.ImagePath
	}
	if req.PhysicalWidth != 0 {
		a.PhysicalWidth = req.PhysicalWidth
	}
	if req.Dialogue != nil {
		a.Dialogue = req.Dialogue
	}
}

func validate(a *store.Artwork) string {
	switch {
	case a.ReferenceImage == "":
		return "reference_image is required"
	case a.Template == "":
		return "template is required"
	case a.Scale <= 0:
		return "scale must be positive"
	case a.DistanceFromWall < 0:
		return "distance_from_wall must not be negative"
	case a.PhysicalWidth < 0:
		return "physical_width must not be negative"
	}
	return ""
}

// reload refreshes the live registry. A failure is reported to the client
// but the write itself has already succeeded.
func (h *ArtworkHandler) reload(w http.ResponseWriter) bool {
	if h.onChange == nil {
		return true
	}
	if err := h.onChange(); err != nil {
		writeError(w, http.StatusInternalServerError, "Saved, but failed to reload artworks")
		return false
	}
	return true
}

// list handles GET /api/artworks and returns all artworks.
func (h *ArtworkHandler) list(w http.ResponseWriter, r *http.Request) {
	artworks, err := h.store.Artworks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list artworks")
		return
	}

	response := listArtworksResponse{
		Artworks: make([]artworkResponse, 0, len(artworks)),
	}
	for _, a := range artworks {
		response.Artworks = append(response.Artworks, toResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/artworks/{id}.
func (h *ArtworkHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.store.Artworks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Artwork not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get artwork")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(a))
}

// create handles POST /api/artworks.
func (h *ArtworkHandler) create(w http.ResponseWriter, r *http.Request) {
	var req artworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a := &store.Artwork{
		ID:    uuid.New().String(),
		Scale: 1,
	}
	req.apply(a)
	if msg := validate(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.store.Artworks().GetByReferenceImage(a.ReferenceImage); err == nil {
		writeError(w, http.StatusConflict, "Reference image already catalogued")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to create artwork")
		return
	}

	if err := h.store.Artworks().Create(a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create artwork")
		return
	}
	if !h.reload(w) {
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(a))
}

// update handles PUT /api/artworks/{id}. Only the fields present in the
// request are changed.
func (h *ArtworkHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.store.Artworks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Artwork not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get artwork")
		return
	}

	var req artworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	previous := a.ReferenceImage
	req.apply(a)
	if msg := validate(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if a.ReferenceImage != previous {
		if other, err := h.store.Artworks().GetByReferenceImage(a.ReferenceImage); err == nil && other.ID != a.ID {
			writeError(w, http.StatusConflict, "Reference image already catalogued")
			return
		}
	}

	if err := h.store.Artworks().Update(a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update artwork")
		return
	}
	if !h.reload(w) {
		return
	}

	writeJSON(w, http.StatusOK, toResponse(a))
}

// delete handles DELETE /api/artworks/{id}. Characters already spawned for
// the artwork stay until their image is lost.
func (h *ArtworkHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Artworks().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Artwork not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete artwork")
		return
	}
	if !h.reload(w) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
