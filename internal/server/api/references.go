package api

import (
	"net/http"

	"github.com/fabriziosardo/AR-Project/internal/refimage"
)

// ReferencesHandler reports the checked reference image library at
// GET /api/references. Images that may track poorly carry a problem.
type ReferencesHandler struct {
	library func() *refimage.Library
}

// NewReferencesHandler creates a handler. library is called on every
// request so a reloaded library is picked up.
func NewReferencesHandler(library func() *refimage.Library) *ReferencesHandler {
	return &ReferencesHandler{library: library}
}

type referencesResponse struct {
	Checked    bool             `json:"checked"`
	Problems   int              `json:"problems"`
	References []refimage.Image `json:"references"`
}

func (h *ReferencesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lib := h.library()
	response := referencesResponse{
		Checked:    lib != nil,
		Problems:   lib.Problems(),
		References: lib.Images(),
	}
	if response.References == nil {
		response.References = []refimage.Image{}
	}
	writeJSON(w, http.StatusOK, response)
}
