package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fabriziosardo/AR-Project/internal/dialogue"
)

// DialogueHandler pages through a character's dialogue.
//
//	GET  /api/dialogue/{characterID}          current page
//	POST /api/dialogue/{characterID}/next     advance
//	POST /api/dialogue/{characterID}/previous step back
type DialogueHandler struct {
	controller *dialogue.Controller
}

// NewDialogueHandler creates a new DialogueHandler.
func NewDialogueHandler(c *dialogue.Controller) *DialogueHandler {
	return &DialogueHandler{controller: c}
}

func (h *DialogueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/dialogue"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	id := parts[0]

	var (
		page dialogue.Page
		err  error
	)
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		page, err = h.controller.Page(id)
	case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "next":
		page, err = h.controller.Advance(id, true)
	case len(parts) == 2 && r.Method == http.MethodPost && parts[1] == "previous":
		page, err = h.controller.Advance(id, false)
	case len(parts) == 2 && parts[1] != "next" && parts[1] != "previous":
		writeError(w, http.StatusNotFound, "Not found")
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err != nil {
		if errors.Is(err, dialogue.ErrNoDialogue) {
			writeError(w, http.StatusNotFound, "Character has no dialogue")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read dialogue")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
