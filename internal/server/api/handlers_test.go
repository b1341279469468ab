package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/dialogue"
	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
	"github.com/fabriziosardo/AR-Project/internal/refimage"
	"github.com/fabriziosardo/AR-Project/internal/store"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

func TestDialogueHandler(t *testing.T) {
	c := dialogue.NewController(zerolog.Nop())
	c.InitializeDialogue("char-1", artwork.Config{ReferenceImage: "starry-night", Dialogue: []string{"Hello!", "Look up.", "Bye."}})
	handler := NewDialogueHandler(c)

	do := func(method, path string) (*httptest.ResponseRecorder, dialogue.Page) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		var page dialogue.Page
		if rec.Code == http.StatusOK {
			if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
		}
		return rec, page
	}

	rec, page := do(http.MethodGet, "/api/dialogue/char-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if page.Text != "Hello!" || page.Title != "starry-night" || page.Total != 3 {
		t.Errorf("GET page = %+v", page)
	}

	_, page = do(http.MethodPost, "/api/dialogue/char-1/next")
	if page.Text != "Look up." || page.Index != 1 {
		t.Errorf("next page = %+v", page)
	}

	_, page = do(http.MethodPost, "/api/dialogue/char-1/previous")
	if page.Text != "Hello!" || page.Index != 0 {
		t.Errorf("previous page = %+v", page)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown character", http.MethodGet, "/api/dialogue/nobody", http.StatusNotFound},
		{"unknown action", http.MethodPost, "/api/dialogue/char-1/skip", http.StatusNotFound},
		{"missing character", http.MethodGet, "/api/dialogue/", http.StatusNotFound},
		{"advance needs POST", http.MethodGet, "/api/dialogue/char-1/next", http.StatusMethodNotAllowed},
		{"page needs GET", http.MethodDelete, "/api/dialogue/char-1", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(tt.method, tt.path)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

type staticSnapshot []lifecycle.EntityInfo

func (s staticSnapshot) Snapshot() []lifecycle.EntityInfo { return s }

func TestEntitiesHandler(t *testing.T) {
	spawned := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	handler := NewEntitiesHandler(staticSnapshot{
		{
			ID:          tracking.EntityID("e1"),
			Artwork:     "starry-night",
			CharacterID: "char-1",
			AnchorID:    "anchor-1",
			Phase:       lifecycle.PhaseAnchored,
			Visible:     true,
			Quality:     tracking.QualityFull,
			Attempts:    1,
			SpawnedAt:   spawned,
			StableSince: spawned,
			Position:    geom.Vec{X: 1, Z: 1.5},
		},
		{ID: "e2", Artwork: "mona-lisa", Phase: lifecycle.PhaseUnanchored, Quality: tracking.QualityLimited},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		Entities []EntityResponse `json:"entities"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(response.Entities))
	}

	first := response.Entities[0]
	if first.Phase != "anchored" || first.Quality != "full" || first.AnchorID != "anchor-1" {
		t.Errorf("first entity = %+v", first)
	}
	if first.Position != [3]float64{1, 0, 1.5} {
		t.Errorf("position = %v, want [1 0 1.5]", first.Position)
	}
	if first.StableSince == nil || !first.StableSince.Equal(spawned) {
		t.Errorf("stable_since = %v, want %v", first.StableSince, spawned)
	}
	if response.Entities[1].StableSince != nil {
		t.Error("expected no stable_since for an entity that never stabilized")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/entities", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestAnchorHandler(t *testing.T) {
	s := newTestStore(t)
	log := s.AnchorLog()
	for _, e := range []store.AnchorEvent{
		{Kind: "anchor_requested", EntityID: "e1", Artwork: "starry-night"},
		{Kind: "anchored", EntityID: "e1", Artwork: "starry-night", AnchorID: "a1"},
		{Kind: "anchor_requested", EntityID: "e2", Artwork: "mona-lisa"},
		{Kind: "anchor_failed", EntityID: "e2", Artwork: "mona-lisa", Error: "no surface"},
	} {
		if err := log.Append(&e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	handler := NewAnchorHandler(s)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anchors?artwork=starry-night&limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response anchorLogResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Events) != 1 || response.Events[0].Kind != "anchored" {
		t.Errorf("events = %+v, want the latest starry-night event", response.Events)
	}
	if len(response.Stats) != 2 {
		t.Fatalf("expected stats for 2 artworks, got %d", len(response.Stats))
	}
	if response.Stats[0].Artwork != "mona-lisa" || response.Stats[0].Failed != 1 {
		t.Errorf("mona-lisa stats = %+v", response.Stats[0])
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anchors?limit=lots", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestReferencesHandler_Disabled(t *testing.T) {
	handler := NewReferencesHandler(func() *refimage.Library { return nil })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/references", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response referencesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Checked {
		t.Error("expected checked to be false without an analyzer")
	}
	if response.References == nil || len(response.References) != 0 {
		t.Errorf("references = %v, want an empty list", response.References)
	}
}
