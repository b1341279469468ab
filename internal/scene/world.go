// Package scene is an in-memory room: floor colliders, detected planes, a
// camera, anchors and guide characters. The dev host drives it from replayed
// or websocket-fed tracking sessions, and tests use it as the environment the
// lifecycle manager talks to.
package scene

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/ground"
	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
	"github.com/fabriziosardo/AR-Project/internal/placement"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

// World holds every object in the room.
type World struct {
	mu         sync.RWMutex
	colliders  []Collider
	planes     []ground.Plane
	camera     geom.Vec
	templates  map[string]bool
	characters map[string]*Character
	anchors    map[string]*Anchor

	anchorOpts AnchorOptions
	log        zerolog.Logger
}

// New creates an empty room with the camera at eye height over the origin.
// Templates lists the character models that can be spawned; an empty list
// accepts any name.
func New(templates []string, logger zerolog.Logger) *World {
	w := &World{
		camera:     geom.Vec{Y: 1.6},
		characters: make(map[string]*Character),
		anchors:    make(map[string]*Anchor),
		log:        logger,
	}
	if len(templates) > 0 {
		w.templates = make(map[string]bool, len(templates))
		for _, t := range templates {
			w.templates[t] = true
		}
	}
	return w
}

// NewGallery returns a room with a 20x20 m floor at y=0 on the ground layer
// and a matching detected plane.
func NewGallery(templates []string, logger zerolog.Logger) *World {
	w := New(templates, logger)
	w.AddCollider(Collider{
		Name:   "floor",
		Layer:  ground.DefaultLayers["ground"],
		Center: geom.Vec{},
		HalfX:  10,
		HalfZ:  10,
	})
	w.AddPlane(ground.Plane{
		ID:      "floor",
		Center:  geom.Vec{},
		Normal:  geom.AxisUp,
		Quality: tracking.QualityFull,
	})
	return w
}

// SetCamera moves the viewer.
func (w *World) SetCamera(pos geom.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.camera = pos
}

// CameraPosition implements placement.Viewpoint.
func (w *World) CameraPosition() geom.Vec {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.camera
}

// Stats is a summary of the room contents.
type Stats struct {
	Colliders  int `json:"colliders"`
	Planes     int `json:"planes"`
	Characters int `json:"characters"`
	Anchors    int `json:"anchors"`
}

// Stats counts the objects currently in the room.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Stats{
		Colliders:  len(w.colliders),
		Planes:     len(w.planes),
		Characters: len(w.characters),
		Anchors:    len(w.anchors),
	}
}

var (
	_ ground.Raycaster         = (*World)(nil)
	_ ground.PlaneSource       = (*World)(nil)
	_ placement.Viewpoint      = (*World)(nil)
	_ lifecycle.Spawner        = (*World)(nil)
	_ lifecycle.AnchorProvider = (*World)(nil)
)
