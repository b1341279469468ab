// Package ground resolves where the physical floor is around a point in the
// room. It combines ray casts against scene colliders with the planes
// detected by the environment tracker and falls back to the point itself.
package ground

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

// LayerMask selects which collider layers a ray cast may hit.
type LayerMask uint32

// AllLayers matches every collider.
const AllLayers LayerMask = ^LayerMask(0)

// Layer returns the mask containing only layer n.
func Layer(n int) LayerMask {
	return LayerMask(1) << uint(n)
}

// Has reports whether layer n is in the mask.
func (m LayerMask) Has(n int) bool {
	return m&Layer(n) != 0
}

// DefaultLayers names the collider layers used by the guide.
var DefaultLayers = map[string]int{
	"default":   0,
	"ground":    3,
	"wall":      4,
	"character": 5,
}

// MaskFor resolves layer names against table. An empty name list selects
// every layer.
func MaskFor(names []string, table map[string]int) (LayerMask, error) {
	if len(names) == 0 {
		return AllLayers, nil
	}
	var m LayerMask
	for _, name := range names {
		n, ok := table[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown collider layer %q", name)
		}
		m |= Layer(n)
	}
	return m, nil
}

// Hit is a ray intersection.
type Hit struct {
	Point    geom.Vec
	Distance float64
}

// Raycaster intersects rays with the physical geometry of the room.
type Raycaster interface {
	Raycast(origin, dir geom.Vec, maxDistance float64, mask LayerMask) (Hit, bool)
}

// Plane is a detected physical surface.
type Plane struct {
	ID      string
	Center  geom.Vec
	Normal  geom.Vec
	Quality tracking.Quality
}

// PlaneSource enumerates the currently detected planes.
type PlaneSource interface {
	Planes() []Plane
}

// Source records which strategy produced a SurfacePoint.
type Source int

const (
	SourceRaycast Source = iota
	SourcePlane
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceRaycast:
		return "raycast"
	case SourcePlane:
		return "plane"
	default:
		return "fallback"
	}
}

// SurfacePoint is the best ground estimate for a queried point.
type SurfacePoint struct {
	Position geom.Vec
	Source   Source
}

// Config controls the probe.
type Config struct {
	Layers        LayerMask
	MaxDistance   float64 // ray range in metres
	ProbeHeight   float64 // how far above the point the downward ray starts
	Bidirectional bool    // also cast upwards and keep the nearer hit
}

// DefaultConfig returns a probe that casts 5 m down from half a metre above
// the queried point against every layer.
func DefaultConfig() Config {
	return Config{
		Layers:      AllLayers,
		MaxDistance: 5,
		ProbeHeight: 0.5,
	}
}

// Probe finds the ground around a point. It holds no state of its own; its
// answer depends only on the geometry its collaborators report at call time.
type Probe struct {
	cfg    Config
	rays   Raycaster
	planes PlaneSource
	log    zerolog.Logger
}

// NewProbe creates a Probe. Either collaborator may be nil, in which case
// the corresponding strategy is skipped.
func NewProbe(cfg Config, rays Raycaster, planes PlaneSource, logger zerolog.Logger) *Probe {
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = DefaultConfig().MaxDistance
	}
	if cfg.Layers == 0 {
		cfg.Layers = AllLayers
	}
	return &Probe{
		cfg:    cfg,
		rays:   rays,
		planes: planes,
		log:    logger,
	}
}

// FindGround returns the best estimate of the floor at point: a collider hit,
// then the nearest stable plane, then point itself.
func (p *Probe) FindGround(point geom.Vec) SurfacePoint {
	if hit, ok := p.raycast(point); ok {
		return SurfacePoint{Position: hit.Point, Source: SourceRaycast}
	}

	if projected, ok := p.nearestPlane(point); ok {
		return SurfacePoint{Position: projected, Source: SourcePlane}
	}

	p.log.Warn().
		Float64("x", point.X).Float64("y", point.Y).Float64("z", point.Z).
		Msg("no ground found, using unresolved height")
	return SurfacePoint{Position: point, Source: SourceFallback}
}

func (p *Probe) raycast(point geom.Vec) (Hit, bool) {
	if p.rays == nil {
		return Hit{}, false
	}

	origin := r3.Add(point, r3.Scale(p.cfg.ProbeHeight, geom.AxisUp))
	down, downOK := p.rays.Raycast(origin, r3.Scale(-1, geom.AxisUp), p.cfg.MaxDistance, p.cfg.Layers)
	if !p.cfg.Bidirectional {
		return down, downOK
	}

	up, upOK := p.rays.Raycast(point, geom.AxisUp, p.cfg.MaxDistance, p.cfg.Layers)
	switch {
	case downOK && upOK:
		if geom.Distance(up.Point, point) < geom.Distance(down.Point, point) {
			return up, true
		}
		return down, true
	case downOK:
		return down, true
	case upOK:
		return up, true
	}
	return Hit{}, false
}

func (p *Probe) nearestPlane(point geom.Vec) (geom.Vec, bool) {
	if p.planes == nil {
		return geom.Vec{}, false
	}

	var candidates []Plane
	for _, pl := range p.planes.Planes() {
		if pl.Quality != tracking.QualityFull {
			continue
		}
		if r3.Norm(pl.Normal) == 0 {
			continue
		}
		candidates = append(candidates, pl)
	}
	if len(candidates) == 0 {
		return geom.Vec{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return geom.Distance(candidates[i].Center, point) < geom.Distance(candidates[j].Center, point)
	})

	best := candidates[0]
	p.log.Debug().Str("plane", best.ID).Msg("ground resolved from detected plane")
	return Project(point, best.Center, best.Normal), true
}

// Project returns point projected orthogonally onto the plane through center
// with the given normal.
func Project(point, center, normal geom.Vec) geom.Vec {
	n := geom.Normalize(normal)
	d := r3.Dot(r3.Sub(point, center), n)
	if math.IsNaN(d) {
		return point
	}
	return r3.Sub(point, r3.Scale(d, n))
}
