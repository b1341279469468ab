package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/ground"
)

// Collider is a horizontal rectangle, such as a floor, a step or a plinth
// top, centred on Center and extending HalfX and HalfZ metres along the
// world axes.
type Collider struct {
	Name   string
	Layer  int
	Center geom.Vec
	HalfX  float64
	HalfZ  float64
}

// intersect returns the distance along dir at which the ray meets the
// collider. dir must be unit length.
func (c Collider) intersect(origin, dir geom.Vec, maxDistance float64) (float64, bool) {
	if math.Abs(dir.Y) < 1e-9 {
		return 0, false
	}
	t := (c.Center.Y - origin.Y) / dir.Y
	if t < 0 || t > maxDistance {
		return 0, false
	}
	p := r3.Add(origin, r3.Scale(t, dir))
	if math.Abs(p.X-c.Center.X) > c.HalfX || math.Abs(p.Z-c.Center.Z) > c.HalfZ {
		return 0, false
	}
	return t, true
}

// AddCollider places a surface in the room.
func (w *World) AddCollider(c Collider) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.colliders = append(w.colliders, c)
}

// RemoveCollider removes every collider with the given name and reports how
// many were removed.
func (w *World) RemoveCollider(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.colliders[:0]
	n := 0
	for _, c := range w.colliders {
		if c.Name == name {
			n++
			continue
		}
		kept = append(kept, c)
	}
	w.colliders = kept
	return n
}

// Raycast implements ground.Raycaster. It returns the nearest collider on a
// layer in mask.
func (w *World) Raycast(origin, dir geom.Vec, maxDistance float64, mask ground.LayerMask) (ground.Hit, bool) {
	dir = geom.Normalize(dir)
	if dir == (geom.Vec{}) || maxDistance <= 0 {
		return ground.Hit{}, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	best := math.Inf(1)
	for _, c := range w.colliders {
		if !mask.Has(c.Layer) {
			continue
		}
		if t, ok := c.intersect(origin, dir, maxDistance); ok && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return ground.Hit{}, false
	}
	return ground.Hit{Point: r3.Add(origin, r3.Scale(best, dir)), Distance: best}, true
}

// AddPlane reports a newly detected surface.
func (w *World) AddPlane(p ground.Plane) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.planes {
		if w.planes[i].ID == p.ID {
			w.planes[i] = p
			return
		}
	}
	w.planes = append(w.planes, p)
}

// ClearPlanes forgets every detected surface.
func (w *World) ClearPlanes() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.planes = nil
}

// Planes implements ground.PlaneSource.
func (w *World) Planes() []ground.Plane {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]ground.Plane(nil), w.planes...)
}
