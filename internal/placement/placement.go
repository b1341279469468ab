// Package placement computes where a character stands next to a tracked
// artwork and which way it faces.
package placement

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/ground"
)

// Viewpoint reports the position of the main camera.
type Viewpoint interface {
	CameraPosition() geom.Vec
}

// GroundFinder resolves the floor around a point. *ground.Probe implements it.
type GroundFinder interface {
	FindGround(point geom.Vec) ground.SurfacePoint
}

// Config controls how the ground result and the viewpoint are applied.
type Config struct {
	// SnapToGround takes the full probe point instead of only its height.
	// Used when characters are pinned to anchors.
	SnapToGround bool
	// YawCorrection is added to the facing rotation, in radians, for models
	// whose forward axis is not +Z.
	YawCorrection float64
}

// Placement is the computed target for a character.
type Placement struct {
	Candidate geom.Vec // offset point before ground resolution
	Position  geom.Vec
	Rotation  geom.Rotation
	Ground    ground.Source
}

// Pose returns the placement as a pose.
func (p Placement) Pose() geom.Pose {
	return geom.NewPose(p.Position, p.Rotation)
}

// Calculator turns a tracked image pose and an artwork configuration into a
// character placement.
type Calculator struct {
	cfg    Config
	ground GroundFinder
	view   Viewpoint
}

// NewCalculator creates a Calculator. A nil viewpoint leaves characters
// facing out of the artwork.
func NewCalculator(cfg Config, g GroundFinder, view Viewpoint) *Calculator {
	return &Calculator{cfg: cfg, ground: g, view: view}
}

// Candidate returns the offset point for art relative to the tracked image
// pose, before the ground is resolved.
//
// The image hangs on a wall, so its forward axis is the wall normal and its
// up axis runs towards the top edge. The offset is authored for an image
// lying flat, which swaps the roles of its Y and Z components.
func (c *Calculator) Candidate(pose geom.Pose, art artwork.Config) geom.Vec {
	right, up, fwd := pose.Right(), pose.Up(), pose.Forward()

	p := pose.Position
	p = r3.Add(p, r3.Scale(art.Offset.X, right))
	p = r3.Add(p, r3.Scale(art.Offset.Y, fwd))
	p = r3.Add(p, r3.Scale(art.Offset.Z, up))
	p = r3.Add(p, r3.Scale(art.DistanceFromWall, fwd))
	return p
}

// ComputePlacement returns the target placement of the character for art.
func (c *Calculator) ComputePlacement(pose geom.Pose, art artwork.Config) Placement {
	candidate := c.Candidate(pose, art)

	position := candidate
	source := ground.SourceFallback
	if c.ground != nil {
		sp := c.ground.FindGround(candidate)
		source = sp.Source
		if c.cfg.SnapToGround {
			position = sp.Position
		} else {
			position.Y = sp.Position.Y
		}
	}

	return Placement{
		Candidate: candidate,
		Position:  position,
		Rotation:  c.Face(position, pose),
		Ground:    source,
	}
}

// Face returns the rotation for a character at position looking at the
// camera across the horizontal plane. Without a usable viewpoint the
// character faces along the tracked image's normal.
func (c *Calculator) Face(position geom.Vec, image geom.Pose) geom.Rotation {
	rot, ok := geom.Rotation{}, false
	if c.view != nil {
		rot, ok = geom.Facing(r3.Sub(c.view.CameraPosition(), position))
	}
	if !ok {
		rot, ok = geom.Facing(image.Forward())
	}
	if !ok {
		rot = geom.Identity()
	}
	if c.cfg.YawCorrection != 0 {
		rot = geom.Compose(geom.Yaw(c.cfg.YawCorrection), rot)
	}
	return rot
}
