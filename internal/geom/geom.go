// Package geom provides the world-space types shared by tracking, placement
// and the ground probe. Positions are metres, +Y is up and +Z is forward.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a world-space point or direction.
type Vec = r3.Vec

// Rotation is an orientation stored as a quaternion. The zero value is
// treated as the identity.
type Rotation = quat.Number

// Local axes of an unrotated frame.
var (
	AxisRight   = Vec{X: 1}
	AxisUp      = Vec{Y: 1}
	AxisForward = Vec{Z: 1}
)

// epsilon is the length below which a direction is considered degenerate.
const epsilon = 1e-9

// Identity returns the identity rotation.
func Identity() Rotation {
	return quat.Number{Real: 1}
}

// Yaw returns a rotation of angle radians about the world up axis. A positive
// angle turns +Z towards +X.
func Yaw(angle float64) Rotation {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Jmag: s}
}

// Compose returns the rotation that applies b and then a.
func Compose(a, b Rotation) Rotation {
	return normalize(quat.Mul(normalize(a), normalize(b)))
}

// Rotate applies r to v.
func Rotate(r Rotation, v Vec) Vec {
	return r3.Rotation(normalize(r)).Rotate(v)
}

// YawOf returns the heading in radians of the forward axis of r projected
// onto the horizontal plane.
func YawOf(r Rotation) float64 {
	f := Rotate(r, AxisForward)
	return math.Atan2(f.X, f.Z)
}

// Facing returns a yaw-only rotation whose forward axis points along the
// horizontal component of dir. The boolean is false if dir is vertical or
// zero, in which case no heading can be derived.
func Facing(dir Vec) (Rotation, bool) {
	h := Horizontal(dir)
	if r3.Norm(h) < epsilon {
		return Identity(), false
	}
	return Yaw(math.Atan2(h.X, h.Z)), true
}

// Horizontal returns v with its vertical component zeroed.
func Horizontal(v Vec) Vec {
	return Vec{X: v.X, Z: v.Z}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Normalize returns v scaled to unit length, or the zero vector when v is
// degenerate.
func Normalize(v Vec) Vec {
	if r3.Norm(v) < epsilon {
		return Vec{}
	}
	return r3.Unit(v)
}

func normalize(q Rotation) Rotation {
	n := quat.Abs(q)
	if n < epsilon {
		return Identity()
	}
	if math.Abs(n-1) < epsilon {
		return q
	}
	return quat.Scale(1/n, q)
}

// Pose is a position and orientation in world space.
type Pose struct {
	Position Vec
	Rotation Rotation
}

// NewPose creates a pose from a position and rotation.
func NewPose(position Vec, rotation Rotation) Pose {
	return Pose{Position: position, Rotation: normalize(rotation)}
}

// Right returns the pose's local +X axis in world space.
func (p Pose) Right() Vec { return Rotate(p.Rotation, AxisRight) }

// Up returns the pose's local +Y axis in world space.
func (p Pose) Up() Vec { return Rotate(p.Rotation, AxisUp) }

// Forward returns the pose's local +Z axis in world space.
func (p Pose) Forward() Vec { return Rotate(p.Rotation, AxisForward) }

// Translate returns p moved by d.
func (p Pose) Translate(d Vec) Pose {
	return Pose{Position: r3.Add(p.Position, d), Rotation: p.Rotation}
}
