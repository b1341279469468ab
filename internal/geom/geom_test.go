package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "X")
	assert.InDelta(t, want.Y, got.Y, tol, "Y")
	assert.InDelta(t, want.Z, got.Z, tol, "Z")
}

func TestPose_IdentityAxes(t *testing.T) {
	p := NewPose(Vec{}, Identity())

	assertVec(t, AxisRight, p.Right())
	assertVec(t, AxisUp, p.Up())
	assertVec(t, AxisForward, p.Forward())
}

func TestPose_ZeroRotationIsIdentity(t *testing.T) {
	var p Pose

	assertVec(t, AxisForward, p.Forward())
	assertVec(t, AxisRight, p.Right())
}

func TestYaw_QuarterTurn(t *testing.T) {
	r := Yaw(math.Pi / 2)

	assertVec(t, Vec{X: 1}, Rotate(r, AxisForward))
	assertVec(t, Vec{Z: -1}, Rotate(r, AxisRight))
	assert.InDelta(t, math.Pi/2, YawOf(r), tol)
}

func TestFacing(t *testing.T) {
	tests := []struct {
		name    string
		dir     Vec
		wantYaw float64
		wantOK  bool
	}{
		{"forward", Vec{Z: 2}, 0, true},
		{"right", Vec{X: 1, Y: 5}, math.Pi / 2, true},
		{"behind", Vec{Z: -1}, math.Pi, true},
		{"straight up", Vec{Y: 1}, 0, false},
		{"zero", Vec{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := Facing(tt.dir)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, math.Abs(tt.wantYaw), math.Abs(YawOf(r)), 1e-6)
			}
		})
	}
}

func TestCompose_AppliesRightThenLeft(t *testing.T) {
	r := Compose(Yaw(math.Pi/2), Yaw(math.Pi/2))

	assertVec(t, Vec{Z: -1}, Rotate(r, AxisForward))
}

func TestRotate_NormalizesInput(t *testing.T) {
	scaled := quat.Scale(3, Yaw(math.Pi/2))

	assertVec(t, Vec{X: 1}, Rotate(scaled, AxisForward))
}

func TestDistanceAndHorizontal(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Vec{X: 3}, Vec{Y: 4}), tol)
	assert.Equal(t, Vec{X: 1, Z: 3}, Horizontal(Vec{X: 1, Y: 2, Z: 3}))
	assert.Equal(t, Vec{}, Normalize(Vec{}))
}
