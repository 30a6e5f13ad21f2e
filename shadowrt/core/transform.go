package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Local axes. Lights and shadow cameras look down -Z with +Y up.
var (
	LocalForward = mgl32.Vec3{0, 0, -1}
	LocalUp      = mgl32.Vec3{0, 1, 0}
)

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
	}
}

func (t Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(LocalForward).Normalize()
}

func (t Transform) Up() mgl32.Vec3 {
	return t.Rotation.Rotate(LocalUp).Normalize()
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	return translate.Mul4(t.Rotation.Mat4())
}

// WorldToObject is the view matrix when the transform belongs to a camera.
func (t Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(R) * inv(T), conjugate is the inverse for a unit quat
	invRotate := t.Rotation.Normalize().Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())
	return invRotate.Mul4(invTranslate)
}

// LookRotation returns the rotation whose forward axis points along forward.
// When forward is parallel to up a Z axis fallback is used.
func LookRotation(forward, up mgl32.Vec3) mgl32.Quat {
	if forward.Len() == 0 {
		return mgl32.QuatIdent()
	}
	f := forward.Normalize()
	if up.Len() == 0 || abs32(f.Dot(up.Normalize())) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
		if abs32(f.Z()) > 0.999 {
			up = mgl32.Vec3{1, 0, 0}
		}
	}
	right := f.Cross(up).Normalize()
	u := right.Cross(f)
	back := f.Mul(-1)

	m := mgl32.Mat4FromCols(
		right.Vec4(0),
		u.Vec4(0),
		back.Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	)
	return mgl32.Mat4ToQuat(m).Normalize()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
