package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection describes a shadow camera lens. Perspective uses FovY (degrees),
// orthographic uses HalfExtent in world units.
type Projection struct {
	Orthographic bool
	FovY         float32
	HalfExtent   float32
	Near         float32
	Far          float32
}

func DefaultProjection() Projection {
	return Projection{
		FovY:       30,
		HalfExtent: 1.5,
		Near:       0.1,
		Far:        20,
	}
}

// Matrix returns the projection corrected for the viewport aspect (width/height).
func (p Projection) Matrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	if p.Orthographic {
		h := p.HalfExtent
		return mgl32.Ortho(-h*aspect, h*aspect, -h, h, p.Near, p.Far)
	}
	return mgl32.Perspective(mgl32.DegToRad(p.FovY), aspect, p.Near, p.Far)
}

// ShadowCamera is a virtual viewpoint rendering one atlas slice.
type ShadowCamera struct {
	Transform  Transform
	Projection mgl32.Mat4
}

func NewShadowCamera() ShadowCamera {
	return ShadowCamera{
		Transform:  NewTransform(),
		Projection: mgl32.Ident4(),
	}
}

func (c ShadowCamera) ViewMatrix() mgl32.Mat4 {
	return c.Transform.WorldToObject()
}

func (c ShadowCamera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.ViewMatrix())
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4

	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0) // left
	planes[1] = r3.Sub(r0) // right
	planes[2] = r3.Add(r1) // bottom
	planes[3] = r3.Sub(r1) // top
	planes[4] = r3.Add(r2) // near, OpenGL-style -1..1
	planes[5] = r3.Sub(r2) // far

	for i := 0; i < 6; i++ {
		length := float32(math.Sqrt(float64(planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2])))
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}

	return planes
}

// SphereInFrustum reports whether a sphere touches the frustum.
func SphereInFrustum(center mgl32.Vec3, radius float32, planes [6]mgl32.Vec4) bool {
	for _, p := range planes {
		d := p[0]*center[0] + p[1]*center[1] + p[2]*center[2] + p[3]
		if d < -radius {
			return false
		}
	}
	return true
}
