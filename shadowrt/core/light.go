package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type LightKind uint32

const (
	LightKindOther LightKind = iota
	LightKindDirectional
	LightKindSpot
)

func (k LightKind) String() string {
	switch k {
	case LightKindDirectional:
		return "directional"
	case LightKindSpot:
		return "spot"
	case LightKindOther:
		return "other"
	}
	return "unknown"
}

// Light is a scene light as seen by the shadow system. The scene owns it;
// nothing in this module writes to it after construction.
type Light struct {
	ID        uuid.UUID
	Name      string
	Kind      LightKind
	Transform Transform
	Color     mgl32.Vec3 // linear RGB
	Intensity float32
	Range     float32 // spot only
	SpotAngle float32 // cone half-angle in radians, spot only
	Enabled   bool
	Static    bool // baked elsewhere, never a shadow candidate
}

// LightOption configures a Light during construction.
type LightOption func(*Light)

func NewLight(kind LightKind, opts ...LightOption) *Light {
	l := &Light{
		ID:        uuid.New(),
		Kind:      kind,
		Transform: NewTransform(),
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Range:     10,
		SpotAngle: mgl32.DegToRad(30),
		Enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func WithName(name string) LightOption {
	return func(l *Light) {
		l.Name = name
	}
}

func WithPosition(p mgl32.Vec3) LightOption {
	return func(l *Light) {
		l.Transform.Position = p
	}
}

// WithDirection orients the light so its forward axis points along dir.
func WithDirection(dir mgl32.Vec3) LightOption {
	return func(l *Light) {
		l.Transform.Rotation = LookRotation(dir, LocalUp)
	}
}

func WithRotation(q mgl32.Quat) LightOption {
	return func(l *Light) {
		l.Transform.Rotation = q
	}
}

func WithColor(c mgl32.Vec3) LightOption {
	return func(l *Light) {
		l.Color = c
	}
}

func WithIntensity(intensity float32) LightOption {
	return func(l *Light) {
		l.Intensity = intensity
	}
}

func WithRange(r float32) LightOption {
	return func(l *Light) {
		l.Range = r
	}
}

// WithSpotAngle sets the cone half-angle in degrees.
func WithSpotAngle(halfDeg float32) LightOption {
	return func(l *Light) {
		l.SpotAngle = mgl32.DegToRad(halfDeg)
	}
}

func WithEnabled(enabled bool) LightOption {
	return func(l *Light) {
		l.Enabled = enabled
	}
}

func WithStatic(static bool) LightOption {
	return func(l *Light) {
		l.Static = static
	}
}

func (l *Light) Forward() mgl32.Vec3 {
	return l.Transform.Forward()
}

func (l *Light) FinalColor() mgl32.Vec3 {
	return l.Color.Mul(l.Intensity)
}

// CosSpotAngle is the cosine of the cone half-angle.
func (l *Light) CosSpotAngle() float32 {
	return float32(math.Cos(float64(l.SpotAngle)))
}

// Luminance weights a linear colour by perceptual channel weights.
// The red weight is 0.229, not Rec.601's 0.299.
func Luminance(c mgl32.Vec3) float32 {
	return 0.229*c.X() + 0.587*c.Y() + 0.114*c.Z()
}
