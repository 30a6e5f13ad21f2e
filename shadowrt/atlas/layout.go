// Package atlas plans the character shadow texture array: how many slices,
// at what resolution, and which camera matrices the renderer binds per slice.
package atlas

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// BaseTexels is the edge length of a 1x atlas slice.
	BaseTexels = 1024
	MaxSlices  = 4
)

type Kind int

const (
	KindOpaque Kind = iota
	KindTransparent
)

func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindTransparent:
		return "transparent"
	}
	return "unknown"
}

type Precision int

const (
	PrecisionR32Float Precision = iota
	PrecisionR16Float
	// PrecisionRGBA16Float stores depth in R and accumulated alpha in A for
	// transparent casters.
	PrecisionRGBA16Float
)

func (p Precision) String() string {
	switch p {
	case PrecisionR32Float:
		return "r32float"
	case PrecisionR16Float:
		return "r16float"
	case PrecisionRGBA16Float:
		return "rgba16float"
	}
	return "unknown"
}

// TextureScale multiplies BaseTexels.
type TextureScale int

const (
	TextureScaleX1 TextureScale = 1
	TextureScaleX2 TextureScale = 2
	TextureScaleX4 TextureScale = 4
)

func (s TextureScale) Valid() bool {
	return s == TextureScaleX1 || s == TextureScaleX2 || s == TextureScaleX4
}

func (s TextureScale) Texels() int {
	return BaseTexels * int(s)
}

type Layout struct {
	Kind           Kind
	BaseResolution int
	Scale          float32
	// Resolution is the per-axis texel count of every slice.
	Resolution int
	SliceCount int
	Precision  Precision
}

// NewLayout sizes an atlas: four slices when additional shadows are on,
// otherwise one, each round(base*scale) texels wide and at least 1.
func NewLayout(kind Kind, baseResolution int, scale float32, additional bool, precision Precision) Layout {
	res := int(math.Round(float64(baseResolution) * float64(scale)))
	if res < 1 {
		res = 1
	}
	slices := 1
	if additional {
		slices = MaxSlices
	}
	return Layout{
		Kind:           kind,
		BaseResolution: baseResolution,
		Scale:          scale,
		Resolution:     res,
		SliceCount:     slices,
		Precision:      precision,
	}
}

// SoftShadowOffsets are the 2x2 sample taps at half a texel in each axis:
// (-,-), (+,-), (-,+), (+,+).
func SoftShadowOffsets(resolution int) [4]mgl32.Vec2 {
	if resolution < 1 {
		resolution = 1
	}
	h := 0.5 / float32(resolution)
	return [4]mgl32.Vec2{
		{-h, -h},
		{h, -h},
		{-h, h},
		{h, h},
	}
}

// OffsetVectors packs the four taps into two shader vectors.
func OffsetVectors(resolution int) (mgl32.Vec4, mgl32.Vec4) {
	o := SoftShadowOffsets(resolution)
	return mgl32.Vec4{o[0][0], o[0][1], o[1][0], o[1][1]},
		mgl32.Vec4{o[2][0], o[2][1], o[3][0], o[3][1]}
}

// MapSize is (1/width, 1/height, width, height).
func MapSize(resolution int) mgl32.Vec4 {
	if resolution < 1 {
		resolution = 1
	}
	r := float32(resolution)
	return mgl32.Vec4{1 / r, 1 / r, r, r}
}
