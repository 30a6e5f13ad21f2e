// Package cascade picks the shadow atlas resolution tier from the distance
// between the viewer and the target.
package cascade

import (
	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Resolution multipliers, one per distance band.
const (
	ScaleFull    float32 = 1.0
	ScaleHalf    float32 = 0.5
	ScaleQuarter float32 = 0.25
	ScaleEighth  float32 = 0.125

	LowestScale = ScaleEighth
)

// Splits are four ascending distance thresholds in world units.
type Splits [4]float32

var DefaultSplits = Splits{2, 6, 14, 20}

// Ascending reports whether the splits are strictly increasing.
func (s Splits) Ascending() bool {
	for i := 1; i < len(s); i++ {
		if s[i] <= s[i-1] {
			return false
		}
	}
	return true
}

// ScaleForDistance maps a distance onto the half-open bands
// [0,d0) -> 1, [d0,d1) -> 0.5, [d1,d2) -> 0.25, beyond -> 0.125.
func ScaleForDistance(distance float32, splits Splits) float32 {
	switch {
	case distance < splits[0]:
		return ScaleFull
	case distance < splits[1]:
		return ScaleHalf
	case distance < splits[2]:
		return ScaleQuarter
	default:
		return ScaleEighth
	}
}

type Scheduler struct {
	Splits Splits
	// CullingDistance beyond which shadow work is skipped. Zero means the
	// last split.
	CullingDistance float32
}

func NewScheduler(splits Splits, cullingDistance float32) Scheduler {
	return Scheduler{Splits: splits, CullingDistance: cullingDistance}
}

func (s Scheduler) cullingDistance() float32 {
	if s.CullingDistance > 0 {
		return s.CullingDistance
	}
	return s.Splits[3]
}

// Scale returns the resolution multiplier, or the lowest tier without a target.
func (s Scheduler) Scale(viewer mgl32.Vec3, target *core.Target) float32 {
	if target == nil {
		return LowestScale
	}
	return ScaleForDistance(target.Position.Sub(viewer).Len(), s.Splits)
}

// ShouldUpdate is false when there is no target or it is beyond the culling
// distance; the previous atlas is then left as is.
func (s Scheduler) ShouldUpdate(viewer mgl32.Vec3, target *core.Target) bool {
	if target == nil {
		return false
	}
	return target.Position.Sub(viewer).Len() <= s.cullingDistance()
}

// Params is the shader-visible cascade vector (max distance, scale, 0, 0).
func (s Scheduler) Params(scale float32) mgl32.Vec4 {
	return mgl32.Vec4{s.cullingDistance(), scale, 0, 0}
}
