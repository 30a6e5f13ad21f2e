// Package scoring ranks spot lights by how much shadow they would cast onto
// the target this frame.
package scoring

import (
	"cmp"
	"slices"

	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultThreshold  float32 = 0.01
	DefaultMaxResults         = 3
	defaultScratchCap         = 256
)

// ScoredLight is a qualifying light and its position in the catalog's spot list.
type ScoredLight struct {
	Score float32
	Light *core.Light
	Index int
}

// Scratch is a caller-owned buffer reused across frames so ranking does not
// allocate once it has grown to the scene's light count.
type Scratch struct {
	candidates []ScoredLight
}

func NewScratch(capacity int) *Scratch {
	if capacity <= 0 {
		capacity = defaultScratchCap
	}
	return &Scratch{candidates: make([]ScoredLight, 0, capacity)}
}

// Scorer holds the ranking policy. The zero value uses the defaults.
type Scorer struct {
	Threshold  float32
	MaxResults int
}

func NewScorer() Scorer {
	return Scorer{Threshold: DefaultThreshold, MaxResults: DefaultMaxResults}
}

func (s Scorer) maxResults() int {
	if s.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return s.MaxResults
}

func (s Scorer) threshold() float32 {
	if s.Threshold == 0 {
		return DefaultThreshold
	}
	return s.Threshold
}

// Attenuation is the linear falloff 1 - d/range, floored at 0.
func Attenuation(distance, lightRange float32) float32 {
	if lightRange <= 0 {
		return 0
	}
	a := 1 - distance/lightRange
	if a < 0 {
		return 0
	}
	return a
}

// Combine is the score for a light given its three factors.
func Combine(luminance, attenuation, alignment float32) float32 {
	return luminance * attenuation * alignment
}

// Score computes the light's priority for a target at the given position.
// ok is false when the light must not be ranked: wrong kind, disabled,
// target outside the cone or range, or a score at or below the threshold.
func (s Scorer) Score(target mgl32.Vec3, l *core.Light) (score float32, ok bool) {
	if l == nil || !l.Enabled {
		return 0, false
	}
	switch l.Kind {
	case core.LightKindSpot:
	case core.LightKindDirectional, core.LightKindOther:
		return 0, false
	default:
		return 0, false
	}

	diff := target.Sub(l.Transform.Position)
	distance := diff.Len()

	// A target sitting on the light counts as dead centre of the cone.
	alignment := float32(1)
	if distance > 0 {
		alignment = diff.Mul(1 / distance).Dot(l.Forward())
	}
	if alignment <= l.CosSpotAngle() {
		return 0, false
	}
	if distance > l.Range {
		return 0, false
	}

	score = Combine(core.Luminance(l.FinalColor()), Attenuation(distance, l.Range), alignment)
	if score <= s.threshold() {
		return score, false
	}
	return score, true
}

// Rank scores every light, sorts qualifying ones by descending score and
// truncates to MaxResults. Equal scores keep catalog order. The result aliases
// scratch and is valid until the next Rank call with the same scratch.
func (s Scorer) Rank(target mgl32.Vec3, lights []*core.Light, scratch *Scratch) []ScoredLight {
	if scratch == nil {
		scratch = NewScratch(len(lights))
	}

	candidates := scratch.candidates[:0]
	for i, l := range lights {
		if score, ok := s.Score(target, l); ok {
			candidates = append(candidates, ScoredLight{Score: score, Light: l, Index: i})
		}
	}

	slices.SortFunc(candidates, func(a, b ScoredLight) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Index, b.Index)
	})
	scratch.candidates = candidates

	return candidates[:min(len(candidates), s.maxResults())]
}
