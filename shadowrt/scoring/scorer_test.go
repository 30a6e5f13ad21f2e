package scoring

import (
	"math/rand"
	"testing"

	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = mgl32.Vec3{0, 0, 0}

// headOnSpot places a white spot light on +Z at distance d, aimed at the origin.
func headOnSpot(d, intensity float32) *core.Light {
	return core.NewLight(core.LightKindSpot,
		core.WithPosition(mgl32.Vec3{0, 0, d}),
		core.WithDirection(mgl32.Vec3{0, 0, -1}),
		core.WithRange(10),
		core.WithSpotAngle(30),
		core.WithIntensity(intensity),
	)
}

// intensityFor returns the intensity a white head-on light at distance 5 with
// range 10 needs to reach the given score.
func intensityFor(score float32) float32 {
	return score / (core.Luminance(mgl32.Vec3{1, 1, 1}) * 0.5)
}

func TestScoreHeadOn(t *testing.T) {
	l := headOnSpot(5, 1)
	score, ok := NewScorer().Score(origin, l)
	require.True(t, ok)
	assert.InDelta(t, 0.93*0.5, score, 1e-4)
}

func TestScoreRejections(t *testing.T) {
	s := NewScorer()

	outOfRange := headOnSpot(12, 1)
	_, ok := s.Score(origin, outOfRange)
	assert.False(t, ok, "beyond range")

	facingAway := core.NewLight(core.LightKindSpot,
		core.WithPosition(mgl32.Vec3{0, 0, 5}),
		core.WithDirection(mgl32.Vec3{0, 0, 1}),
	)
	_, ok = s.Score(origin, facingAway)
	assert.False(t, ok, "behind the light")

	offAxis := core.NewLight(core.LightKindSpot,
		core.WithPosition(mgl32.Vec3{5, 0, 5}),
		core.WithDirection(mgl32.Vec3{0, 0, -1}),
		core.WithSpotAngle(30),
	)
	_, ok = s.Score(origin, offAxis)
	assert.False(t, ok, "45 degrees off a 30 degree cone")

	dim := headOnSpot(5, 0.01)
	score, ok := s.Score(origin, dim)
	assert.False(t, ok, "score %f at or below threshold", score)

	disabled := headOnSpot(5, 1)
	disabled.Enabled = false
	_, ok = s.Score(origin, disabled)
	assert.False(t, ok)

	sun := core.NewLight(core.LightKindDirectional)
	_, ok = s.Score(origin, sun)
	assert.False(t, ok, "only spot lights are ranked")

	zeroRange := headOnSpot(0, 1)
	zeroRange.Range = 0
	_, ok = s.Score(origin, zeroRange)
	assert.False(t, ok, "zero range never qualifies")
}

func TestScoreTargetOnLight(t *testing.T) {
	l := headOnSpot(0, 1)
	score, ok := NewScorer().Score(origin, l)
	require.True(t, ok)
	assert.InDelta(t, 0.93, score, 1e-4)
}

func TestRankTopThree(t *testing.T) {
	want := []float32{0.3, 0.9, 0.1, 0.7, 0.5}
	lights := make([]*core.Light, len(want))
	for i, s := range want {
		lights[i] = headOnSpot(5, intensityFor(s))
	}

	ranked := NewScorer().Rank(origin, lights, NewScratch(8))

	require.Len(t, ranked, 3)
	assert.InDelta(t, 0.9, ranked[0].Score, 1e-4)
	assert.InDelta(t, 0.7, ranked[1].Score, 1e-4)
	assert.InDelta(t, 0.5, ranked[2].Score, 1e-4)
	assert.Equal(t, []int{1, 3, 4}, []int{ranked[0].Index, ranked[1].Index, ranked[2].Index})
	assert.Same(t, lights[1], ranked[0].Light)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, NewScorer().Rank(origin, nil, nil))

	far := []*core.Light{headOnSpot(50, 1), headOnSpot(60, 1)}
	assert.Empty(t, NewScorer().Rank(origin, far, nil))
}

func TestRankTiesKeepCatalogOrder(t *testing.T) {
	lights := []*core.Light{headOnSpot(5, 1), headOnSpot(5, 1)}
	ranked := NewScorer().Rank(origin, lights, nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0, ranked[0].Index)
	assert.Equal(t, 1, ranked[1].Index)
}

func randomScene(rng *rand.Rand, n int) []*core.Light {
	lights := make([]*core.Light, n)
	for i := range lights {
		pos := mgl32.Vec3{rng.Float32()*20 - 10, rng.Float32() * 8, rng.Float32()*20 - 10}
		dir := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		lights[i] = core.NewLight(core.LightKindSpot,
			core.WithPosition(pos),
			core.WithDirection(dir),
			core.WithRange(2+rng.Float32()*15),
			core.WithSpotAngle(5+rng.Float32()*80),
			core.WithColor(mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}),
			core.WithIntensity(rng.Float32()*3),
		)
	}
	return lights
}

func TestRankProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewScorer()
	scratch := NewScratch(64)

	for iter := 0; iter < 200; iter++ {
		lights := randomScene(rng, 1+rng.Intn(40))
		target := mgl32.Vec3{rng.Float32()*10 - 5, 1, rng.Float32()*10 - 5}

		qualifying := 0
		for _, l := range lights {
			diff := target.Sub(l.Transform.Position)
			outside := diff.Normalize().Dot(l.Forward()) <= l.CosSpotAngle() || diff.Len() > l.Range
			score, ok := s.Score(target, l)
			if outside {
				assert.False(t, ok, "out of cone or range light must be excluded")
			}
			if ok {
				qualifying++
				assert.Greater(t, score, s.Threshold)
			}
		}

		ranked := s.Rank(target, lights, scratch)
		require.Len(t, ranked, min(3, qualifying))
		for i := 1; i < len(ranked); i++ {
			assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
		}

		first := append([]ScoredLight(nil), ranked...)
		again := s.Rank(target, lights, scratch)
		assert.Equal(t, first, again, "ranking must be deterministic")
	}
}

func TestCombineIsMonotonic(t *testing.T) {
	steps := []float32{0, 0.1, 0.25, 0.5, 0.75, 1}
	for _, a := range steps {
		for _, b := range steps {
			for i := 1; i < len(steps); i++ {
				lo, hi := steps[i-1], steps[i]
				assert.LessOrEqual(t, Combine(lo, a, b), Combine(hi, a, b), "luminance")
				assert.LessOrEqual(t, Combine(a, lo, b), Combine(a, hi, b), "attenuation")
				assert.LessOrEqual(t, Combine(a, b, lo), Combine(a, b, hi), "alignment")
			}
		}
	}
}

func TestAttenuation(t *testing.T) {
	assert.InDelta(t, 1, Attenuation(0, 10), 1e-6)
	assert.InDelta(t, 0.25, Attenuation(7.5, 10), 1e-6)
	assert.Zero(t, Attenuation(12, 10))
	assert.Zero(t, Attenuation(1, 0))
}

func TestRankDoesNotAllocate(t *testing.T) {
	lights := randomScene(rand.New(rand.NewSource(1)), 32)
	for i := 0; i < 8; i++ {
		lights = append(lights, headOnSpot(float32(i+1), 1))
	}
	s := NewScorer()
	scratch := NewScratch(len(lights))

	allocs := testing.AllocsPerRun(50, func() {
		s.Rank(origin, lights, scratch)
	})
	assert.Zero(t, allocs)
}
