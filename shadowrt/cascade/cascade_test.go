package cascade

import (
	"math/rand"
	"testing"

	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestScaleBands(t *testing.T) {
	splits := Splits{3.5, 7, 11, 20}
	tests := []struct {
		distance float32
		want     float32
	}{
		{0, 1},
		{3.49, 1},
		{3.5, 0.5},
		{6.99, 0.5},
		{7, 0.25},
		{10.99, 0.25},
		{11, 0.125},
		{25, 0.125},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ScaleForDistance(tc.distance, splits), "distance %v", tc.distance)
	}
}

func TestScaleIsNonIncreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	valid := map[float32]bool{1: true, 0.5: true, 0.25: true, 0.125: true}

	for iter := 0; iter < 100; iter++ {
		var splits Splits
		acc := float32(0)
		for i := range splits {
			acc += 0.1 + rng.Float32()*10
			splits[i] = acc
		}
		assert.True(t, splits.Ascending())

		prev := float32(2)
		for d := float32(0); d < acc+5; d += 0.25 {
			s := ScaleForDistance(d, splits)
			assert.True(t, valid[s], "unexpected tier %v", s)
			assert.LessOrEqual(t, s, prev)
			prev = s
		}
	}
}

func TestSchedulerTargetFarAway(t *testing.T) {
	s := NewScheduler(Splits{3.5, 7, 11, 20}, 0)
	target := &core.Target{Position: mgl32.Vec3{0, 0, 25}}

	assert.Equal(t, float32(0.125), s.Scale(mgl32.Vec3{}, target))
	assert.False(t, s.ShouldUpdate(mgl32.Vec3{}, target), "culled past the last split")

	target.Position = mgl32.Vec3{0, 3, 4}
	assert.Equal(t, float32(0.5), s.Scale(mgl32.Vec3{}, target))
	assert.True(t, s.ShouldUpdate(mgl32.Vec3{}, target))
}

func TestSchedulerNoTarget(t *testing.T) {
	s := NewScheduler(DefaultSplits, 50)
	assert.Equal(t, LowestScale, s.Scale(mgl32.Vec3{}, nil))
	assert.False(t, s.ShouldUpdate(mgl32.Vec3{}, nil))
}

func TestSchedulerCullingDistance(t *testing.T) {
	s := NewScheduler(DefaultSplits, 50)
	target := &core.Target{Position: mgl32.Vec3{30, 0, 0}}
	assert.True(t, s.ShouldUpdate(mgl32.Vec3{}, target))
	assert.Equal(t, mgl32.Vec4{50, 0.125, 0, 0}, s.Params(s.Scale(mgl32.Vec3{}, target)))

	s.CullingDistance = 0
	assert.Equal(t, mgl32.Vec4{20, 1, 0, 0}, s.Params(1))
}

func TestSplitsAscending(t *testing.T) {
	assert.True(t, DefaultSplits.Ascending())
	assert.False(t, Splits{1, 1, 2, 3}.Ascending())
	assert.False(t, Splits{4, 3, 2, 1}.Ascending())
}
