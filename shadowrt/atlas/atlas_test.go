package atlas

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/gekko3d/charshadow/shadowrt/rig"
	"github.com/gekko3d/charshadow/shadowrt/scoring"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	l := NewLayout(KindOpaque, 2048, 0.25, true, PrecisionR16Float)
	assert.Equal(t, 512, l.Resolution)
	assert.Equal(t, 4, l.SliceCount)
	assert.Equal(t, PrecisionR16Float, l.Precision)

	l = NewLayout(KindOpaque, 1000, 0.125, false, PrecisionR32Float)
	assert.Equal(t, 125, l.Resolution)
	assert.Equal(t, 1, l.SliceCount)

	l = NewLayout(KindOpaque, 3, 0.125, false, PrecisionR32Float)
	assert.Equal(t, 1, l.Resolution, "clamped to one texel")

	l = NewLayout(KindOpaque, 1023, 0.5, false, PrecisionR32Float)
	assert.Equal(t, 512, l.Resolution, "rounded")
}

func TestSoftShadowOffsets(t *testing.T) {
	o := SoftShadowOffsets(1024)
	h := float32(0.5 / 1024.0)
	assert.Equal(t, [4]mgl32.Vec2{{-h, -h}, {h, -h}, {-h, h}, {h, h}}, o)

	o0, o1 := OffsetVectors(1024)
	assert.Equal(t, mgl32.Vec4{-h, -h, h, -h}, o0)
	assert.Equal(t, mgl32.Vec4{-h, h, h, h}, o1)

	assert.Equal(t, mgl32.Vec4{1.0 / 256, 1.0 / 256, 256, 256}, MapSize(256))
}

func TestTextureScale(t *testing.T) {
	assert.True(t, TextureScaleX4.Valid())
	assert.False(t, TextureScale(3).Valid())
	assert.Equal(t, 2048, TextureScaleX2.Texels())
}

type scene struct {
	target mgl32.Vec3
	sun    *core.Light
	spots  []*core.Light
	rig    *rig.Rig
	ranked []scoring.ScoredLight
}

func newScene(t *testing.T, spotCount int) *scene {
	t.Helper()
	s := &scene{
		sun: core.NewLight(core.LightKindDirectional,
			core.WithDirection(mgl32.Vec3{0, -1, -1}),
			core.WithIntensity(0.2)),
		rig: rig.New(rig.DefaultOptions()),
	}
	positions := []mgl32.Vec3{{0, 0, 5}, {5, 0, 0}, {-5, 0, 0}, {0, 0, -5}, {0, 5, 0}}
	for i := 0; i < spotCount; i++ {
		p := positions[i]
		s.spots = append(s.spots, core.NewLight(core.LightKindSpot,
			core.WithPosition(p),
			core.WithDirection(p.Mul(-1)),
			core.WithRange(10),
			core.WithSpotAngle(30),
			core.WithIntensity(float32(spotCount-i)),
		))
	}
	s.ranked = scoring.NewScorer().Rank(s.target, s.spots, nil)
	require.Len(t, s.ranked, min(3, spotCount))

	s.rig.BeginFrame()
	s.rig.BindMain(s.target, s.sun)
	s.rig.AssignSpots(s.target, s.ranked)
	return s
}

func TestPlanAdditionalDisabled(t *testing.T) {
	sc := newScene(t, 5)
	settings := DefaultSettings()
	settings.AdditionalShadows = false

	f := NewPlanner(settings).Plan(KindOpaque, PlanInput{Rig: sc.rig, Ranked: sc.ranked, Scale: 1})

	assert.Equal(t, 1, f.Layout.SliceCount)
	require.Len(t, f.Slices, 1)
	assert.Equal(t, rig.MainSlot, f.Slices[0].Slot)
	assert.False(t, f.Globals.UseAdditional)
}

func TestPlanAdditionalEnabled(t *testing.T) {
	sc := newScene(t, 2)
	settings := DefaultSettings()
	settings.AdditionalShadows = true
	settings.Bias = 0.01
	settings.AdditionalBias = 0.02

	f := NewPlanner(settings).Plan(KindOpaque, PlanInput{
		Rig:           sc.rig,
		Ranked:        sc.ranked,
		Scale:         0.5,
		CascadeParams: mgl32.Vec4{20, 0.5, 0, 0},
	})

	assert.Equal(t, 4, f.Layout.SliceCount)
	assert.Equal(t, 1024, f.Layout.Resolution)
	require.Len(t, f.Slices, 3, "main + two bound spots")
	for i, s := range f.Slices {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, sc.rig.Slot(s.Slot).Camera.ViewMatrix(), s.View)
	}
	assert.Equal(t, float32(0.01), f.Slices[0].Bias.Depth)
	assert.Equal(t, float32(0.02), f.Slices[1].Bias.Depth)
	assert.Equal(t, [3]float32{0, 1, -1}, f.Globals.LocalLightIndices)
	assert.Equal(t, mgl32.Vec4{}, f.Globals.LightDirections[2])
	assert.Equal(t, mgl32.Vec4{20, 0.5, 0, 0}, f.Globals.CascadeParams)
	assert.Equal(t, MapSize(1024), f.Globals.MapSize)
	assert.Equal(t, sc.rig.SharedProjection(), f.Globals.Projection)
}

func TestPlanWithoutMainLight(t *testing.T) {
	sc := newScene(t, 1)
	sc.rig.BeginFrame()
	sc.rig.AssignSpots(sc.target, sc.ranked)

	settings := DefaultSettings()
	settings.AdditionalShadows = true
	f := NewPlanner(settings).Plan(KindOpaque, PlanInput{Rig: sc.rig, Ranked: sc.ranked, Scale: 1})

	require.Len(t, f.Slices, 1)
	assert.Equal(t, 1, f.Slices[0].Slot, "spot slices still drawn without a main light")
}

func TestPlanBrightestOnly(t *testing.T) {
	sc := newScene(t, 3)
	settings := DefaultSettings()
	settings.AdditionalShadows = true
	settings.BrightestLightOnly = true
	p := NewPlanner(settings)

	// sun luminance 0.186 loses to the top spot (0.93*3*0.5)
	f := p.Plan(KindOpaque, PlanInput{Rig: sc.rig, Ranked: sc.ranked, Scale: 1})
	assert.Equal(t, 1, f.Layout.SliceCount)
	require.Len(t, f.Slices, 1)
	assert.Equal(t, 1, f.Slices[0].Slot)
	assert.Equal(t, 0, f.Slices[0].Index)
	assert.Equal(t, f.Slices[0].View, f.Globals.ViewMatrices[0])
	assert.True(t, f.Globals.BrightestOnly)

	sc.sun.Intensity = 10
	assert.Equal(t, rig.MainSlot, BrightestSlot(sc.rig, sc.ranked))
	assert.Equal(t, rig.MainSlot, BrightestSlot(sc.rig, nil))

	empty := rig.New(rig.DefaultOptions())
	assert.Equal(t, -1, BrightestSlot(empty, nil))
	f = p.Plan(KindOpaque, PlanInput{Rig: empty, Scale: 1})
	assert.Empty(t, f.Slices)
}

func TestPlanTransparent(t *testing.T) {
	sc := newScene(t, 3)
	settings := DefaultSettings()
	settings.AdditionalShadows = true
	settings.TransparentBaseResolution = TextureScaleX1.Texels()
	p := NewPlanner(settings)

	opaque := p.Plan(KindOpaque, PlanInput{Rig: sc.rig, Ranked: sc.ranked, Scale: 1})
	transparent := p.Plan(KindTransparent, PlanInput{Rig: sc.rig, Ranked: sc.ranked, Scale: 1})

	assert.Equal(t, KindTransparent, transparent.Layout.Kind)
	assert.Equal(t, PrecisionRGBA16Float, transparent.Layout.Precision)
	assert.Equal(t, 1024, transparent.Layout.Resolution)
	assert.Equal(t, 2048, opaque.Layout.Resolution)
	assert.Len(t, transparent.Slices, len(opaque.Slices))
}

func TestPackGlobals(t *testing.T) {
	g := ShaderGlobals{
		Bias:              mgl32.Vec4{1, 2, 3, 4},
		StepOffset:        mgl32.Vec2{0.99, 0.98},
		LocalLightIndices: [3]float32{2, -1, -1},
		SliceCount:        4,
		UseAdditional:     true,
		HighSoftShadow:    true,
		Projection:        mgl32.Ident4(),
	}
	g.ViewMatrices[3] = mgl32.Translate3D(7, 8, 9)

	buf := PackGlobals(g)
	require.Len(t, buf, GlobalsSize)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	assert.Equal(t, float32(3), f(8))
	assert.Equal(t, float32(0.98), f(20))
	assert.Equal(t, float32(2), f(96))
	assert.Equal(t, float32(-1), f(100))
	assert.Equal(t, uint32(1), u(112))
	assert.Equal(t, uint32(0), u(116))
	assert.Equal(t, uint32(1), u(120))
	assert.Equal(t, uint32(4), u(124))
	assert.Equal(t, float32(1), f(176))
	assert.Equal(t, float32(7), f(240+3*64+12*4), "translation x of the last view")
}
