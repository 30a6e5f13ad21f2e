package atlas

import (
	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/gekko3d/charshadow/shadowrt/rig"
	"github.com/gekko3d/charshadow/shadowrt/scoring"
	"github.com/go-gl/mathgl/mgl32"
)

type Bias struct {
	Depth  float32
	Normal float32
}

// Slice is what the renderer binds before drawing casters into one layer.
type Slice struct {
	Index          int
	Slot           int
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	Bias           Bias
	StepOffset     float32
	LightDirection mgl32.Vec3
}

// ShaderGlobals are the per-frame constants shared by every slice.
type ShaderGlobals struct {
	Bias              mgl32.Vec4 // depth, normal, additional depth, additional normal
	StepOffset        mgl32.Vec2 // main, additional
	Offset0           mgl32.Vec4
	Offset1           mgl32.Vec4
	MapSize           mgl32.Vec4
	CascadeParams     mgl32.Vec4
	LocalLightIndices [rig.MaxSpotSlots]float32
	LightDirections   [rig.MaxSpotSlots]mgl32.Vec4
	ViewMatrices      [MaxSlices]mgl32.Mat4
	Projection        mgl32.Mat4
	SliceCount        int
	UseAdditional     bool
	BrightestOnly     bool
	HighSoftShadow    bool
}

type Frame struct {
	Layout  Layout
	Globals ShaderGlobals
	Slices  []Slice
}

type Settings struct {
	BaseResolution            int
	TransparentBaseResolution int
	Precision                 Precision

	Bias                 float32
	NormalBias           float32
	AdditionalBias       float32
	AdditionalNormalBias float32
	StepOffset           float32
	AdditionalStepOffset float32

	// AdditionalShadows is already gated on the renderer supporting
	// per-pixel light lists.
	AdditionalShadows  bool
	BrightestLightOnly bool
	HighSoftShadow     bool
}

func DefaultSettings() Settings {
	return Settings{
		BaseResolution:            TextureScaleX2.Texels(),
		TransparentBaseResolution: TextureScaleX2.Texels(),
		Precision:                 PrecisionR32Float,
		StepOffset:                0.99,
		AdditionalStepOffset:      0.99,
	}
}

type PlanInput struct {
	Rig           *rig.Rig
	Ranked        []scoring.ScoredLight
	Scale         float32
	CascadeParams mgl32.Vec4
}

// Planner reuses its frame buffers; a returned Frame is valid until the
// next Plan call for the same Kind.
type Planner struct {
	settings Settings
	frames   [2]Frame
	slices   [2][MaxSlices]Slice
}

func NewPlanner(settings Settings) *Planner {
	return &Planner{settings: settings}
}

func (p *Planner) Settings() Settings {
	return p.settings
}

func (p *Planner) multiSlice() bool {
	return p.settings.AdditionalShadows && !p.settings.BrightestLightOnly
}

// Layout sizes the atlas of the given kind for a cascade scale.
func (p *Planner) Layout(kind Kind, scale float32) Layout {
	base, precision := p.settings.BaseResolution, p.settings.Precision
	if kind == KindTransparent {
		base, precision = p.settings.TransparentBaseResolution, PrecisionRGBA16Float
	}
	return NewLayout(kind, base, scale, p.multiSlice(), precision)
}

func (p *Planner) Plan(kind Kind, in PlanInput) *Frame {
	f := &p.frames[kind]
	f.Layout = p.Layout(kind, in.Scale)
	f.Slices = p.slices[kind][:0]

	r := in.Rig
	g := &f.Globals
	*g = ShaderGlobals{
		Bias:              mgl32.Vec4{p.settings.Bias, p.settings.NormalBias, p.settings.AdditionalBias, p.settings.AdditionalNormalBias},
		StepOffset:        mgl32.Vec2{p.settings.StepOffset, p.settings.AdditionalStepOffset},
		MapSize:           MapSize(f.Layout.Resolution),
		CascadeParams:     in.CascadeParams,
		LocalLightIndices: r.LocalLightIndices(),
		Projection:        r.SharedProjection(),
		SliceCount:        f.Layout.SliceCount,
		UseAdditional:     p.multiSlice(),
		BrightestOnly:     p.settings.BrightestLightOnly,
		HighSoftShadow:    p.settings.HighSoftShadow,
	}
	g.Offset0, g.Offset1 = OffsetVectors(f.Layout.Resolution)
	for i, d := range r.LightDirections() {
		g.LightDirections[i] = d.Vec4(0)
	}
	for i := 0; i < MaxSlices; i++ {
		g.ViewMatrices[i] = r.Slot(i).Camera.ViewMatrix()
	}

	if p.settings.BrightestLightOnly {
		if slot := BrightestSlot(r, in.Ranked); slot >= 0 {
			s := p.slice(r, 0, slot)
			g.ViewMatrices[0] = s.View
			g.Projection = s.Projection
			f.Slices = append(f.Slices, s)
		}
		return f
	}

	if r.HasMain() {
		f.Slices = append(f.Slices, p.slice(r, 0, rig.MainSlot))
	}
	if f.Layout.SliceCount > 1 {
		for slot := 1; slot < rig.SlotCount; slot++ {
			if r.Slot(slot).Active {
				f.Slices = append(f.Slices, p.slice(r, slot, slot))
			}
		}
	}
	return f
}

func (p *Planner) slice(r *rig.Rig, index, slot int) Slice {
	s := r.Slot(slot)
	out := Slice{
		Index:          index,
		Slot:           slot,
		View:           s.Camera.ViewMatrix(),
		Projection:     s.Camera.Projection,
		Bias:           Bias{Depth: p.settings.Bias, Normal: p.settings.NormalBias},
		StepOffset:     p.settings.StepOffset,
		LightDirection: s.Camera.Transform.Forward(),
	}
	if slot != rig.MainSlot {
		out.Bias = Bias{Depth: p.settings.AdditionalBias, Normal: p.settings.AdditionalNormalBias}
		out.StepOffset = p.settings.AdditionalStepOffset
	}
	return out
}

// BrightestSlot picks the active slot with the highest score. The main light
// has no cone or falloff, so its score is the luminance of its final colour.
// Returns -1 when nothing is bound.
func BrightestSlot(r *rig.Rig, ranked []scoring.ScoredLight) int {
	best, bestScore := -1, float32(0)
	if r.HasMain() {
		best = rig.MainSlot
		bestScore = core.Luminance(r.Slot(rig.MainSlot).Light.FinalColor())
	}
	if len(ranked) == 0 {
		return best
	}
	top := ranked[0]
	for slot := 1; slot < rig.SlotCount; slot++ {
		s := r.Slot(slot)
		if s.Active && s.Light == top.Light {
			if best < 0 || top.Score > bestScore {
				best = slot
			}
			break
		}
	}
	return best
}
