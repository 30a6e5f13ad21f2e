// Package rig owns the four shadow cameras that follow the target: slot 0
// for the main directional light and slots 1-3 for the ranked spot lights.
package rig

import (
	"errors"
	"fmt"

	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/gekko3d/charshadow/shadowrt/scoring"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	SlotCount    = 4
	MainSlot     = 0
	MaxSpotSlots = SlotCount - 1

	DefaultDistance     float32 = 4
	DefaultHeightOffset float32 = 0.75
)

var ErrSlotOutOfRange = errors.New("rig: spot slot out of range")

type Options struct {
	// Distance is how far behind the target, along the light direction, each
	// camera sits.
	Distance float32
	// HeightOffset lifts the framing point from the target origin, usually
	// half the character height.
	HeightOffset float32
	Up           mgl32.Vec3

	Projection core.Projection
	// SharedProjection makes every slot reuse slot 0's projection. When false
	// each slot derives its own, see SpotConeProjection.
	SharedProjection bool
	// SpotConeProjection widens a spot slot's perspective to the light cone
	// when projections are not shared.
	SpotConeProjection bool
	// StickySlots keeps a light in the slot it held last frame while it
	// stays in the ranked set, so near-ties do not swap slices.
	StickySlots bool
}

func DefaultOptions() Options {
	return Options{
		Distance:         DefaultDistance,
		HeightOffset:     DefaultHeightOffset,
		Up:               mgl32.Vec3{0, 1, 0},
		Projection:       core.DefaultProjection(),
		SharedProjection: true,
	}
}

type Slot struct {
	Camera core.ShadowCamera
	// Light is the light bound this frame, nil while inactive.
	Light *core.Light
	// LightIndex is the catalog spot index, -1 for the main slot or when inactive.
	LightIndex int
	Active     bool
	// Bound is true once the slot has ever received a transform.
	Bound bool
}

// Rig is owned by the frame driver; there is no global instance.
type Rig struct {
	opts       Options
	slots      [SlotCount]Slot
	aspect     float32
	projection mgl32.Mat4
	spotCount  int
	previous   [MaxSpotSlots]uuid.UUID
}

func New(opts Options) *Rig {
	if opts.Up.Len() == 0 {
		opts.Up = mgl32.Vec3{0, 1, 0}
	}
	r := &Rig{opts: opts, aspect: 1}
	for i := range r.slots {
		r.slots[i].Camera = core.NewShadowCamera()
		r.slots[i].LightIndex = -1
	}
	r.projection = opts.Projection.Matrix(r.aspect)
	r.slots[MainSlot].Camera.Projection = r.projection
	return r
}

func (r *Rig) Options() Options {
	return r.opts
}

// SetViewport recomputes the shared projection when the aspect ratio changes.
func (r *Rig) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	aspect := float32(width) / float32(height)
	if aspect == r.aspect {
		return
	}
	r.aspect = aspect
	r.projection = r.opts.Projection.Matrix(aspect)
	r.slots[MainSlot].Camera.Projection = r.projection
}

func (r *Rig) Aspect() float32 {
	return r.aspect
}

// BeginFrame marks every slot inactive. Transforms are left untouched so a
// slot that loses its light holds its last pose.
func (r *Rig) BeginFrame() {
	for i := range r.slots {
		r.slots[i].Active = false
		r.slots[i].Light = nil
		r.slots[i].LightIndex = -1
	}
	r.spotCount = 0
}

// BindMain points slot 0 along the main light. A nil light leaves the slot
// inactive with its previous transform.
func (r *Rig) BindMain(target mgl32.Vec3, light *core.Light) bool {
	if light == nil {
		return false
	}
	r.place(MainSlot, target, light)
	r.slots[MainSlot].Camera.Projection = r.projection
	r.slots[MainSlot].Light = light
	r.slots[MainSlot].Active = true
	return true
}

// BindSpot binds a ranked spot light to slot 1..3.
func (r *Rig) BindSpot(slot int, target mgl32.Vec3, light *core.Light, lightIndex int) error {
	if slot < 1 || slot > MaxSpotSlots {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot)
	}
	if light == nil {
		return nil
	}
	s := &r.slots[slot]
	if !s.Active {
		r.spotCount++
	}
	r.place(slot, target, light)
	s.Camera.Projection = r.projectionFor(light)
	s.Light = light
	s.LightIndex = lightIndex
	s.Active = true
	return nil
}

// AssignSpots binds up to three ranked lights in rank order, or, with
// StickySlots, keeps returning lights in last frame's slot first.
func (r *Rig) AssignSpots(target mgl32.Vec3, ranked []scoring.ScoredLight) {
	n := min(len(ranked), MaxSpotSlots)
	var order [MaxSpotSlots]int
	for i := range order {
		order[i] = -1
	}

	if r.opts.StickySlots {
		var placed [MaxSpotSlots]bool
		for i := 0; i < n; i++ {
			for s, id := range r.previous {
				if id != uuid.Nil && id == ranked[i].Light.ID && order[s] < 0 {
					order[s] = i
					placed[i] = true
					break
				}
			}
		}
		for i := 0; i < n; i++ {
			if placed[i] {
				continue
			}
			for s := range order {
				if order[s] < 0 {
					order[s] = i
					break
				}
			}
		}
	} else {
		for i := 0; i < n; i++ {
			order[i] = i
		}
	}

	for s, i := range order {
		r.previous[s] = uuid.Nil
		if i < 0 {
			continue
		}
		sl := ranked[i]
		// slot index is always in range here
		_ = r.BindSpot(s+1, target, sl.Light, sl.Index)
		r.previous[s] = sl.Light.ID
	}
}

func (r *Rig) place(slot int, target mgl32.Vec3, light *core.Light) {
	cam := &r.slots[slot].Camera
	forward := light.Forward()
	cam.Transform.Rotation = light.Transform.Rotation
	cam.Transform.Position = target.
		Add(r.opts.Up.Normalize().Mul(r.opts.HeightOffset)).
		Sub(forward.Mul(r.opts.Distance))
	r.slots[slot].Bound = true
}

func (r *Rig) projectionFor(light *core.Light) mgl32.Mat4 {
	if r.opts.SharedProjection {
		return r.projection
	}
	p := r.opts.Projection
	if r.opts.SpotConeProjection && !p.Orthographic && light.Kind == core.LightKindSpot {
		p.FovY = mgl32.RadToDeg(light.SpotAngle * 2)
	}
	return p.Matrix(r.aspect)
}

func (r *Rig) Slot(i int) Slot {
	return r.slots[i]
}

func (r *Rig) Slots() [SlotCount]Slot {
	return r.slots
}

func (r *Rig) HasMain() bool {
	return r.slots[MainSlot].Active
}

// ActiveSpotCount is the number of spot slots bound this frame.
func (r *Rig) ActiveSpotCount() int {
	return r.spotCount
}

// SharedProjection is slot 0's projection for the current viewport.
func (r *Rig) SharedProjection() mgl32.Mat4 {
	return r.projection
}

// LocalLightIndices holds the catalog index per spot slot, -1 when unused.
func (r *Rig) LocalLightIndices() [MaxSpotSlots]float32 {
	var out [MaxSpotSlots]float32
	for i := range out {
		s := r.slots[i+1]
		out[i] = -1
		if s.Active {
			out[i] = float32(s.LightIndex)
		}
	}
	return out
}

// LightDirections holds each spot slot's forward direction, zero when unused.
func (r *Rig) LightDirections() [MaxSpotSlots]mgl32.Vec3 {
	var out [MaxSpotSlots]mgl32.Vec3
	for i := range out {
		s := r.slots[i+1]
		if s.Active {
			out[i] = s.Camera.Transform.Forward()
		}
	}
	return out
}
