// Package charshadow selects, each frame, which scene lights cast a shadow
// onto a tracked character, aims a small rig of shadow cameras at it and
// plans the shadow atlas the renderer fills.
//
// A ShadowSystem is driven from the frame thread:
//
//	sys, err := charshadow.New(cfg, lights, targets, charshadow.WithRenderer(r))
//	...
//	sys.Update(charshadow.FrameInput{Viewer: camPos, ViewportWidth: w, ViewportHeight: h})
//
// Nothing in the frame path blocks or returns an error; missing targets or
// lights degrade to skipped work and stale, but valid, shadow data.
package charshadow

import (
	"time"

	"github.com/gekko3d/charshadow/shadowrt/atlas"
	"github.com/gekko3d/charshadow/shadowrt/cascade"
	"github.com/gekko3d/charshadow/shadowrt/catalog"
	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/gekko3d/charshadow/shadowrt/rig"
	"github.com/gekko3d/charshadow/shadowrt/scoring"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type Option func(*ShadowSystem)

func WithLogger(l Logger) Option {
	return func(s *ShadowSystem) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *ShadowSystem) {
		s.metrics = m
	}
}

func WithRenderer(r Renderer) Option {
	return func(s *ShadowSystem) {
		if r != nil {
			s.renderer = r
		}
	}
}

func WithProfiler(p *Profiler) Option {
	return func(s *ShadowSystem) {
		s.profiler = p
	}
}

// WithRig hands the system a rig owned by the caller, e.g. so an editor
// view can read the same cameras.
func WithRig(r *rig.Rig) Option {
	return func(s *ShadowSystem) {
		if r != nil {
			s.rig = r
		}
	}
}

type FrameInput struct {
	Viewer         mgl32.Vec3
	ViewportWidth  int
	ViewportHeight int
}

// FrameReport describes what one Update did. Ranked and the atlas frames
// alias internal buffers and are valid until the next Update.
type FrameReport struct {
	Frame       uint64
	Updated     bool
	SkipReason  string
	Scale       float32
	Ranked      []scoring.ScoredLight
	HasMain     bool
	ActiveSpots int
	Opaque      *atlas.Frame
	Transparent *atlas.Frame
}

// ShadowSystem is single-threaded; call it from the thread that sets up frames.
type ShadowSystem struct {
	cfg      *Config
	log      Logger
	metrics  *Metrics
	profiler *Profiler
	renderer Renderer

	catalog   *catalog.Catalog
	targets   core.TargetProvider
	scorer    scoring.Scorer
	scratch   *scoring.Scratch
	rig       *rig.Rig
	scheduler cascade.Scheduler
	planner   *atlas.Planner

	frame     uint64
	slotOwner [rig.SlotCount]uuid.UUID
	last      FrameReport
}

func New(cfg *Config, lights catalog.LightSource, targets core.TargetProvider, opts ...Option) (*ShadowSystem, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lights == nil || targets == nil {
		return nil, ErrMissingSource
	}

	s := &ShadowSystem{
		cfg:       cfg,
		log:       NewNopLogger(),
		renderer:  nopRenderer{},
		catalog:   catalog.New(lights),
		targets:   targets,
		scorer:    cfg.Scorer(),
		scratch:   scoring.NewScratch(0),
		scheduler: cfg.Scheduler(),
		planner:   atlas.NewPlanner(cfg.AtlasSettings()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rig == nil {
		s.rig = rig.New(cfg.RigOptions())
	}

	s.log.Infof("shadow atlas %dx%d base, additional=%v brightest_only=%v transparent=%v",
		s.planner.Settings().BaseResolution, s.planner.Settings().BaseResolution,
		cfg.AdditionalShadowsEnabled(), cfg.UseBrightestLightOnly, cfg.EnableTransparentShadow)
	if cfg.EnableAdditionalShadow && !cfg.ForwardPlus {
		s.log.Warnf("additional shadows need forward+ light lists; rendering main light only")
	}

	s.RefreshLights()
	return s, nil
}

// RefreshLights rescans the scene. Call it when lights are spawned or
// removed at runtime; it is not run every frame.
func (s *ShadowSystem) RefreshLights() {
	s.catalog.Refresh()
	main := "none"
	if m := s.catalog.MainLight(); m != nil {
		main = m.Name
	}
	s.log.Debugf("light catalog v%d: main=%s spots=%d", s.catalog.Version(), main, len(s.catalog.SpotLights()))
	s.metrics.RecordRefresh(s.catalog.Len())
}

func (s *ShadowSystem) Update(in FrameInput) FrameReport {
	s.frame++
	report := FrameReport{Frame: s.frame}

	target, ok := s.targets.ActiveTarget()
	if !ok {
		target = nil
	}
	report.Scale = s.scheduler.Scale(in.Viewer, target)

	if target == nil {
		return s.skip(report, SkipNoTarget)
	}
	if !s.scheduler.ShouldUpdate(in.Viewer, target) {
		return s.skip(report, SkipCulled)
	}

	start := time.Now()
	s.profiler.BeginScope(ScopeTotal)

	s.profiler.BeginScope(ScopeRank)
	report.Ranked = s.scorer.Rank(target.Position, s.catalog.SpotLights(), s.scratch)
	s.profiler.EndScope(ScopeRank)

	s.profiler.BeginScope(ScopeRig)
	s.rig.SetViewport(in.ViewportWidth, in.ViewportHeight)
	s.rig.BeginFrame()
	s.rig.BindMain(target.Position, s.catalog.MainLight())
	s.rig.AssignSpots(target.Position, report.Ranked)
	s.logSlotChanges()
	s.profiler.EndScope(ScopeRig)

	report.Updated = true
	report.HasMain = s.rig.HasMain()
	report.ActiveSpots = s.rig.ActiveSpotCount()

	s.profiler.BeginScope(ScopePlan)
	input := atlas.PlanInput{
		Rig:           s.rig,
		Ranked:        report.Ranked,
		Scale:         report.Scale,
		CascadeParams: s.scheduler.Params(report.Scale),
	}
	report.Opaque = s.planner.Plan(atlas.KindOpaque, input)
	if s.cfg.EnableTransparentShadow {
		report.Transparent = s.planner.Plan(atlas.KindTransparent, input)
	}
	s.profiler.EndScope(ScopePlan)

	s.profiler.BeginScope(ScopeDraw)
	s.submit(report.Opaque)
	if report.Transparent != nil {
		s.submit(report.Transparent)
	}
	s.profiler.EndScope(ScopeDraw)

	s.profiler.EndScope(ScopeTotal)
	s.profiler.SetCount("Ranked Lights", len(report.Ranked))
	s.profiler.SetCount("Slices", len(report.Opaque.Slices))

	active := report.ActiveSpots
	if report.HasMain {
		active++
	}
	s.metrics.RecordFrame(len(report.Ranked), active, report.Scale, time.Since(start))

	s.last = report
	return report
}

func (s *ShadowSystem) skip(report FrameReport, reason string) FrameReport {
	report.SkipReason = reason
	s.log.Debugf("frame %d: shadow update skipped (%s)", report.Frame, reason)
	s.metrics.RecordSkip(reason)
	s.last = report
	return report
}

func (s *ShadowSystem) submit(f *atlas.Frame) {
	s.renderer.ConfigureAtlas(f.Layout, f.Globals)
	for _, slice := range f.Slices {
		s.renderer.DrawSlice(f.Layout, slice)
	}
	s.metrics.RecordAtlas(f.Layout.Kind.String(), f.Layout.Resolution, len(f.Slices))
}

func (s *ShadowSystem) logSlotChanges() {
	for i := 0; i < rig.SlotCount; i++ {
		slot := s.rig.Slot(i)
		owner := uuid.Nil
		name := "-"
		if slot.Active {
			owner = slot.Light.ID
			name = slot.Light.Name
		}
		if owner != s.slotOwner[i] {
			s.log.Debugf("frame %d: slot %d now %s (%s)", s.frame, i, name, owner)
			s.slotOwner[i] = owner
		}
	}
}

func (s *ShadowSystem) Config() *Config {
	return s.cfg
}

func (s *ShadowSystem) Rig() *rig.Rig {
	return s.rig
}

func (s *ShadowSystem) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *ShadowSystem) Profiler() *Profiler {
	return s.profiler
}

// LastReport is the report of the most recent Update.
func (s *ShadowSystem) LastReport() FrameReport {
	return s.last
}
