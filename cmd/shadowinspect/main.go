// Command shadowinspect runs the character shadow selection over a demo
// scene in the terminal: a target orbits a ring of spot lights under a sun
// while the viewer moves in and out of the cascade bands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gekko3d/charshadow"
	"github.com/gekko3d/charshadow/shadowrt/catalog"
	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/gekko3d/charshadow/shadowrt/debugview"
	"github.com/gekko3d/charshadow/shadowrt/rig"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	orbitRadius = 3
	orbitSpeed  = 0.6 // rad/s
	viewerStep  = 1
	previewRes  = 96
)

type inspector struct {
	screen tcell.Screen
	sys    *charshadow.ShadowSystem
	lights catalog.LightList
	target *core.StaticTarget
	hero   *core.Target
	viewer mgl32.Vec3
	angle  float64
	paused bool
	last   charshadow.FrameReport
}

func demoLights() catalog.LightList {
	lights := catalog.LightList{
		core.NewLight(core.LightKindDirectional,
			core.WithName("sun"),
			core.WithDirection(mgl32.Vec3{0.4, -1, -0.3}),
			core.WithColor(mgl32.Vec3{1, 0.95, 0.85}),
			core.WithIntensity(0.8)),
	}
	colors := []mgl32.Vec3{{1, 0.2, 0.2}, {0.2, 1, 0.2}, {0.2, 0.4, 1}, {1, 1, 0.3}, {1, 0.5, 1}}
	for i, c := range colors {
		a := 2 * math.Pi * float64(i) / float64(len(colors))
		pos := mgl32.Vec3{float32(5 * math.Cos(a)), 3, float32(5 * math.Sin(a))}
		lights = append(lights, core.NewLight(core.LightKindSpot,
			core.WithName(fmt.Sprintf("spot-%d", i)),
			core.WithPosition(pos),
			core.WithDirection(pos.Mul(-1)),
			core.WithColor(c),
			core.WithIntensity(2),
			core.WithRange(9),
			core.WithSpotAngle(35)))
	}
	return lights
}

func newInspector(ctx context.Context, configPath string, registry prometheus.Registerer) (*inspector, error) {
	var (
		cfg *charshadow.Config
		err error
	)
	if configPath != "" {
		cfg, err = charshadow.LoadFile(ctx, configPath)
	} else {
		cfg, err = charshadow.Load(ctx)
	}
	if err != nil {
		return nil, err
	}

	in := &inspector{
		lights: demoLights(),
		hero:   &core.Target{Name: "hero", Radius: 0.5},
		viewer: mgl32.Vec3{0, 1.7, 4},
	}
	in.target = &core.StaticTarget{Target: in.hero}

	opts := []charshadow.Option{charshadow.WithProfiler(charshadow.NewProfiler())}
	if cfg.MetricsEnabled && registry != nil {
		opts = append(opts, charshadow.WithMetrics(charshadow.NewMetrics(
			charshadow.WithNamespace(cfg.MetricsNamespace),
			charshadow.WithPrometheusRegistry(registry))))
	}
	in.sys, err = charshadow.New(cfg, in.lights, in.target, opts...)
	if err != nil {
		return nil, err
	}

	in.screen, err = tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := in.screen.Init(); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *inspector) step(dt time.Duration) {
	if !in.paused {
		in.angle += orbitSpeed * dt.Seconds()
	}
	in.hero.Position = mgl32.Vec3{
		float32(orbitRadius * math.Cos(in.angle)),
		0,
		float32(orbitRadius * math.Sin(in.angle)),
	}
	w, h := in.screen.Size()
	in.last = in.sys.Update(charshadow.FrameInput{Viewer: in.viewer, ViewportWidth: w, ViewportHeight: h * 2})
}

// handleInput returns false when the inspector should exit.
func (in *inspector) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			in.viewer[2] -= viewerStep
		case tcell.KeyDown:
			in.viewer[2] += viewerStep
		case tcell.KeyLeft:
			in.viewer[0] -= viewerStep
		case tcell.KeyRight:
			in.viewer[0] += viewerStep
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				in.paused = !in.paused
			case 't':
				if in.target.Target == nil {
					in.target.Target = in.hero
				} else {
					in.target.Target = nil
				}
			case 'r':
				// flip the first spot and rescan
				in.lights[1].Enabled = !in.lights[1].Enabled
				in.sys.RefreshLights()
			}
		}
	case *tcell.EventResize:
		in.screen.Sync()
	}
	return true
}

func (in *inspector) text(x, y int, s string, style tcell.Style) {
	for i, r := range s {
		in.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (in *inspector) draw() {
	in.screen.Clear()
	title := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	plain := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	dim := tcell.StyleDefault.Foreground(tcell.NewRGBColor(140, 140, 160))

	r := in.last
	in.text(0, 0, "shadowinspect  q quit  arrows move viewer  space pause  t target  r toggle spot-0", title)
	dist := in.hero.Position.Sub(in.viewer).Len()
	in.text(0, 2, fmt.Sprintf("frame %d  viewer (%.1f, %.1f, %.1f)  distance %.2f  scale %.3f",
		r.Frame, in.viewer[0], in.viewer[1], in.viewer[2], dist, r.Scale), plain)

	if !r.Updated {
		in.text(0, 3, fmt.Sprintf("skipped: %s (previous atlas kept)", r.SkipReason), tcell.StyleDefault.Foreground(tcell.ColorRed))
	} else {
		in.text(0, 3, fmt.Sprintf("atlas %dx%d x%d %s  slices drawn %d",
			r.Opaque.Layout.Resolution, r.Opaque.Layout.Resolution, r.Opaque.Layout.SliceCount,
			r.Opaque.Layout.Precision, len(r.Opaque.Slices)), plain)
	}

	y := 5
	for i, s := range r.Ranked {
		in.text(0, y, fmt.Sprintf("#%d %-8s score %.3f  catalog %d", i+1, s.Light.Name, s.Score, s.Index), plain)
		y++
	}
	y++
	for i := 0; i < rig.SlotCount; i++ {
		slot := in.sys.Rig().Slot(i)
		name, style := "-", dim
		if slot.Active {
			name, style = slot.Light.Name, plain
		}
		p := slot.Camera.Transform.Position
		in.text(0, y, fmt.Sprintf("slot %d %-8s cam (%.1f, %.1f, %.1f)", i, name, p[0], p[1], p[2]), style)
		y++
	}

	if prof := in.sys.Profiler(); prof != nil {
		y++
		for _, name := range prof.Order {
			in.text(0, y, fmt.Sprintf("%-14s %6.3f ms", name, float64(prof.Scopes[name].Microseconds())/1000), dim)
			y++
		}
	}

	if r.Updated {
		in.drawPreview(48, 5)
	}
	in.screen.Show()
}

func (in *inspector) drawPreview(x0, y0 int) {
	w, h := in.screen.Size()
	cols, rows := w-x0-1, h-y0-1
	if cols < 8 || rows < 4 {
		return
	}
	frame := in.last.Opaque
	layers := debugview.Splat(frame, previewRes, debugview.SpherePoints(in.hero.Position.Add(mgl32.Vec3{0, 0.9, 0}), 0.5, 16, 32))
	mosaic := debugview.Mosaic(frame, layers, previewRes)
	small := debugview.Downsample(mosaic, cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := small.GrayAt(x, y).Y
			in.screen.SetContent(x0+x, y0+y, debugview.Glyph(v), nil,
				tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(v), int32(v), int32(v))))
		}
	}
}

func (in *inspector) run() {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			events <- in.screen.PollEvent()
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-events:
			if !in.handleInput(ev) {
				return
			}
		case now := <-ticker.C:
			in.step(now.Sub(last))
			last = now
			in.draw()
		}
	}
}

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $"+charshadow.EnvConfigPath+")")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	flag.Parse()

	registry := prometheus.NewRegistry()
	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
	}

	in, err := newInspector(context.Background(), *configPath, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer in.screen.Fini()

	in.run()
}
