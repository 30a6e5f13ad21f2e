// Package catalog keeps the frame's shadow candidate lights: one main
// directional light and the dynamic spot lights.
package catalog

import (
	"github.com/gekko3d/charshadow/shadowrt/core"
)

const defaultCapacity = 256

// LightSource supplies every light currently present in the scene.
type LightSource interface {
	Lights() []*core.Light
}

// LightList is a LightSource over a plain slice.
type LightList []*core.Light

func (l LightList) Lights() []*core.Light { return l }

// Catalog is refreshed on demand, not every frame. Lights added or removed
// between refreshes are not seen until the next Refresh.
type Catalog struct {
	source  LightSource
	main    *core.Light
	spots   []*core.Light
	version uint64
}

func New(source LightSource) *Catalog {
	return &Catalog{
		source: source,
		spots:  make([]*core.Light, 0, defaultCapacity),
	}
}

// Refresh rescans the source. The main light is the first enabled directional
// light; spots are every enabled spot light. Static lights are skipped.
func (c *Catalog) Refresh() {
	c.main = nil
	c.spots = c.spots[:0]
	c.version++

	if c.source == nil {
		return
	}

	for _, l := range c.source.Lights() {
		if l == nil || l.Static || !l.Enabled {
			continue
		}
		switch l.Kind {
		case core.LightKindDirectional:
			if c.main == nil {
				c.main = l
			}
		case core.LightKindSpot:
			c.spots = append(c.spots, l)
		case core.LightKindOther:
		}
	}
}

// MainLight returns nil when the scene has no enabled directional light.
func (c *Catalog) MainLight() *core.Light {
	return c.main
}

// SpotLights is owned by the catalog and valid until the next Refresh.
// Positions in this slice are the catalog indices reported by the scorer.
func (c *Catalog) SpotLights() []*core.Light {
	return c.spots
}

func (c *Catalog) Len() int {
	n := len(c.spots)
	if c.main != nil {
		n++
	}
	return n
}

// Version increments on every Refresh.
func (c *Catalog) Version() uint64 {
	return c.version
}
