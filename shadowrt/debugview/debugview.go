// Package debugview draws CPU previews of the shadow atlas: a depth splat of
// the target per slice, tiled 2x2 and labelled with its slot.
package debugview

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gekko3d/charshadow/shadowrt/atlas"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Layer is one slice's depth, row-major, Res*Res texels in [0,1].
type Layer struct {
	Res   int
	Depth []float32
}

func NewLayer(res int) *Layer {
	if res < 1 {
		res = 1
	}
	l := &Layer{Res: res, Depth: make([]float32, res*res)}
	l.Clear()
	return l
}

func (l *Layer) Clear() {
	for i := range l.Depth {
		l.Depth[i] = 1
	}
}

// SplatPoints projects world points through viewProj and keeps the nearest
// depth per texel. Points outside the clip volume are dropped. Returns the
// number of texels written.
func (l *Layer) SplatPoints(viewProj mgl32.Mat4, points []mgl32.Vec3) int {
	written := 0
	for _, p := range points {
		clip := viewProj.Mul4x1(p.Vec4(1))
		if clip[3] <= 0 {
			continue
		}
		ndc := clip.Vec3().Mul(1 / clip[3])
		if ndc[0] < -1 || ndc[0] > 1 || ndc[1] < -1 || ndc[1] > 1 || ndc[2] < -1 || ndc[2] > 1 {
			continue
		}
		x := int((ndc[0]*0.5 + 0.5) * float32(l.Res-1))
		y := int((0.5 - ndc[1]*0.5) * float32(l.Res-1))
		depth := ndc[2]*0.5 + 0.5
		i := y*l.Res + x
		if depth < l.Depth[i] {
			l.Depth[i] = depth
			written++
		}
	}
	return written
}

// Gray maps near to white and cleared texels to black.
func (l *Layer) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, l.Res, l.Res))
	for i, d := range l.Depth {
		img.Pix[i] = uint8(math.Round(float64(1-clamp01(d)) * 255))
	}
	return img
}

// SpherePoints samples a sphere surface on a latitude/longitude grid.
func SpherePoints(center mgl32.Vec3, radius float32, rings, segments int) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, (rings+1)*segments)
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s < segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			out = append(out, center.Add(mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}.Mul(radius)))
		}
	}
	return out
}

// Splat renders points into one layer per slice of frame.
func Splat(frame *atlas.Frame, res int, points []mgl32.Vec3) []*Layer {
	layers := make([]*Layer, 0, len(frame.Slices))
	for _, s := range frame.Slices {
		l := NewLayer(res)
		l.SplatPoints(s.Projection.Mul4(s.View), points)
		layers = append(layers, l)
	}
	return layers
}

// Mosaic tiles up to four slices 2x2 at tile texels each, scaling every layer
// with bilinear filtering, and labels each tile with its slot.
func Mosaic(frame *atlas.Frame, layers []*Layer, tile int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, tile*2, tile*2))
	face := basicfont.Face7x13
	for i, l := range layers {
		if i >= atlas.MaxSlices {
			break
		}
		ox, oy := (i%2)*tile, (i/2)*tile
		rect := image.Rect(ox, oy, ox+tile, oy+tile)
		draw.ApproxBiLinear.Scale(dst, rect, l.Gray(), image.Rect(0, 0, l.Res, l.Res), draw.Src, nil)

		label := fmt.Sprintf("S%d", i)
		if i < len(frame.Slices) {
			label = fmt.Sprintf("S%d slot %d", frame.Slices[i].Index, frame.Slices[i].Slot)
		}
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.Gray{Y: 128}),
			Face: face,
			Dot:  fixed.P(ox+2, oy+face.Metrics().Ascent.Ceil()+1),
		}
		d.DrawString(label)
	}
	return dst
}

// Downsample shrinks img to w x h with nearest neighbour, for terminal cells.
func Downsample(img image.Image, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Ramp maps gray levels to characters, darkest first.
const Ramp = " .:-=+*#%@"

func Glyph(v uint8) rune {
	i := int(v) * (len(Ramp) - 1) / 255
	return rune(Ramp[i])
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
