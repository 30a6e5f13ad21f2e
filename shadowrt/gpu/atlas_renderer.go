// Package gpu uploads planned shadow atlases to WebGPU: one layered texture
// per atlas kind, a uniform buffer for the shader globals and one render
// pass per slice.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/charshadow/shadowrt/atlas"
)

// ClearDepth is written to every texel before casters are drawn, so
// uncovered texels read as unshadowed.
const ClearDepth = 1.0

// DrawFunc records caster draws into a slice's render pass. The pass already
// targets the slice layer; the callee binds its own pipeline.
type DrawFunc func(pass *wgpu.RenderPassEncoder, layout atlas.Layout, slice atlas.Slice)

func TextureFormat(p atlas.Precision) wgpu.TextureFormat {
	switch p {
	case atlas.PrecisionR16Float:
		return wgpu.TextureFormatR16Float
	case atlas.PrecisionRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	default:
		return wgpu.TextureFormatR32Float
	}
}

func AtlasTextureDescriptor(layout atlas.Layout) *wgpu.TextureDescriptor {
	res := uint32(layout.Resolution)
	return &wgpu.TextureDescriptor{
		Label:         fmt.Sprintf("Character Shadow Atlas (%s)", layout.Kind),
		Size:          wgpu.Extent3D{Width: res, Height: res, DepthOrArrayLayers: uint32(layout.SliceCount)},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        TextureFormat(layout.Precision),
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		SampleCount:   1,
	}
}

// SliceViewDescriptor selects one layer of the atlas as a render target.
func SliceViewDescriptor(layout atlas.Layout, index int) *wgpu.TextureViewDescriptor {
	return &wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("Character Shadow Slice %d (%s)", index, layout.Kind),
		Format:          TextureFormat(layout.Precision),
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  uint32(index),
		ArrayLayerCount: 1,
	}
}

// ArrayViewDescriptor is the sampling view bound to the lighting shaders.
func ArrayViewDescriptor(layout atlas.Layout) *wgpu.TextureViewDescriptor {
	return &wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("Character Shadow Array (%s)", layout.Kind),
		Format:          TextureFormat(layout.Precision),
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(layout.SliceCount),
	}
}

// needsRealloc is true when the texture backing old cannot hold next.
func needsRealloc(old, next atlas.Layout, have bool) bool {
	if !have {
		return true
	}
	return old.Resolution != next.Resolution ||
		old.SliceCount != next.SliceCount ||
		old.Precision != next.Precision
}

type atlasTarget struct {
	layout     atlas.Layout
	texture    *wgpu.Texture
	arrayView  *wgpu.TextureView
	sliceViews [atlas.MaxSlices]*wgpu.TextureView
	globalsBuf *wgpu.Buffer
	globals    []byte
}

func (t *atlasTarget) releaseTexture() {
	for i, v := range t.sliceViews {
		if v != nil {
			v.Release()
			t.sliceViews[i] = nil
		}
	}
	if t.arrayView != nil {
		t.arrayView.Release()
		t.arrayView = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// AtlasRenderer implements charshadow.Renderer on a WebGPU device. Textures
// are reallocated only when resolution, slice count or precision change.
type AtlasRenderer struct {
	Device      *wgpu.Device
	DrawCasters DrawFunc
	// OnError receives GPU failures; the frame carries on with stale data.
	OnError func(error)

	targets [2]atlasTarget
}

func NewAtlasRenderer(device *wgpu.Device, draw DrawFunc) *AtlasRenderer {
	return &AtlasRenderer{Device: device, DrawCasters: draw}
}

func (r *AtlasRenderer) fail(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	if r.OnError != nil {
		r.OnError(err)
		return
	}
	fmt.Printf("ERROR: %v\n", err)
}

func (r *AtlasRenderer) ConfigureAtlas(layout atlas.Layout, globals atlas.ShaderGlobals) {
	t := &r.targets[layout.Kind]
	if needsRealloc(t.layout, layout, t.texture != nil) {
		if err := r.allocate(t, layout); err != nil {
			r.fail("shadow atlas %s: %w", layout.Kind, err)
			return
		}
	}
	t.layout = layout

	if t.globals == nil {
		t.globals = make([]byte, atlas.GlobalsSize)
	}
	atlas.PackGlobalsInto(t.globals, globals)
	if err := r.ensureBuffer(fmt.Sprintf("Character Shadow Globals (%s)", layout.Kind), &t.globalsBuf, t.globals); err != nil {
		r.fail("shadow globals %s: %w", layout.Kind, err)
	}
}

func (r *AtlasRenderer) allocate(t *atlasTarget, layout atlas.Layout) error {
	t.releaseTexture()

	tex, err := r.Device.CreateTexture(AtlasTextureDescriptor(layout))
	if err != nil {
		return err
	}
	t.texture = tex
	t.arrayView, err = tex.CreateView(ArrayViewDescriptor(layout))
	if err != nil {
		return err
	}
	for i := 0; i < layout.SliceCount; i++ {
		t.sliceViews[i], err = tex.CreateView(SliceViewDescriptor(layout, i))
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *AtlasRenderer) ensureBuffer(name string, buf **wgpu.Buffer, data []byte) error {
	size := uint64(len(data))
	if *buf == nil || (*buf).GetSize() < size {
		if *buf != nil {
			(*buf).Release()
		}
		newBuf, err := r.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		*buf = newBuf
	}
	r.Device.GetQueue().WriteBuffer(*buf, 0, data)
	return nil
}

func (r *AtlasRenderer) DrawSlice(layout atlas.Layout, slice atlas.Slice) {
	t := &r.targets[layout.Kind]
	if slice.Index < 0 || slice.Index >= atlas.MaxSlices || t.sliceViews[slice.Index] == nil {
		r.fail("shadow slice %d not allocated in %s atlas", slice.Index, layout.Kind)
		return
	}

	encoder, err := r.Device.CreateCommandEncoder(nil)
	if err != nil {
		r.fail("CreateCommandEncoder failed: %w", err)
		return
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: fmt.Sprintf("Character Shadow Slice %d", slice.Index),
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.sliceViews[slice.Index],
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{ClearDepth, ClearDepth, ClearDepth, 0},
		}},
	})
	if r.DrawCasters != nil {
		r.DrawCasters(pass, layout, slice)
	}
	if err := pass.End(); err != nil {
		r.fail("shadow pass End failed: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		r.fail("Encoder Finish failed: %w", err)
		return
	}
	r.Device.GetQueue().Submit(cmd)
}

// GlobalsBuffer is the uniform buffer holding the packed globals of kind.
func (r *AtlasRenderer) GlobalsBuffer(kind atlas.Kind) *wgpu.Buffer {
	return r.targets[kind].globalsBuf
}

// ArrayView is the sampling view of kind's atlas, nil before the first frame.
func (r *AtlasRenderer) ArrayView(kind atlas.Kind) *wgpu.TextureView {
	return r.targets[kind].arrayView
}

func (r *AtlasRenderer) Release() {
	for i := range r.targets {
		t := &r.targets[i]
		t.releaseTexture()
		if t.globalsBuf != nil {
			t.globalsBuf.Release()
			t.globalsBuf = nil
		}
	}
}
