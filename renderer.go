package charshadow

import "github.com/gekko3d/charshadow/shadowrt/atlas"

// Renderer owns the atlas textures and the draw submission. Data flows one
// way: ConfigureAtlas once per atlas per frame, then DrawSlice for every
// populated slice, in slice order.
type Renderer interface {
	ConfigureAtlas(layout atlas.Layout, globals atlas.ShaderGlobals)
	DrawSlice(layout atlas.Layout, slice atlas.Slice)
}

type nopRenderer struct{}

func (nopRenderer) ConfigureAtlas(atlas.Layout, atlas.ShaderGlobals) {}
func (nopRenderer) DrawSlice(atlas.Layout, atlas.Slice) {}
