package atlas

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GlobalsSize is the byte size of the packed ShaderGlobals block.
//
//	struct CharShadowGlobals {
//	  bias: vec4<f32>;                 -- 0
//	  step_offset: vec4<f32>;          -- 16 (xy used)
//	  offset0: vec4<f32>;              -- 32
//	  offset1: vec4<f32>;              -- 48
//	  map_size: vec4<f32>;             -- 64
//	  cascade: vec4<f32>;              -- 80
//	  local_light_indices: vec4<f32>;  -- 96 (xyz used)
//	  flags: vec4<u32>;                -- 112 additional, brightest, high soft, slices
//	  light_dirs: array<vec4<f32>, 3>; -- 128
//	  proj: mat4x4<f32>;               -- 176
//	  views: array<mat4x4<f32>, 4>;    -- 240
//	} -> 496, padded to 512
const GlobalsSize = 512

// PackGlobals writes the globals little-endian in the layout above.
func PackGlobals(g ShaderGlobals) []byte {
	buf := make([]byte, GlobalsSize)
	PackGlobalsInto(buf, g)
	return buf
}

// PackGlobalsInto is PackGlobals into a caller buffer of at least GlobalsSize bytes.
func PackGlobalsInto(buf []byte, g ShaderGlobals) {
	writeF := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}
	writeVec := func(offset int, v mgl32.Vec4) {
		for i, c := range v {
			writeF(offset+i*4, c)
		}
	}
	writeMat := func(offset int, m mgl32.Mat4) {
		for i, c := range m {
			writeF(offset+i*4, c)
		}
	}
	flag := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}

	writeVec(0, g.Bias)
	writeVec(16, mgl32.Vec4{g.StepOffset[0], g.StepOffset[1], 0, 0})
	writeVec(32, g.Offset0)
	writeVec(48, g.Offset1)
	writeVec(64, g.MapSize)
	writeVec(80, g.CascadeParams)
	writeVec(96, mgl32.Vec4{g.LocalLightIndices[0], g.LocalLightIndices[1], g.LocalLightIndices[2], 0})

	binary.LittleEndian.PutUint32(buf[112:], flag(g.UseAdditional))
	binary.LittleEndian.PutUint32(buf[116:], flag(g.BrightestOnly))
	binary.LittleEndian.PutUint32(buf[120:], flag(g.HighSoftShadow))
	binary.LittleEndian.PutUint32(buf[124:], uint32(g.SliceCount))

	for i, d := range g.LightDirections {
		writeVec(128+i*16, d)
	}
	writeMat(176, g.Projection)
	for i, v := range g.ViewMatrices {
		writeMat(240+i*64, v)
	}
	for i := 496; i < GlobalsSize; i++ {
		buf[i] = 0
	}
}
