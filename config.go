package charshadow

import (
	"context"
	"os"
	"strings"

	"github.com/gekko3d/charshadow/shadowrt/atlas"
	"github.com/gekko3d/charshadow/shadowrt/cascade"
	"github.com/gekko3d/charshadow/shadowrt/core"
	"github.com/gekko3d/charshadow/shadowrt/rig"
	"github.com/gekko3d/charshadow/shadowrt/scoring"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix     = "CHARSHADOW_"
	EnvConfigPath = "CHARSHADOW_CONFIG"

	PrecisionRFloat = "rfloat"
	PrecisionRHalf  = "rhalf"

	SoftShadowNormal = "normal"
	SoftShadowHigh   = "high"
)

// Config is static for a session.
type Config struct {
	LogPrefix string `koanf:"log_prefix"`
	Debug     bool   `koanf:"debug"`

	// TextureScale multiplies the 1024 texel base slice: 1, 2 or 4.
	TextureScale            int    `koanf:"texture_scale"`
	TransparentTextureScale int    `koanf:"transparent_texture_scale"`
	Precision               string `koanf:"precision"`
	SoftShadowMode          string `koanf:"soft_shadow_mode"`

	// CascadeSplits are four ascending viewer-to-target distances.
	CascadeSplits   []float32 `koanf:"cascade_splits"`
	CullingDistance float32   `koanf:"culling_distance"`

	EnableAdditionalShadow bool `koanf:"enable_additional_shadow"`
	// ForwardPlus reports that the renderer has per-pixel light lists.
	// Additional shadows need it.
	ForwardPlus             bool `koanf:"forward_plus"`
	UseBrightestLightOnly   bool `koanf:"use_brightest_light_only"`
	EnableTransparentShadow bool `koanf:"enable_transparent_shadow"`

	Bias                 float32 `koanf:"bias"`
	NormalBias           float32 `koanf:"normal_bias"`
	AdditionalBias       float32 `koanf:"additional_bias"`
	AdditionalNormalBias float32 `koanf:"additional_normal_bias"`
	StepOffset           float32 `koanf:"step_offset"`
	AdditionalStepOffset float32 `koanf:"additional_step_offset"`

	CameraDistance float32 `koanf:"camera_distance"`
	HeightOffset   float32 `koanf:"height_offset"`
	ScoreThreshold float32 `koanf:"score_threshold"`

	SharedProjection   bool    `koanf:"shared_projection"`
	SpotConeProjection bool    `koanf:"spot_cone_projection"`
	Orthographic       bool    `koanf:"projection_orthographic"`
	FovY               float32 `koanf:"projection_fov_y"`
	HalfExtent         float32 `koanf:"projection_half_extent"`
	Near               float32 `koanf:"projection_near"`
	Far                float32 `koanf:"projection_far"`

	StickySlots bool `koanf:"sticky_slots"`

	MetricsEnabled   bool   `koanf:"metrics_enabled"`
	MetricsNamespace string `koanf:"metrics_namespace"`
}

func NewConfig() *Config {
	proj := core.DefaultProjection()
	return &Config{
		LogPrefix:               "charshadow",
		TextureScale:            int(atlas.TextureScaleX2),
		TransparentTextureScale: int(atlas.TextureScaleX2),
		Precision:               PrecisionRFloat,
		SoftShadowMode:          SoftShadowNormal,
		CascadeSplits:           append([]float32(nil), cascade.DefaultSplits[:]...),
		StepOffset:              0.99,
		AdditionalStepOffset:    0.99,
		CameraDistance:          rig.DefaultDistance,
		HeightOffset:            rig.DefaultHeightOffset,
		ScoreThreshold:          scoring.DefaultThreshold,
		SharedProjection:        true,
		FovY:                    proj.FovY,
		HalfExtent:              proj.HalfExtent,
		Near:                    proj.Near,
		Far:                     proj.Far,
		MetricsEnabled:          true,
		MetricsNamespace:        "charshadow",
	}
}

// Load layers, low to high precedence: defaults, the YAML file named by
// CHARSHADOW_CONFIG if set, then CHARSHADOW_* environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigPath))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file.
func LoadFile(_ context.Context, path string) (*Config, error) {
	base := NewConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, wrapLoad(err, path)
		}
	}

	// CHARSHADOW_TEXTURE_SCALE -> texture_scale, flat keys
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, wrapLoad(err, "env")
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, wrapLoad(err, "unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural settings. Light photometry is never
// validated here; odd ranges or cone angles just never or always qualify.
func (c *Config) Validate() error {
	if !atlas.TextureScale(c.TextureScale).Valid() {
		return invalidf("texture_scale must be 1, 2 or 4, got %d", c.TextureScale)
	}
	if !atlas.TextureScale(c.TransparentTextureScale).Valid() {
		return invalidf("transparent_texture_scale must be 1, 2 or 4, got %d", c.TransparentTextureScale)
	}
	switch c.Precision {
	case PrecisionRFloat, PrecisionRHalf:
	default:
		return invalidf("precision must be %q or %q, got %q", PrecisionRFloat, PrecisionRHalf, c.Precision)
	}
	switch c.SoftShadowMode {
	case SoftShadowNormal, SoftShadowHigh:
	default:
		return invalidf("soft_shadow_mode must be %q or %q, got %q", SoftShadowNormal, SoftShadowHigh, c.SoftShadowMode)
	}
	if len(c.CascadeSplits) != len(cascade.Splits{}) {
		return invalidf("cascade_splits needs 4 values, got %d", len(c.CascadeSplits))
	}
	if !c.Splits().Ascending() {
		return invalidf("cascade_splits must be ascending, got %v", c.CascadeSplits)
	}
	if c.CullingDistance < 0 {
		return invalidf("culling_distance must not be negative")
	}
	return nil
}

// AdditionalShadowsEnabled is true when spot light slices are rendered.
func (c *Config) AdditionalShadowsEnabled() bool {
	return c.EnableAdditionalShadow && c.ForwardPlus
}

func (c *Config) Splits() cascade.Splits {
	var s cascade.Splits
	copy(s[:], c.CascadeSplits)
	return s
}

func (c *Config) Scheduler() cascade.Scheduler {
	return cascade.NewScheduler(c.Splits(), c.CullingDistance)
}

func (c *Config) Scorer() scoring.Scorer {
	return scoring.Scorer{Threshold: c.ScoreThreshold, MaxResults: rig.MaxSpotSlots}
}

func (c *Config) Projection() core.Projection {
	return core.Projection{
		Orthographic: c.Orthographic,
		FovY:         c.FovY,
		HalfExtent:   c.HalfExtent,
		Near:         c.Near,
		Far:          c.Far,
	}
}

func (c *Config) RigOptions() rig.Options {
	opts := rig.DefaultOptions()
	opts.Distance = c.CameraDistance
	opts.HeightOffset = c.HeightOffset
	opts.Projection = c.Projection()
	opts.SharedProjection = c.SharedProjection
	opts.SpotConeProjection = c.SpotConeProjection
	opts.StickySlots = c.StickySlots
	return opts
}

func (c *Config) AtlasSettings() atlas.Settings {
	precision := atlas.PrecisionR32Float
	if c.Precision == PrecisionRHalf {
		precision = atlas.PrecisionR16Float
	}
	return atlas.Settings{
		BaseResolution:            atlas.TextureScale(c.TextureScale).Texels(),
		TransparentBaseResolution: atlas.TextureScale(c.TransparentTextureScale).Texels(),
		Precision:                 precision,
		Bias:                      c.Bias,
		NormalBias:                c.NormalBias,
		AdditionalBias:            c.AdditionalBias,
		AdditionalNormalBias:      c.AdditionalNormalBias,
		StepOffset:                c.StepOffset,
		AdditionalStepOffset:      c.AdditionalStepOffset,
		AdditionalShadows:         c.AdditionalShadowsEnabled(),
		BrightestLightOnly:        c.UseBrightestLightOnly,
		HighSoftShadow:            c.SoftShadowMode == SoftShadowHigh,
	}
}
