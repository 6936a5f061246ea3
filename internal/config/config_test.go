package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/prep"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadJSONAndYAML(t *testing.T) {
	jsonPath := writeFile(t, "cfg.json", `{
		"input_dir": "/clips",
		"prep": {"facing": "x", "velocity_max": 40, "speed_curve_bones": ["foot_l"]},
		"preview": {"format": "tga"}
	}`)
	yamlPath := writeFile(t, "cfg.yaml", `
input_dir: /clips
prep:
  facing: x
  velocity_max: 40
  speed_curve_bones: [foot_l]
preview:
  format: tga
`)

	for _, path := range []string{jsonPath, yamlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "/clips", cfg.InputDir)
			assert.Equal(t, "x", cfg.Prep.Facing)
			require.NotNil(t, cfg.Prep.VelocityMax)
			assert.Equal(t, 40.0, *cfg.Prep.VelocityMax)
			assert.Equal(t, []string{"foot_l"}, cfg.Prep.SpeedCurveBones)
			assert.Equal(t, FormatTGA, cfg.Preview.Format)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "config: parse")
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Resolve(Flags{InputDir: "/data/anims"}))

	assert.Equal(t, "/data/anims", cfg.InputDir)
	assert.Equal(t, filepath.Join("/data/anims", "prepared"), cfg.OutputDir)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FormatWebP, cfg.Preview.Format)
	assert.Equal(t, 256, cfg.Preview.Size)
	assert.Equal(t, 2, cfg.Preview.Supersample)
	assert.Equal(t, prep.DefaultFrameRate, cfg.BMD.FrameRate)
	assert.Equal(t, EncodingEUCKR, cfg.BMD.NameEncoding)
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	cfg := Config{OutputDir: "/tmp/a", Workers: 3, Preview: Preview{Format: "webp"}}
	require.NoError(t, cfg.Resolve(Flags{OutputDir: "/tmp/b", Workers: 5, Preview: "none", Facing: "z"}))

	assert.Equal(t, "/tmp/b", cfg.OutputDir)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, FormatNone, cfg.Preview.Format)

	s, err := cfg.Prep.Settings()
	require.NoError(t, err)
	assert.Equal(t, mathutil.AxisZ, s.Facing)
}

func TestResolveRejectsUnknownValues(t *testing.T) {
	cases := map[string]Config{
		"preview":  {Preview: Preview{Format: "png"}},
		"encoding": {BMD: BMD{NameEncoding: "utf-16"}},
		"facing":   {Prep: Prep{Facing: "w"}},
		"hand":     {Prep: Prep{PrimaryHand: "middle"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Resolve(Flags{}))
		})
	}
}

func TestPrepSettingsOverrides(t *testing.T) {
	half := 0.5
	p := Prep{PelvisBone: "Hips", PrimaryHand: "LEFT", SmoothingMaxSeconds: &half}
	s, err := p.Settings()
	require.NoError(t, err)

	want := prep.Defaults()
	want.PelvisBone = "Hips"
	want.PrimaryHand = prep.HandLeft
	want.SmoothingMaxSeconds = 0.5
	assert.Equal(t, want, s)
}

func TestPrepSettingsZeroAndEmptyValues(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
prep:
  velocity_min: 0
  smoothing_min_seconds: 0
  ik_hand_secondary_bone: ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	s, err := cfg.Prep.Settings()
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.VelocityMin)
	assert.Equal(t, 0.0, s.SmoothingMinSeconds)
	assert.Equal(t, 25.0, s.VelocityMax)
	assert.Empty(t, s.IKHandSecondaryBone)
	assert.Equal(t, "ik_hand_gun", s.IKHandPrimaryBone)
}
