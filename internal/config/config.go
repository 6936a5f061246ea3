package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/prep"
)

// Config holds input/output paths and all pass settings.
type Config struct {
	// Paths
	InputDir  string `json:"input_dir" yaml:"input_dir"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	Prep    Prep    `json:"prep" yaml:"prep"`
	BMD     BMD     `json:"bmd" yaml:"bmd"`
	Preview Preview `json:"preview" yaml:"preview"`

	Workers  int    `json:"workers" yaml:"workers"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Prep mirrors prep.Settings with file-friendly types. Empty fields keep the
// prep.Defaults value.
type Prep struct {
	RootBone       string `json:"root_bone" yaml:"root_bone"`
	PelvisBone     string `json:"pelvis_bone" yaml:"pelvis_bone"`
	LeftThighBone  string `json:"left_thigh_bone" yaml:"left_thigh_bone"`
	RightThighBone string `json:"right_thigh_bone" yaml:"right_thigh_bone"`
	SpineBone      string `json:"spine_bone" yaml:"spine_bone"`
	LeftFootBone   string `json:"left_foot_bone" yaml:"left_foot_bone"`
	RightFootBone  string `json:"right_foot_bone" yaml:"right_foot_bone"`
	LeftBallBone   string `json:"left_ball_bone" yaml:"left_ball_bone"`
	RightBallBone  string `json:"right_ball_bone" yaml:"right_ball_bone"`
	LeftHandBone   string `json:"left_hand_bone" yaml:"left_hand_bone"`
	RightHandBone  string `json:"right_hand_bone" yaml:"right_hand_bone"`

	// IK output bones. An empty string disables that output track; a
	// missing field keeps the default name.
	IKFootLeftBone      *string `json:"ik_foot_l_bone" yaml:"ik_foot_l_bone"`
	IKFootRightBone     *string `json:"ik_foot_r_bone" yaml:"ik_foot_r_bone"`
	IKHandPrimaryBone   *string `json:"ik_hand_primary_bone" yaml:"ik_hand_primary_bone"`
	IKHandSecondaryBone *string `json:"ik_hand_secondary_bone" yaml:"ik_hand_secondary_bone"`
	PrimaryHand         string  `json:"primary_hand" yaml:"primary_hand"`

	Facing string `json:"facing" yaml:"facing"`

	// Nil keeps the default; zero is a valid value.
	VelocityMin         *float64 `json:"velocity_min" yaml:"velocity_min"`
	VelocityMax         *float64 `json:"velocity_max" yaml:"velocity_max"`
	SmoothingMinSeconds *float64 `json:"smoothing_min_seconds" yaml:"smoothing_min_seconds"`
	SmoothingMaxSeconds *float64 `json:"smoothing_max_seconds" yaml:"smoothing_max_seconds"`

	SpeedCurveBones []string `json:"speed_curve_bones" yaml:"speed_curve_bones"`
}

// BMD configures reading MU BMD animation files.
type BMD struct {
	FrameRate    float64 `json:"frame_rate" yaml:"frame_rate"`
	NameEncoding string  `json:"name_encoding" yaml:"name_encoding"`

	// Decryption keys, hex encoded. Needed only for v12 and v15 files.
	XORKey string `json:"xor_key" yaml:"xor_key"`
	LEAKey string `json:"lea_key" yaml:"lea_key"`
}

// Preview configures the top-down path image written per clip.
type Preview struct {
	Format      string `json:"format" yaml:"format"`
	Size        int    `json:"size" yaml:"size"`
	Supersample int    `json:"supersample" yaml:"supersample"`
}

// Preview formats.
const (
	FormatWebP = "webp"
	FormatTGA  = "tga"
	FormatNone = "none"
)

// Name encodings for BMD bone names.
const (
	EncodingEUCKR       = "euc-kr"
	EncodingWindows1252 = "windows-1252"
)

// Load reads a config file. Files ending in .yaml or .yml are parsed as YAML,
// anything else as JSON. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir  string
	OutputDir string
	Preview   string
	Facing    string
	Workers   int
	LogLevel  string
}

// Resolve applies flags, fills defaults and validates enumerations.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) error {
	// CLI flags override config file
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Preview != "" {
		c.Preview.Format = flags.Preview
	}
	if flags.Facing != "" {
		c.Prep.Facing = flags.Facing
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}

	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "prepared")
	} else if !filepath.IsAbs(c.OutputDir) && c.InputDir != "." {
		c.OutputDir = filepath.Join(c.InputDir, c.OutputDir)
	}

	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// Defaults for preview settings
	c.Preview.Format = strings.ToLower(c.Preview.Format)
	switch c.Preview.Format {
	case "":
		c.Preview.Format = FormatWebP
	case FormatWebP, FormatTGA, FormatNone:
	default:
		return fmt.Errorf("config: unknown preview format %q", c.Preview.Format)
	}
	if c.Preview.Size <= 0 {
		c.Preview.Size = 256
	}
	if c.Preview.Supersample <= 0 {
		c.Preview.Supersample = 2
	}

	// Defaults for BMD settings
	if c.BMD.FrameRate <= 0 {
		c.BMD.FrameRate = prep.DefaultFrameRate
	}
	c.BMD.NameEncoding = strings.ToLower(c.BMD.NameEncoding)
	switch c.BMD.NameEncoding {
	case "":
		c.BMD.NameEncoding = EncodingEUCKR
	case EncodingEUCKR, EncodingWindows1252:
	default:
		return fmt.Errorf("config: unknown name encoding %q", c.BMD.NameEncoding)
	}

	if _, err := c.Prep.Settings(); err != nil {
		return err
	}
	return nil
}

// Settings converts the file form into prep.Settings.
func (p Prep) Settings() (prep.Settings, error) {
	s := prep.Defaults()
	setString(&s.RootBone, p.RootBone)
	setString(&s.PelvisBone, p.PelvisBone)
	setString(&s.LeftThighBone, p.LeftThighBone)
	setString(&s.RightThighBone, p.RightThighBone)
	setString(&s.SpineBone, p.SpineBone)
	setString(&s.LeftFootBone, p.LeftFootBone)
	setString(&s.RightFootBone, p.RightFootBone)
	setString(&s.LeftBallBone, p.LeftBallBone)
	setString(&s.RightBallBone, p.RightBallBone)
	setString(&s.LeftHandBone, p.LeftHandBone)
	setString(&s.RightHandBone, p.RightHandBone)
	setOptional(&s.IKFootLeftBone, p.IKFootLeftBone)
	setOptional(&s.IKFootRightBone, p.IKFootRightBone)
	setOptional(&s.IKHandPrimaryBone, p.IKHandPrimaryBone)
	setOptional(&s.IKHandSecondaryBone, p.IKHandSecondaryBone)
	setString(&s.PrimaryHand, strings.ToLower(p.PrimaryHand))

	if p.Facing != "" {
		axis, err := mathutil.ParseAxis(p.Facing)
		if err != nil {
			return prep.Settings{}, fmt.Errorf("config: facing: %w", err)
		}
		s.Facing = axis
	}

	setOptional(&s.VelocityMin, p.VelocityMin)
	setOptional(&s.VelocityMax, p.VelocityMax)
	setOptional(&s.SmoothingMinSeconds, p.SmoothingMinSeconds)
	setOptional(&s.SmoothingMaxSeconds, p.SmoothingMaxSeconds)

	if len(p.SpeedCurveBones) > 0 {
		s.SpeedCurveBones = append([]string(nil), p.SpeedCurveBones...)
	}

	if err := s.Validate(); err != nil {
		return prep.Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setOptional copies v when the file set it, including zero values.
func setOptional[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
