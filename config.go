package facecapture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/swdee/go-facecapture/quality"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding Config fields,
// eg: FACECAPTURE_MAX_YAW=15
const EnvPrefix = "FACECAPTURE"

// Config holds every tunable of a capture session.  None of the thresholds
// have a single correct value, DefaultConfig provides one working set.
type Config struct {
	// MaxYaw, MaxPitch and MaxRoll are the maximum head angles in degrees
	MaxYaw   float64 `yaml:"max_yaw" envconfig:"MAX_YAW"`
	MaxPitch float64 `yaml:"max_pitch" envconfig:"MAX_PITCH"`
	MaxRoll  float64 `yaml:"max_roll" envconfig:"MAX_ROLL"`
	// MinFaceSidePx is the minimum width and height of the face box
	MinFaceSidePx int `yaml:"min_face_side_px" envconfig:"MIN_FACE_SIDE_PX"`
	// FrameMarginPx is the distance the face box keeps from the frame edges
	FrameMarginPx int `yaml:"frame_margin_px" envconfig:"FRAME_MARGIN_PX"`
	// MaxFaceAreaFraction is the largest share of the frame the face may fill
	MaxFaceAreaFraction float64 `yaml:"max_face_area_fraction" envconfig:"MAX_FACE_AREA_FRACTION"`
	// MaxHints is the number of corrective hints shown at once
	MaxHints int `yaml:"max_hints" envconfig:"MAX_HINTS"`

	// Stable is how long every gate must pass continuously before capture
	Stable time.Duration `yaml:"stable" envconfig:"STABLE"`
	// VelocityThreshold is the smoothed head velocity in deg/s counted as
	// still
	VelocityThreshold float64 `yaml:"velocity_threshold" envconfig:"VELOCITY_THRESHOLD"`
	// MotionStable is how long the head must be still
	MotionStable time.Duration `yaml:"motion_stable" envconfig:"MOTION_STABLE"`
	// EMAAlpha is the weight of the newest velocity sample
	EMAAlpha float64 `yaml:"ema_alpha" envconfig:"EMA_ALPHA"`
	// DeadBand is the velocity in deg/s ignored as detector jitter
	DeadBand float64 `yaml:"dead_band" envconfig:"DEAD_BAND"`

	// MinSharpness is the Laplacian variance below which a capture is
	// rejected as blurred
	MinSharpness float64 `yaml:"min_sharpness" envconfig:"MIN_SHARPNESS"`
	// SharpnessMaxSide bounds the region size sharpness is measured at
	SharpnessMaxSide int `yaml:"sharpness_max_side" envconfig:"SHARPNESS_MAX_SIDE"`
	// Padding grows the face box by this fraction before cropping
	Padding float64 `yaml:"padding" envconfig:"PADDING"`
	// Mirror flips the captured image horizontally, for front cameras
	Mirror bool `yaml:"mirror" envconfig:"MIRROR"`

	// SessionTimeout ends the session if no capture has been taken
	SessionTimeout time.Duration `yaml:"session_timeout" envconfig:"SESSION_TIMEOUT"`

	// CacheDir is where captured images are written
	CacheDir string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
	// CacheMaxAge is the age past which cached captures are removed at
	// session start
	CacheMaxAge time.Duration `yaml:"cache_max_age" envconfig:"CACHE_MAX_AGE"`
	// JPEGQuality of the captured image, 1 to 100
	JPEGQuality int `yaml:"jpeg_quality" envconfig:"JPEG_QUALITY"`
}

// DefaultConfig returns the settings the capture screen shipped with
func DefaultConfig() Config {
	return Config{
		MaxYaw:              20,
		MaxPitch:            20,
		MaxRoll:             20,
		MinFaceSidePx:       200,
		FrameMarginPx:       20,
		MaxFaceAreaFraction: 0.35,
		MaxHints:            2,
		Stable:              500 * time.Millisecond,
		VelocityThreshold:   50,
		MotionStable:        250 * time.Millisecond,
		EMAAlpha:            0.35,
		DeadBand:            quality.DefaultDeadBand,
		MinSharpness:        60,
		SharpnessMaxSide:    quality.DefaultSharpnessMaxSide,
		Padding:             0.20,
		Mirror:              true,
		SessionTimeout:      15 * time.Second,
		CacheDir:            filepath.Join(os.TempDir(), "facecapture"),
		CacheMaxAge:         24 * time.Hour,
		JPEGQuality:         95,
	}
}

// LoadConfig returns DefaultConfig overlaid with the YAML file at path, if
// path is not empty, and then with any FACECAPTURE_* environment variables
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration values are usable
func (c Config) Validate() error {

	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.MaxYaw > 0, "max_yaw must be positive, got %v", c.MaxYaw)
	check(c.MaxPitch > 0, "max_pitch must be positive, got %v", c.MaxPitch)
	check(c.MaxRoll > 0, "max_roll must be positive, got %v", c.MaxRoll)
	check(c.MinFaceSidePx >= 0, "min_face_side_px must not be negative, got %d", c.MinFaceSidePx)
	check(c.FrameMarginPx >= 0, "frame_margin_px must not be negative, got %d", c.FrameMarginPx)
	check(c.MaxFaceAreaFraction > 0 && c.MaxFaceAreaFraction <= 1,
		"max_face_area_fraction must be in (0,1], got %v", c.MaxFaceAreaFraction)
	check(c.MaxHints >= 0, "max_hints must not be negative, got %d", c.MaxHints)
	check(c.Stable >= 0, "stable must not be negative, got %v", c.Stable)
	check(c.VelocityThreshold > 0, "velocity_threshold must be positive, got %v", c.VelocityThreshold)
	check(c.MotionStable >= 0, "motion_stable must not be negative, got %v", c.MotionStable)
	check(c.EMAAlpha > 0 && c.EMAAlpha <= 1, "ema_alpha must be in (0,1], got %v", c.EMAAlpha)
	check(c.DeadBand >= 0, "dead_band must not be negative, got %v", c.DeadBand)
	check(c.MinSharpness >= 0, "min_sharpness must not be negative, got %v", c.MinSharpness)
	check(c.SharpnessMaxSide >= 0, "sharpness_max_side must not be negative, got %d", c.SharpnessMaxSide)
	check(c.Padding >= 0, "padding must not be negative, got %v", c.Padding)
	check(c.SessionTimeout > 0, "session_timeout must be positive, got %v", c.SessionTimeout)
	check(c.CacheDir != "", "cache_dir must be set")
	check(c.CacheMaxAge > 0, "cache_max_age must be positive, got %v", c.CacheMaxAge)
	check(c.JPEGQuality >= 1 && c.JPEGQuality <= 100,
		"jpeg_quality must be in [1,100], got %d", c.JPEGQuality)

	return errors.Join(errs...)
}

// Thresholds returns the static gate limits of the configuration
func (c Config) Thresholds() quality.Thresholds {
	return quality.Thresholds{
		MaxYaw:              c.MaxYaw,
		MaxPitch:            c.MaxPitch,
		MaxRoll:             c.MaxRoll,
		MinFaceSidePx:       c.MinFaceSidePx,
		FrameMarginPx:       c.FrameMarginPx,
		MaxFaceAreaFraction: c.MaxFaceAreaFraction,
		MaxHints:            c.MaxHints,
		MirrorHints:         c.Mirror,
	}
}
