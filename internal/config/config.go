// Package config loads the guide configuration from a TOML file and
// MUSEUMGUIDE_* environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/geom"
	"github.com/fabriziosardo/AR-Project/internal/ground"
	"github.com/fabriziosardo/AR-Project/internal/lifecycle"
	"github.com/fabriziosardo/AR-Project/internal/logging"
	"github.com/fabriziosardo/AR-Project/internal/placement"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MUSEUMGUIDE_"

// Duration is a time.Duration written as a string such as "3s" or "1500ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete guide configuration.
type Config struct {
	Addr               string   `toml:"addr" env:"ADDR"`
	DBPath             string   `toml:"db_path" env:"DB_PATH"`
	FrameRate          int      `toml:"frame_rate" env:"FRAME_RATE"`
	StabilityThreshold Duration `toml:"stability_threshold" env:"STABILITY_THRESHOLD"`
	AnchorsEnabled     bool     `toml:"anchors_enabled" env:"ANCHORS_ENABLED"`
	MaxAnchorAttempts  int      `toml:"max_anchor_attempts" env:"MAX_ANCHOR_ATTEMPTS"`
	StrictArtworks     bool     `toml:"strict_artworks" env:"STRICT_ARTWORKS"`
	// AnchorLogRetention bounds the age of anchor log rows kept at startup.
	// Zero keeps everything.
	AnchorLogRetention Duration `toml:"anchor_log_retention" env:"ANCHOR_LOG_RETENTION"`
	// ImageDir is the base for relative artwork image paths. It defaults to
	// the directory of the config file.
	ImageDir string `toml:"image_dir" env:"IMAGE_DIR"`
	// Templates restricts the character models the built-in room can spawn.
	Templates []string `toml:"templates"`

	Log       logging.Config  `toml:"log" envPrefix:"LOG_"`
	Ground    GroundConfig    `toml:"ground"`
	Placement PlacementConfig `toml:"placement"`
	Artworks  []ArtworkConfig `toml:"artworks"`
}

// GroundConfig configures the ground probe. Layers name the colliders the
// probe rays may hit.
type GroundConfig struct {
	Layers        []string `toml:"layers"`
	MaxDistance   float64  `toml:"max_distance"`
	ProbeHeight   float64  `toml:"probe_height"`
	Bidirectional bool     `toml:"bidirectional"`
}

// PlacementConfig configures how characters are placed and oriented.
type PlacementConfig struct {
	YawCorrectionDeg float64 `toml:"yaw_correction_deg"`
	// SnapToGround defaults to the value of anchors_enabled.
	SnapToGround *bool `toml:"snap_to_ground"`
}

// ArtworkConfig is one [[artworks]] entry.
type ArtworkConfig struct {
	ReferenceImage   string    `toml:"reference_image"`
	Template         string    `toml:"template"`
	Offset           []float64 `toml:"offset"`
	Scale            float64   `toml:"scale"`
	DistanceFromWall float64   `toml:"distance_from_wall"`
	Dialogue         []string  `toml:"dialogue"`
	Description      string    `toml:"description"`
	ImagePath        string    `toml:"image_path"`
	PhysicalWidth    float64   `toml:"physical_width"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:               "127.0.0.1:8080",
		DBPath:             "~/.museumguide/museumguide.db",
		FrameRate:          30,
		StabilityThreshold: Duration{3 * time.Second},
		AnchorsEnabled:     true,
		MaxAnchorAttempts:  1,
		AnchorLogRetention: Duration{30 * 24 * time.Hour},
		Log:                logging.DefaultConfig(),
		Ground: GroundConfig{
			Layers:      []string{"ground"},
			MaxDistance: ground.DefaultConfig().MaxDistance,
			ProbeHeight: ground.DefaultConfig().ProbeHeight,
		},
	}
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
		if cfg.ImageDir == "" {
			cfg.ImageDir = filepath.Dir(path)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from MUSEUMGUIDE_* variables.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate reports the first invalid setting in cfg.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("config missing addr")
	}
	if cfg.FrameRate <= 0 || cfg.FrameRate > 240 {
		return fmt.Errorf("frame_rate %d out of range (1-240)", cfg.FrameRate)
	}
	if cfg.StabilityThreshold.Duration < 0 {
		return fmt.Errorf("stability_threshold must not be negative")
	}
	if cfg.MaxAnchorAttempts < 0 {
		return fmt.Errorf("max_anchor_attempts must not be negative")
	}
	if cfg.AnchorLogRetention.Duration < 0 {
		return fmt.Errorf("anchor_log_retention must not be negative")
	}
	if _, err := ground.MaskFor(cfg.Ground.Layers, ground.DefaultLayers); err != nil {
		return fmt.Errorf("ground: %w", err)
	}
	if cfg.Ground.MaxDistance < 0 || cfg.Ground.ProbeHeight < 0 {
		return fmt.Errorf("ground distances must not be negative")
	}
	for i, a := range cfg.Artworks {
		if err := ValidateArtwork(a); err != nil {
			return fmt.Errorf("artworks[%d] invalid: %w", i, err)
		}
	}
	if cfg.StrictArtworks {
		if err := artwork.ValidateUnique(cfg.ArtworkConfigs()); err != nil {
			return fmt.Errorf("strict_artworks: %w", err)
		}
	}
	return nil
}

// ValidateArtwork checks a single artwork entry.
func ValidateArtwork(a ArtworkConfig) error {
	if strings.TrimSpace(a.ReferenceImage) == "" {
		return fmt.Errorf("reference_image is required")
	}
	if n := len(a.Offset); n != 0 && n != 3 {
		return fmt.Errorf("offset needs 3 components, got %d", n)
	}
	if a.Scale < 0 {
		return fmt.Errorf("scale must not be negative")
	}
	if a.PhysicalWidth < 0 {
		return fmt.Errorf("physical_width must not be negative")
	}
	return nil
}

// ArtworkConfigs converts the [[artworks]] tables, keeping their order.
func (c Config) ArtworkConfigs() []artwork.Config {
	out := make([]artwork.Config, 0, len(c.Artworks))
	for _, a := range c.Artworks {
		out = append(out, a.toArtwork())
	}
	return out
}

func (a ArtworkConfig) toArtwork() artwork.Config {
	var off geom.Vec
	if len(a.Offset) == 3 {
		off = geom.Vec{X: a.Offset[0], Y: a.Offset[1], Z: a.Offset[2]}
	}
	return artwork.Config{
		ReferenceImage:   strings.TrimSpace(a.ReferenceImage),
		Template:         a.Template,
		Offset:           off,
		Scale:            a.Scale,
		DistanceFromWall: a.DistanceFromWall,
		Dialogue:         append([]string(nil), a.Dialogue...),
		Description:      a.Description,
		ImagePath:        a.ImagePath,
		PhysicalWidth:    a.PhysicalWidth,
	}
}

// GroundProbe returns the ground probe settings.
func (c Config) GroundProbe() ground.Config {
	mask, err := ground.MaskFor(c.Ground.Layers, ground.DefaultLayers)
	if err != nil {
		mask = ground.AllLayers
	}
	return ground.Config{
		Layers:        mask,
		MaxDistance:   c.Ground.MaxDistance,
		ProbeHeight:   c.Ground.ProbeHeight,
		Bidirectional: c.Ground.Bidirectional,
	}
}

// PlacementSettings returns the placement settings.
func (c Config) PlacementSettings() placement.Config {
	snap := c.AnchorsEnabled
	if c.Placement.SnapToGround != nil {
		snap = *c.Placement.SnapToGround
	}
	return placement.Config{
		SnapToGround:  snap,
		YawCorrection: c.Placement.YawCorrectionDeg * math.Pi / 180,
	}
}

// Lifecycle returns the stabilization settings.
func (c Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{
		StabilityThreshold: c.StabilityThreshold.Duration,
		AnchorsEnabled:     c.AnchorsEnabled,
		MaxAnchorAttempts:  c.MaxAnchorAttempts,
	}
}

// FrameInterval is the period of the frame loop.
func (c Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.FrameRate)
}
