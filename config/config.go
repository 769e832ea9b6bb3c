// Package config loads the TOML configuration of the compositor tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config is the configuration of one compositor run.
type Config struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Frames int    `toml:"frames"`
	Output string `toml:"output"`

	Background Color `toml:"background"`
	Foreground Color `toml:"foreground"`

	Recording RecordingConfig `toml:"recording"`
	Raster    RasterConfig    `toml:"raster"`
	NinePatch NinePatchConfig `toml:"nine_patch"`
	Video     VideoConfig     `toml:"video"`
}

// RecordingConfig configures recording sources.
type RecordingConfig struct {
	TileWidth  int    `toml:"tile_width"`
	TileHeight int    `toml:"tile_height"`
	Policy     string `toml:"policy"` // "default" or "full"
}

// RasterConfig configures the software compositor.
type RasterConfig struct {
	CacheSizeMB   int    `toml:"cache_size_mb"`
	Interpolation string `toml:"interpolation"` // "bilinear" or "nearest"
}

// NinePatchConfig describes the nine-patch layer of the demo scene.
// Insets are given as [left, top, right, bottom].
type NinePatchConfig struct {
	ImageWidth  int    `toml:"image_width"`
	ImageHeight int    `toml:"image_height"`
	Aperture    [4]int `toml:"aperture"`
	Border      [4]int `toml:"border"`
	FillCenter  bool   `toml:"fill_center"`
}

// VideoConfig describes the video layer of the demo scene.
type VideoConfig struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	Subsampling string `toml:"subsampling"` // "420", "422" or "444"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Width:      640,
		Height:     480,
		Frames:     3,
		Output:     "frame.png",
		Background: Color{R: 0x20, G: 0x24, B: 0x2c, A: 0xff},
		Foreground: Color{R: 0x3d, G: 0x8b, B: 0xfd, A: 0xff},
		Recording: RecordingConfig{
			TileWidth:  256,
			TileHeight: 256,
			Policy:     "default",
		},
		Raster: RasterConfig{
			CacheSizeMB:   64,
			Interpolation: "bilinear",
		},
		NinePatch: NinePatchConfig{
			ImageWidth:  48,
			ImageHeight: 48,
			Aperture:    [4]int{16, 16, 16, 16},
			Border:      [4]int{16, 16, 16, 16},
			FillCenter:  true,
		},
		Video: VideoConfig{
			Width:       160,
			Height:      90,
			Subsampling: "420",
		},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Frames <= 0:
		return fmt.Errorf("%w: frames %d", ErrInvalid, c.Frames)
	case c.Recording.TileWidth <= 0 || c.Recording.TileHeight <= 0:
		return fmt.Errorf("%w: tile size %dx%d", ErrInvalid, c.Recording.TileWidth, c.Recording.TileHeight)
	case c.Raster.CacheSizeMB < 0:
		return fmt.Errorf("%w: cache_size_mb %d", ErrInvalid, c.Raster.CacheSizeMB)
	case c.NinePatch.ImageWidth <= 0 || c.NinePatch.ImageHeight <= 0:
		return fmt.Errorf("%w: nine_patch image %dx%d", ErrInvalid, c.NinePatch.ImageWidth, c.NinePatch.ImageHeight)
	case c.Video.Width <= 0 || c.Video.Height <= 0:
		return fmt.Errorf("%w: video size %dx%d", ErrInvalid, c.Video.Width, c.Video.Height)
	}
	for _, v := range c.NinePatch.Border {
		if v < 0 {
			return fmt.Errorf("%w: negative nine_patch border %v", ErrInvalid, c.NinePatch.Border)
		}
	}
	if !oneOf(c.Recording.Policy, "default", "full") {
		return fmt.Errorf("%w: recording policy %q", ErrInvalid, c.Recording.Policy)
	}
	if !oneOf(c.Raster.Interpolation, "bilinear", "nearest") {
		return fmt.Errorf("%w: interpolation %q", ErrInvalid, c.Raster.Interpolation)
	}
	if !oneOf(c.Video.Subsampling, "420", "422", "444") {
		return fmt.Errorf("%w: subsampling %q", ErrInvalid, c.Video.Subsampling)
	}
	return nil
}

func oneOf(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Size returns the target size.
func (c Config) Size() image.Point { return image.Pt(c.Width, c.Height) }

// TileSize returns the recording tile size.
func (c RecordingConfig) TileSize() image.Point { return image.Pt(c.TileWidth, c.TileHeight) }

// ApertureRect returns the aperture as a rectangle inside the image.
func (c NinePatchConfig) ApertureRect() image.Rectangle {
	return image.Rect(c.Aperture[0], c.Aperture[1], c.ImageWidth-c.Aperture[2], c.ImageHeight-c.Aperture[3])
}

// Color is a non-premultiplied color written as "#rrggbb" or "#rrggbbaa".
type Color color.RGBA

// Value returns the color as color.RGBA.
func (c Color) Value() color.RGBA { return color.RGBA(c) }

// UnmarshalText parses a hex color.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("%w: color %q", ErrInvalid, text)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("%w: color %q", ErrInvalid, text)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	*c = Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return nil
}

// MarshalText formats the color as "#rrggbbaa".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)), nil
}
