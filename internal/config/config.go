package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Video output settings
const (
	DefaultFPS     = 30
	DefaultWorkers = 4
)

// Spectral analysis settings
const (
	// MaxWindowSize caps the STFT window; shorter segments shrink the
	// window to the segment length.
	MaxWindowSize = 2048
	// HopDivisor sets the hop interval as windowSize / HopDivisor.
	HopDivisor = 4
	// MaxBins is how many low-frequency bins feed the bars.
	MaxBins = 128
	// DBFloor clamps the dynamic range of the dB conversion.
	DBFloor = -80.0
)

// Bar geometry and compositing
const (
	// BarSectionRatio is the fraction of frame height available to bars.
	BarSectionRatio = 0.8
	// BarAlpha is the opacity bars are blended with over the background.
	BarAlpha = 0.7
	// GlowPadding is the enlargement of the glow rectangle, in pixels.
	GlowPadding = 5
	// GlowAlphaScale converts glow intensity into blend opacity.
	GlowAlphaScale = 0.3
)

// Style defaults, applied when a field is left at its flag default.
const (
	DefaultColor            = "#00FFFF"
	DefaultBarCount         = 64
	DefaultBarWidthRatio    = 0.8
	DefaultBarHeightScale   = 1.0
	DefaultGlowIntensity    = 0.5
	DefaultResponsiveness   = 1.0
	DefaultSmoothing        = 0.2
	DefaultVerticalPosition = 0.5
	DefaultHorizontalMargin = 0.1
)

// Encoding settings
const (
	DefaultAudioBitrate = "192k"
	DefaultPreset       = "medium"
	DefaultProfile      = "main"
)

// Progress milestones reported over a run, as percentages.
const (
	ProgressSetup     = 5.0
	ProgressFramesEnd = 75.0
	ProgressEncoded   = 85.0
	ProgressDone      = 100.0
)

// ParseHexColor parses a 6-digit hex colour string into RGB components.
// A single leading '#' is accepted; case is ignored. Anything else,
// including short forms and alpha channels, is rejected.
func ParseHexColor(s string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: want 6 hex digits", s)
	}

	rv, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	gv, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	bv, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}

	return uint8(rv), uint8(gv), uint8(bv), nil
}
