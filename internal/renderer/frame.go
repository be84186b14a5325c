package renderer

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/soundglow/soundglow/internal/config"
)

// Config describes the bar layout and compositing for one run. Width and
// Height are taken from the background image when one is supplied.
type Config struct {
	Width  int
	Height int

	ColorR uint8
	ColorG uint8
	ColorB uint8

	BarCount         int
	BarWidthRatio    float64 // fraction of each slot the bar fills, (0, 1]
	BarHeightScale   float64 // > 0
	GlowEnabled      bool
	GlowIntensity    float64 // [0, 1]
	VerticalPosition float64 // [0, 1]: 0 = top edge, 1 = bottom edge
	HorizontalMargin float64 // [0, 0.5)

	// GrowFromAnchor switches the vertical policy: bars rise from the
	// anchor line instead of extending symmetrically around it.
	GrowFromAnchor bool
}

// blendTable holds a precomputed source-over blend at a fixed alpha:
// out = barX + bg[background value]. Splitting the product this way
// turns the per-pixel blend into two table lookups and an add.
type blendTable struct {
	barR, barG, barB uint8
	bg               [256]uint8
}

func newBlendTable(r, g, b uint8, alpha float64) blendTable {
	t := blendTable{
		barR: uint8(float64(r) * alpha),
		barG: uint8(float64(g) * alpha),
		barB: uint8(float64(b) * alpha),
	}
	inv := 1 - alpha
	for v := 0; v < 256; v++ {
		t.bg[v] = uint8(float64(v) * inv)
	}
	return t
}

// Renderer draws frequency-bar frames over a fixed background. All
// geometry and blend tables are precomputed at construction; RenderFrame
// is safe for concurrent use by multiple goroutines.
type Renderer struct {
	cfg        Config
	background *image.RGBA

	xOffsets []int
	barWidth int
	anchorY  int

	barBlend  blendTable
	glowBlend blendTable
	glowOn    bool

	pool sync.Pool
}

// New validates cfg and precomputes the bar layout. A nil background
// renders over black at cfg.Width x cfg.Height; otherwise the canvas
// adopts the background's dimensions.
func New(cfg Config, background *image.RGBA) (*Renderer, error) {
	if background != nil {
		b := background.Bounds()
		cfg.Width = b.Dx()
		cfg.Height = b.Dy()
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("frame dimensions %dx%d must be positive", cfg.Width, cfg.Height)
	}
	if cfg.BarCount <= 0 {
		return nil, fmt.Errorf("bar count must be positive, got %d", cfg.BarCount)
	}
	if cfg.BarWidthRatio <= 0 || cfg.BarWidthRatio > 1 {
		return nil, fmt.Errorf("bar width ratio %v outside (0, 1]", cfg.BarWidthRatio)
	}
	if cfg.BarHeightScale <= 0 {
		return nil, fmt.Errorf("bar height scale %v must be positive", cfg.BarHeightScale)
	}
	if cfg.GlowIntensity < 0 || cfg.GlowIntensity > 1 {
		return nil, fmt.Errorf("glow intensity %v outside [0, 1]", cfg.GlowIntensity)
	}
	if cfg.VerticalPosition < 0 || cfg.VerticalPosition > 1 {
		return nil, fmt.Errorf("vertical position %v outside [0, 1]", cfg.VerticalPosition)
	}
	if cfg.HorizontalMargin < 0 || cfg.HorizontalMargin >= 0.5 {
		return nil, fmt.Errorf("horizontal margin %v outside [0, 0.5)", cfg.HorizontalMargin)
	}

	usable := float64(cfg.Width) * (1 - 2*cfg.HorizontalMargin)
	slot := usable / float64(cfg.BarCount)

	barWidth := int(slot * cfg.BarWidthRatio)
	if barWidth < 1 {
		barWidth = 1
	}

	// Each bar is centred inside its slot so the gap splits evenly on
	// both sides.
	left := float64(cfg.Width) * cfg.HorizontalMargin
	xOffsets := make([]int, cfg.BarCount)
	for j := range xOffsets {
		x := left + float64(j)*slot + (slot-float64(barWidth))/2
		xOffsets[j] = int(math.Round(x))
	}

	width, height := cfg.Width, cfg.Height
	r := &Renderer{
		cfg:        cfg,
		background: background,
		xOffsets:   xOffsets,
		barWidth:   barWidth,
		anchorY:    int(math.Round(float64(cfg.Height) * cfg.VerticalPosition)),
		barBlend:   newBlendTable(cfg.ColorR, cfg.ColorG, cfg.ColorB, config.BarAlpha),
		pool: sync.Pool{
			New: func() interface{} {
				return image.NewRGBA(image.Rect(0, 0, width, height))
			},
		},
	}

	glowAlpha := config.GlowAlphaScale * cfg.GlowIntensity
	if cfg.GlowEnabled && glowAlpha > 0 {
		r.glowOn = true
		r.glowBlend = newBlendTable(cfg.ColorR, cfg.ColorG, cfg.ColorB, glowAlpha)
	}

	return r, nil
}

// Size reports the frame dimensions the renderer produces.
func (r *Renderer) Size() (int, int) {
	return r.cfg.Width, r.cfg.Height
}

// RenderFrame draws one frame for the given amplitude vector. Amplitudes
// are expected in [0, 1] with exactly BarCount entries. The returned
// image comes from an internal pool; pass it to Release when done.
func (r *Renderer) RenderFrame(amplitudes []float64) (*image.RGBA, error) {
	if len(amplitudes) != r.cfg.BarCount {
		return nil, fmt.Errorf("amplitude vector has %d entries, renderer configured for %d",
			len(amplitudes), r.cfg.BarCount)
	}

	img := r.pool.Get().(*image.RGBA)

	if r.background != nil {
		copy(img.Pix, r.background.Pix)
	} else {
		clearToBlack(img)
	}

	// Glow sits beneath every bar, so all glow rectangles land before
	// any bar rectangle.
	if r.glowOn {
		for j, amp := range amplitudes {
			x0, y0, x1, y1 := r.barRect(j, amp)
			if x0 == x1 || y0 == y1 {
				continue
			}
			pad := config.GlowPadding
			r.fillRect(img, x0-pad, y0-pad, x1+pad, y1+pad, &r.glowBlend)
		}
	}

	for j, amp := range amplitudes {
		x0, y0, x1, y1 := r.barRect(j, amp)
		if x0 == x1 || y0 == y1 {
			continue
		}
		r.fillRect(img, x0, y0, x1, y1, &r.barBlend)
	}

	return img, nil
}

// Release returns a frame buffer to the pool.
func (r *Renderer) Release(img *image.RGBA) {
	if img != nil {
		r.pool.Put(img)
	}
}

// barRect computes the pixel rectangle for one bar before clipping.
// A zero-height result means the bar is invisible this frame.
func (r *Renderer) barRect(j int, amp float64) (x0, y0, x1, y1 int) {
	if amp < 0 {
		amp = 0
	}
	h := int(amp * float64(r.cfg.Height) * config.BarSectionRatio * r.cfg.BarHeightScale)
	if h <= 0 {
		return 0, 0, 0, 0
	}
	if h > r.cfg.Height {
		h = r.cfg.Height
	}

	x0 = r.xOffsets[j]
	x1 = x0 + r.barWidth

	if r.cfg.GrowFromAnchor {
		y1 = r.anchorY
		y0 = y1 - h
	} else {
		y0 = r.anchorY - h/2
		y1 = y0 + h
	}
	return x0, y0, x1, y1
}

// fillRect blends a rectangle into the frame through the given table,
// clipping to the canvas.
func (r *Renderer) fillRect(img *image.RGBA, x0, y0, x1, y1 int, t *blendTable) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > r.cfg.Width {
		x1 = r.cfg.Width
	}
	if y1 > r.cfg.Height {
		y1 = r.cfg.Height
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}

	for y := y0; y < y1; y++ {
		off := y*img.Stride + x0*4
		for x := x0; x < x1; x++ {
			img.Pix[off] = t.barR + t.bg[img.Pix[off]]
			img.Pix[off+1] = t.barG + t.bg[img.Pix[off+1]]
			img.Pix[off+2] = t.barB + t.bg[img.Pix[off+2]]
			img.Pix[off+3] = 255
			off += 4
		}
	}
}

// clearToBlack fills a frame with opaque black, 8 pixels per copy.
func clearToBlack(img *image.RGBA) {
	blackPattern := [32]byte{
		0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255,
	}
	i := 0
	for ; i+32 <= len(img.Pix); i += 32 {
		copy(img.Pix[i:i+32], blackPattern[:])
	}
	for ; i+4 <= len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], blackPattern[:4])
	}
}
