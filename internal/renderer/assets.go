package renderer

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// LoadFont loads a TrueType font from a file at the given point size.
func LoadFont(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}

	f, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	return face, nil
}

// DrawTitle draws a single line of text centered horizontally with its
// baseline at y. The overlay is drawn once onto the background before
// rendering starts, so every frame carries it without per-frame cost.
func DrawTitle(img *image.RGBA, face font.Face, title string, col color.Color, y int) {
	if title == "" || face == nil {
		return
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
	}

	bounds, _ := d.BoundString(title)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()

	x := (img.Bounds().Dx() - textWidth) / 2
	if x < 0 {
		x = 0
	}

	d.Dot = freetype.Pt(x, y)
	d.DrawString(title)
}

// TitleBaseline picks a baseline high on the frame that stays clear of
// the top edge at small sizes.
func TitleBaseline(height int) int {
	y := height / 10
	if y < 24 {
		y = 24
	}
	return y
}
