package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// PreviewConfig sets the terminal cell grid a frame is downsampled to.
type PreviewConfig struct {
	Width  int // width in terminal cells
	Height int // height in terminal cells
}

// DefaultPreviewConfig returns a preview grid close to 16:9 that fits a
// typical 80-column terminal.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:  72,
		Height: 20,
	}
}

// DownsampleFrame box-averages a rendered frame into a terminal cell
// grid. Each cell becomes the mean colour of the source rectangle it
// covers, which reads much smoother than nearest-neighbour sampling.
func DownsampleFrame(frame *image.RGBA, cfg PreviewConfig) [][]color.RGBA {
	bounds := frame.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if cfg.Width <= 0 || cfg.Height <= 0 || srcW == 0 || srcH == 0 {
		return nil
	}

	cellW := srcW / cfg.Width
	cellH := srcH / cfg.Height
	if cellW == 0 {
		cellW = 1
	}
	if cellH == 0 {
		cellH = 1
	}

	grid := make([][]color.RGBA, cfg.Height)
	for row := range grid {
		grid[row] = make([]color.RGBA, cfg.Width)
		for col := range grid[row] {
			x0 := col * cellW
			y0 := row * cellH

			var sumR, sumG, sumB, n uint32
			for y := y0; y < y0+cellH && y < srcH; y++ {
				off := y*frame.Stride + x0*4
				for x := x0; x < x0+cellW && x < srcW; x++ {
					sumR += uint32(frame.Pix[off])
					sumG += uint32(frame.Pix[off+1])
					sumB += uint32(frame.Pix[off+2])
					off += 4
					n++
				}
			}

			if n > 0 {
				grid[row][col] = color.RGBA{
					R: uint8(sumR / n),
					G: uint8(sumG / n),
					B: uint8(sumB / n),
					A: 255,
				}
			}
		}
	}

	return grid
}

// RenderPreview draws the cell grid with 24-bit background escape
// codes, one space per cell, inside a box border.
func RenderPreview(grid [][]color.RGBA) string {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return ""
	}

	width := len(grid[0])
	var b strings.Builder

	b.WriteString("  ┌" + strings.Repeat("─", width) + "┐\n")
	for _, row := range grid {
		b.WriteString("  │")
		for _, px := range row {
			// \x1b[48;2;R;G;Bm sets a 24-bit RGB background colour
			fmt.Fprintf(&b, "\x1b[48;2;%d;%d;%dm \x1b[0m", px.R, px.G, px.B)
		}
		b.WriteString("│\n")
	}
	b.WriteString("  └" + strings.Repeat("─", width) + "┘\n")

	return b.String()
}
