// Package imaging decodes background images and guarantees the even
// pixel dimensions that yuv420p chroma subsampling requires.
package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// Decode reads a PNG or JPEG file into RGBA form at its natural size.
func Decode(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image %s has degenerate dimensions %dx%d", path, b.Dx(), b.Dy())
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

// EnsureEven truncates odd dimensions by one pixel each.
func EnsureEven(w, h int) (int, int) {
	if w%2 != 0 {
		w--
	}
	if h%2 != 0 {
		h--
	}
	return w, h
}

// Normalize returns img unchanged when both dimensions are already even,
// otherwise a copy resampled down to the truncated size. Calling it on
// its own output is a no-op.
func Normalize(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := EnsureEven(b.Dx(), b.Dy())
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Load decodes and normalizes a background image in one step. An image
// that collapses below 2x2 after the even adjustment cannot carry a
// video frame and is rejected here rather than at encode time.
func Load(path string) (*image.RGBA, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}

	norm := Normalize(img)
	b := norm.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, fmt.Errorf("image %s is too small after even-dimension adjustment (%dx%d)",
			path, b.Dx(), b.Dy())
	}
	return norm, nil
}

// FrameSize reads just the header of an image file and reports its
// pixel dimensions.
func FrameSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("reading header of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// NormalizeFile rewrites a PNG frame in place with even dimensions.
// Already-even frames are left untouched.
func NormalizeFile(path string) error {
	img, err := Decode(path)
	if err != nil {
		return err
	}

	norm := Normalize(img)
	if norm == img {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, norm); err != nil {
		f.Close()
		return fmt.Errorf("rewriting %s: %w", path, err)
	}
	return f.Close()
}
