package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// TestEnsureEven verifies the dimension arithmetic across parities.
// H.264 with yuv420p needs both dimensions divisible by two; odd values
// are truncated, never rounded up, so content is cropped rather than
// invented.
func TestEnsureEven(t *testing.T) {
	testCases := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"both even", 640, 480, 640, 480},
		{"both odd", 641, 481, 640, 480},
		{"odd width only", 641, 480, 640, 480},
		{"odd height only", 640, 481, 640, 480},
		{"one by one", 1, 1, 0, 0},
		{"zero", 0, 0, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := EnsureEven(tc.w, tc.h)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("EnsureEven(%d, %d) = (%d, %d), want (%d, %d)",
					tc.w, tc.h, w, h, tc.wantW, tc.wantH)
			}
		})
	}
}

// TestNormalize_OddDimensionsTruncated verifies the 641x481 -> 640x480
// contract and that the result survives a second pass untouched.
func TestNormalize_OddDimensionsTruncated(t *testing.T) {
	src := solidImage(641, 481, color.RGBA{R: 200, G: 50, B: 50, A: 255})

	norm := Normalize(src)
	b := norm.Bounds()
	if b.Dx() != 640 || b.Dy() != 480 {
		t.Fatalf("normalized to %dx%d, want 640x480", b.Dx(), b.Dy())
	}

	// Idempotence: the second pass must return the same image.
	again := Normalize(norm)
	if again != norm {
		t.Error("normalizing an even image returned a new copy")
	}
}

// TestNormalize_EvenPassthrough verifies that an already-even image is
// returned as-is, pointer-identical, with no resample pass.
func TestNormalize_EvenPassthrough(t *testing.T) {
	src := solidImage(320, 240, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	if Normalize(src) != src {
		t.Error("even-dimension image was copied instead of passed through")
	}
}

// TestNormalize_PreservesContent verifies that resampling a solid image
// keeps its colour; a bounds mix-up in the scale call would leave black
// rows at the truncated edge.
func TestNormalize_PreservesContent(t *testing.T) {
	c := color.RGBA{R: 90, G: 160, B: 220, A: 255}
	norm := Normalize(solidImage(101, 75, c))

	b := norm.Bounds()
	if b.Dx() != 100 || b.Dy() != 74 {
		t.Fatalf("normalized to %dx%d, want 100x74", b.Dx(), b.Dy())
	}

	corners := [][2]int{{0, 0}, {99, 0}, {0, 73}, {99, 73}, {50, 37}}
	for _, p := range corners {
		got := norm.RGBAAt(p[0], p[1])
		if got != c {
			t.Errorf("pixel (%d,%d) = %v, want %v", p[0], p[1], got, c)
		}
	}
}

func TestDecode_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	writePNG(t, path, solidImage(64, 48, color.RGBA{R: 1, G: 2, B: 3, A: 255}))

	img, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("decoded %dx%d, want 64x48", b.Dx(), b.Dy())
	}
}

func TestDecode_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, solidImage(64, 48, color.RGBA{R: 128, G: 128, B: 128, A: 255}), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("decoded %dx%d, want 64x48", b.Dx(), b.Dy())
	}
}

func TestDecode_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	if err := os.WriteFile(path, []byte("not an image at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Decode(path); err == nil {
		t.Error("expected error for garbage bytes, got nil")
	}
}

func TestDecode_MissingFile(t *testing.T) {
	if _, err := Decode(filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

// TestLoad_TinyImageRejected verifies that an image which collapses
// below a usable frame size after truncation fails at load time instead
// of producing an empty video canvas.
func TestLoad_TinyImageRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.png")
	writePNG(t, path, solidImage(1, 1, color.RGBA{A: 255}))

	if _, err := Load(path); err == nil {
		t.Error("expected error for 1x1 image, got nil")
	}
}

func TestLoad_NormalizesOnTheWayIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.png")
	writePNG(t, path, solidImage(321, 241, color.RGBA{R: 9, G: 9, B: 9, A: 255}))

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("loaded %dx%d, want 320x240", b.Dx(), b.Dy())
	}
}

// TestFrameSize verifies the header-only dimension probe used to
// re-check rendered frames before encoding.
func TestFrameSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	writePNG(t, path, solidImage(642, 480, color.RGBA{A: 255}))

	w, h, err := FrameSize(path)
	if err != nil {
		t.Fatalf("FrameSize failed: %v", err)
	}
	if w != 642 || h != 480 {
		t.Errorf("FrameSize = %dx%d, want 642x480", w, h)
	}

	if _, _, err := FrameSize(filepath.Join(t.TempDir(), "gone.png")); err == nil {
		t.Error("expected error for missing frame, got nil")
	}
}

// TestNormalizeFile verifies the in-place rewrite used when rendered
// frames drift to odd dimensions: odd frames shrink, even frames are
// untouched, and the operation is idempotent.
func TestNormalizeFile(t *testing.T) {
	dir := t.TempDir()

	odd := filepath.Join(dir, "frame_0000.png")
	writePNG(t, odd, solidImage(641, 481, color.RGBA{R: 77, A: 255}))

	if err := NormalizeFile(odd); err != nil {
		t.Fatalf("NormalizeFile failed: %v", err)
	}
	w, h, err := FrameSize(odd)
	if err != nil {
		t.Fatal(err)
	}
	if w != 640 || h != 480 {
		t.Errorf("rewritten frame is %dx%d, want 640x480", w, h)
	}

	// Second pass must leave the dimensions alone.
	if err := NormalizeFile(odd); err != nil {
		t.Fatalf("second NormalizeFile failed: %v", err)
	}
	w, h, err = FrameSize(odd)
	if err != nil {
		t.Fatal(err)
	}
	if w != 640 || h != 480 {
		t.Errorf("second pass changed frame to %dx%d", w, h)
	}
}
