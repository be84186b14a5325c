package framestore

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_CreatesDirectory(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Purge()

	info, err := os.Stat(s.Dir())
	if err != nil {
		t.Fatalf("frame directory missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("frame path is not a directory")
	}
	if !strings.Contains(filepath.Base(s.Dir()), "soundglow-frames-") {
		t.Errorf("directory %q missing the run prefix", s.Dir())
	}
}

// TestPath_ZeroPadding pins the frame naming: ffmpeg's image2 demuxer
// reads the sequence through a %04d pattern, so names must match it
// exactly or frames are silently skipped.
func TestPath_ZeroPadding(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Purge()

	tests := []struct {
		index int
		want  string
	}{
		{0, "frame_0000.png"},
		{7, "frame_0007.png"},
		{42, "frame_0042.png"},
		{1234, "frame_1234.png"},
		{99999, "frame_99999.png"},
	}
	for _, tt := range tests {
		if got := filepath.Base(s.Path(tt.index)); got != tt.want {
			t.Errorf("Path(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}

	if !strings.HasSuffix(s.Pattern(), "frame_%04d.png") {
		t.Errorf("Pattern() = %q, want a frame_%%04d.png suffix", s.Pattern())
	}
}

func TestSave_WritesDecodablePNG(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Purge()

	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	if err := s.Save(3, img); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := os.Open(s.Path(3))
	if err != nil {
		t.Fatalf("saved frame missing: %v", err)
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("saved frame is not valid PNG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("decoded frame is %dx%d, want 32x24", b.Dx(), b.Dy())
	}
}

func TestCount_OnlyCountsFrames(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Purge()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 5; i++ {
		if err := s.Save(i, img); err != nil {
			t.Fatalf("Save(%d) failed: %v", i, err)
		}
	}

	// Stray files in the directory must not inflate the frame count.
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}
}

func TestPurge_Idempotent(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := s.Save(0, img); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Purge(); err != nil {
		t.Fatalf("first Purge failed: %v", err)
	}
	if _, err := os.Stat(s.Dir()); !os.IsNotExist(err) {
		t.Error("frame directory still present after Purge")
	}

	if err := s.Purge(); err != nil {
		t.Errorf("second Purge errored: %v", err)
	}
}

func TestSave_AfterPurgeFails(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Purge(); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := s.Save(0, img); err == nil {
		t.Error("Save succeeded into a purged directory")
	}
}
