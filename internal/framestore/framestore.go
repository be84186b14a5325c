// Package framestore manages the scratch directory of numbered PNG
// frames handed to the encoder. Each run gets its own directory, and
// the whole directory is purged once encoding finishes or fails.
package framestore

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

const framePattern = "frame_%04d.png"

// Frames are intermediate scratch re-encoded by ffmpeg, so the cheapest
// PNG compression wins.
var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Store is a per-run frame directory. Save is safe for concurrent use
// as long as each index is written by one goroutine.
type Store struct {
	dir string
}

// New creates a fresh frame directory under baseDir, or under the
// system temp directory when baseDir is empty.
func New(baseDir string) (*Store, error) {
	dir, err := os.MkdirTemp(baseDir, "soundglow-frames-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory holding the frames.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a frame index.
func (s *Store) Path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf(framePattern, index))
}

// Pattern returns the printf-style sequence pattern ffmpeg consumes.
func (s *Store) Pattern() string {
	return filepath.Join(s.dir, framePattern)
}

// Save encodes img as the numbered frame.
func (s *Store) Save(index int, img image.Image) error {
	f, err := os.Create(s.Path(index))
	if err != nil {
		return fmt.Errorf("failed to create frame %d: %w", index, err)
	}

	if err := pngEncoder.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode frame %d: %w", index, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to flush frame %d: %w", index, err)
	}
	return nil
}

// Count reports how many frames are currently stored.
func (s *Store) Count() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "frame_*.png"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Purge deletes the frame directory and everything in it. Calling it
// again after success is a no-op.
func (s *Store) Purge() error {
	if s.dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove frame directory: %w", err)
	}
	return nil
}
