package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Metadata holds the embedded tags of an audio file. Fields are empty
// when the file carries no tags.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata extracts ID3/Vorbis/MP4 tags from an audio file. WAV
// files usually carry none, which is reported as an error by the tag
// parser and surfaces here.
func ReadMetadata(filename string) (*Metadata, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	return &Metadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}, nil
}

// TitleOrStem returns the tagged title, falling back to the file name
// without its extension.
func TitleOrStem(filename string) string {
	if m, err := ReadMetadata(filename); err == nil && m.Title != "" {
		return m.Title
	}

	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
