package audio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Decoder is the surface the pipeline needs from an audio source.
// Implementations yield mono float64 samples in [-1, 1], downmixing
// multi-channel sources by averaging.
type Decoder interface {
	// ReadChunk reads up to numSamples mono samples.
	// Returns io.EOF once the stream is exhausted.
	ReadChunk(numSamples int) ([]float64, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumSamples returns the total number of mono samples in the source.
	// Returns 0 if the length is unknown.
	NumSamples() int64

	// NumChannels returns the number of channels in the source (1=mono, 2=stereo)
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// Ensure io.EOF is available for decoder implementations
var EOF = io.EOF

// Open picks a decoder from the file extension.
func Open(path string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return NewWAVDecoder(path)
	case ".mp3":
		return NewMP3Decoder(path)
	case ".flac":
		return NewFLACDecoder(path)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}
