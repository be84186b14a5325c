package audio

import (
	"fmt"
	"io"
)

// readChunkSize is the per-call sample count used while draining a
// decoder. Large enough to keep syscall overhead down, small enough to
// avoid a giant transient buffer for short files.
const readChunkSize = 32768

// Track is a fully decoded mono audio stream. Rendering makes many
// passes over the samples, so the whole file is held in memory; a
// five-minute 48 kHz track is about 110 MB as float64, well within
// reach for a batch tool.
type Track struct {
	Samples    []float64
	SampleRate int
}

// LoadTrack decodes path completely. The format is picked from the file
// extension; see Open for the supported set.
func LoadTrack(path string) (*Track, error) {
	dec, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	// NumSamples is a hint; decoders that cannot know the length return 0.
	capacity := dec.NumSamples()
	if capacity < 0 {
		capacity = 0
	}
	samples := make([]float64, 0, capacity)

	for {
		chunk, err := dec.ReadChunk(readChunkSize)
		if len(chunk) > 0 {
			samples = append(samples, chunk...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if len(chunk) == 0 {
			break
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", path)
	}
	if dec.SampleRate() <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d in %s", dec.SampleRate(), path)
	}

	return &Track{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
	}, nil
}

// Duration reports the playing time of the track in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate <= 0 {
		return 0
	}
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// Segment returns the index-th slice of length samplesPerFrame. Segments
// are contiguous and non-overlapping; the final one may be short, and an
// index past the end yields an empty slice. The returned slice aliases
// the track's sample storage.
func (t *Track) Segment(index, samplesPerFrame int) []float64 {
	if index < 0 || samplesPerFrame <= 0 {
		return nil
	}
	start := index * samplesPerFrame
	if start >= len(t.Samples) {
		return nil
	}
	end := start + samplesPerFrame
	if end > len(t.Samples) {
		end = len(t.Samples)
	}
	return t.Samples[start:end]
}
