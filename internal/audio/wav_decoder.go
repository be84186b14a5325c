package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder implements Decoder for RIFF/WAVE files via go-audio.
type WAVDecoder struct {
	decoder    *wav.Decoder
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	numSamples int64
}

// NewWAVDecoder opens filename and positions the decoder at the start of
// the PCM data. Header validation happens here so that a zero-byte or
// non-WAV file fails before any samples are requested.
func NewWAVDecoder(filename string) (*WAVDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid WAV file: %s", filename)
	}

	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	if channels == 0 {
		f.Close()
		return nil, fmt.Errorf("WAV file reports zero channels: %s", filename)
	}

	// PCMLen is the byte length of the data chunk; one time sample spans
	// bytesPerSample * channels bytes.
	bytesPerSample := int64(bitDepth / 8)
	var total int64
	if bytesPerSample > 0 {
		total = decoder.PCMLen() / (bytesPerSample * int64(channels))
	}

	return &WAVDecoder{
		decoder:    decoder,
		file:       f,
		sampleRate: int(decoder.SampleRate),
		bitDepth:   bitDepth,
		channels:   channels,
		numSamples: total,
	}, nil
}

// ReadChunk reads up to numSamples mono samples, averaging interleaved
// channels into one.
func (d *WAVDecoder) ReadChunk(numSamples int) ([]float64, error) {
	intBuf := &audio.IntBuffer{
		Data: make([]int, numSamples*d.channels),
		Format: &audio.Format{
			NumChannels: d.channels,
			SampleRate:  d.sampleRate,
		},
	}

	n, err := d.decoder.PCMBuffer(intBuf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	maxVal := float64(audio.IntMaxSignedValue(d.bitDepth))

	if d.channels == 1 {
		samples := make([]float64, n)
		for i := 0; i < n; i++ {
			samples[i] = float64(intBuf.Data[i]) / maxVal
		}
		return samples, nil
	}

	// n interleaved values = n/channels time samples after the downmix
	frames := n / d.channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < d.channels; ch++ {
			sum += float64(intBuf.Data[i*d.channels+ch]) / maxVal
		}
		samples[i] = sum / float64(d.channels)
	}

	return samples, nil
}

// SampleRate returns the sample rate
func (d *WAVDecoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples returns the total number of mono samples in the file.
func (d *WAVDecoder) NumSamples() int64 {
	return d.numSamples
}

// NumChannels returns the number of channels in the source file.
func (d *WAVDecoder) NumChannels() int {
	return d.channels
}

// Close closes the decoder and releases resources
func (d *WAVDecoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
