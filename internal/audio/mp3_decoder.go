package audio

import (
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Decoder implements Decoder for MP3 files via go-mp3.
type MP3Decoder struct {
	decoder    *mp3.Decoder
	file       *os.File
	sampleRate int
}

// NewMP3Decoder opens filename and prepares the MP3 stream.
func NewMP3Decoder(filename string) (*MP3Decoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder:    decoder,
		file:       f,
		sampleRate: decoder.SampleRate(),
	}, nil
}

// ReadChunk reads up to numSamples mono samples.
// go-mp3 always emits interleaved 16-bit stereo, L0 R0 L1 R1 ..., so one
// time sample is 4 bytes and the downmix averages the two channels.
func (d *MP3Decoder) ReadChunk(numSamples int) ([]float64, error) {
	buf := make([]byte, numSamples*4)

	n, err := d.decoder.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read MP3 data: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	frames := n / 4
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left := int16(buf[i*4]) | (int16(buf[i*4+1]) << 8)
		right := int16(buf[i*4+2]) | (int16(buf[i*4+3]) << 8)
		samples[i] = (float64(left) + float64(right)) / 2.0 / 32768.0
	}

	return samples, nil
}

// SampleRate returns the sample rate
func (d *MP3Decoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples returns the total number of mono samples in the stream.
func (d *MP3Decoder) NumSamples() int64 {
	// Length reports the decoded byte size, 4 bytes per stereo sample.
	return d.decoder.Length() / 4
}

// NumChannels reports the source channel count. go-mp3 upmixes mono
// streams, so the decoded stream is always stereo.
func (d *MP3Decoder) NumChannels() int {
	return 2
}

// Close closes the decoder and releases resources
func (d *MP3Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
