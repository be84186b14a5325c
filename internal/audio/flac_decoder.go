package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACDecoder implements Decoder for FLAC files via mewkiz/flac.
type FLACDecoder struct {
	stream     *flac.Stream
	file       *os.File
	sampleRate int
	channels   int
	numSamples int64
	position   int64

	// leftover holds samples decoded past the end of the last ReadChunk;
	// FLAC frame boundaries rarely line up with chunk boundaries.
	leftover []float64
}

// NewFLACDecoder opens filename and parses the stream header. Sample rate,
// channel count and total length all come from the StreamInfo block.
func NewFLACDecoder(filename string) (*FLACDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	info := stream.Info
	if info == nil || info.NChannels == 0 {
		stream.Close()
		f.Close()
		return nil, fmt.Errorf("FLAC stream has no StreamInfo block: %s", filename)
	}

	return &FLACDecoder{
		stream:     stream,
		file:       f,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		numSamples: int64(info.NSamples),
	}, nil
}

// ReadChunk reads up to numSamples mono samples, averaging subframes
// into one channel.
func (d *FLACDecoder) ReadChunk(numSamples int) ([]float64, error) {
	samples := make([]float64, 0, numSamples)

	if len(d.leftover) > 0 {
		take := len(d.leftover)
		if take > numSamples {
			take = numSamples
		}
		samples = append(samples, d.leftover[:take]...)
		d.leftover = d.leftover[take:]
	}

	for len(samples) < numSamples {
		frame, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				if len(samples) == 0 {
					return nil, io.EOF
				}
				break
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		// One subframe per channel; scale by the frame's bit depth.
		maxVal := float64(int64(1) << (frame.BitsPerSample - 1))
		frameLen := len(frame.Subframes[0].Samples)

		for i := 0; i < frameLen; i++ {
			var sum float64
			for _, sub := range frame.Subframes {
				sum += float64(sub.Samples[i])
			}
			mono := sum / float64(len(frame.Subframes)) / maxVal

			if len(samples) < numSamples {
				samples = append(samples, mono)
			} else {
				d.leftover = append(d.leftover, mono)
			}
		}
	}

	d.position += int64(len(samples))
	return samples, nil
}

// SampleRate returns the sample rate
func (d *FLACDecoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples returns the total number of mono samples in the stream.
func (d *FLACDecoder) NumSamples() int64 {
	return d.numSamples
}

// NumChannels returns the number of channels in the source stream.
func (d *FLACDecoder) NumChannels() int {
	return d.channels
}

// Close closes the decoder and releases resources
func (d *FLACDecoder) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
