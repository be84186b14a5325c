package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/soundglow/soundglow/internal/config"
)

// Analyzer turns raw audio segments into normalized bar amplitude
// vectors. It owns no cross-frame state; temporal smoothing happens in
// the sequencing layer.
type Analyzer struct {
	barCount       int
	responsiveness float64

	// FFT plans keyed by window size. Every full-length segment shares
	// one plan; a short final segment gets its own.
	procs map[int]*Processor
}

// NewAnalyzer validates the analysis parameters and prepares an Analyzer.
func NewAnalyzer(barCount int, responsiveness float64) (*Analyzer, error) {
	if barCount <= 0 {
		return nil, fmt.Errorf("bar count must be positive, got %d", barCount)
	}
	if responsiveness <= 0 || math.IsNaN(responsiveness) || math.IsInf(responsiveness, 0) {
		return nil, fmt.Errorf("responsiveness must be a positive finite number, got %v", responsiveness)
	}
	return &Analyzer{
		barCount:       barCount,
		responsiveness: responsiveness,
		procs:          make(map[int]*Processor),
	}, nil
}

// BarCount returns the length of the vectors AnalyzeSegment produces.
func (a *Analyzer) BarCount() int {
	return a.barCount
}

// AnalyzeSegment computes the bar amplitude vector for one segment of
// mono samples. The result always has BarCount entries, each finite and
// within [0, 1]. Silence and numerically degenerate segments produce the
// all-zero vector rather than an error.
//
// The pipeline: Hann-windowed STFT over the segment, magnitudes to dB
// relative to the segment's own peak, keep the lowest frequency bins,
// average each bin over time, scale by responsiveness, min-max
// normalize, then resample to BarCount values.
func (a *Analyzer) AnalyzeSegment(segment []float64) []float64 {
	out := make([]float64, a.barCount)
	if len(segment) == 0 {
		return out
	}

	windowSize := len(segment)
	if windowSize > config.MaxWindowSize {
		windowSize = config.MaxWindowSize
	}
	hop := windowSize / config.HopDivisor
	if hop < 1 {
		hop = 1
	}

	proc := a.processor(windowSize)

	lowBins := proc.Bins()
	if lowBins > config.MaxBins {
		lowBins = config.MaxBins
	}

	// First gather per-window low-bin magnitudes and the peak over the
	// whole spectrum; the dB reference is the segment peak, which is not
	// known until every window has been transformed.
	var (
		windows [][]float64
		peak    float64
	)
	for start := 0; start+windowSize <= len(segment); start += hop {
		mags := proc.Magnitudes(segment[start : start+windowSize])
		for _, m := range mags {
			if m > peak {
				peak = m
			}
		}
		low := make([]float64, lowBins)
		copy(low, mags[:lowBins])
		windows = append(windows, low)
	}

	if peak == 0 || len(windows) == 0 {
		// Silent segment: nothing to normalize against.
		return out
	}

	// dB conversion and time average per bin.
	avg := make([]float64, lowBins)
	for bin := 0; bin < lowBins; bin++ {
		var sum float64
		for _, w := range windows {
			db := config.DBFloor
			if w[bin] > 0 {
				db = 20 * math.Log10(w[bin]/peak)
				if db < config.DBFloor {
					db = config.DBFloor
				}
			}
			sum += db
		}
		avg[bin] = sum / float64(len(windows)) * a.responsiveness
	}

	// Min-max normalize to [0, 1]. A flat vector has no shape to show;
	// it maps to zeros instead of dividing by zero.
	mn, mx := avg[0], avg[0]
	for _, v := range avg[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	if mx-mn < 1e-12 {
		return out
	}
	for i := range avg {
		avg[i] = (avg[i] - mn) / (mx - mn)
	}

	resampleLinear(avg, out)
	return out
}

func (a *Analyzer) processor(windowSize int) *Processor {
	if p, ok := a.procs[windowSize]; ok {
		return p
	}
	p := NewProcessor(windowSize)
	a.procs[windowSize] = p
	return p
}

// resampleLinear fills out with len(out) points sampled evenly across in,
// interpolating linearly between neighbours.
func resampleLinear(in, out []float64) {
	if len(in) == 0 || len(out) == 0 {
		return
	}
	if len(in) == 1 || len(out) == 1 {
		for i := range out {
			out[i] = in[0]
		}
		return
	}

	step := float64(len(in)-1) / float64(len(out)-1)
	for j := range out {
		pos := float64(j) * step
		lo := int(pos)
		if lo >= len(in)-1 {
			out[j] = in[len(in)-1]
			continue
		}
		frac := pos - float64(lo)
		out[j] = in[lo]*(1-frac) + in[lo+1]*frac
	}
}

// Profile summarizes a decoded track for display.
type Profile struct {
	SampleRate int
	Samples    int
	Duration   time.Duration
	Peak       float64
	RMS        float64
}

// Measure computes a track's display profile in one pass.
func Measure(t *Track) Profile {
	p := Profile{
		SampleRate: t.SampleRate,
		Samples:    len(t.Samples),
		Duration:   time.Duration(t.Duration() * float64(time.Second)),
	}

	var sumSquares float64
	for _, s := range t.Samples {
		abs := math.Abs(s)
		if abs > p.Peak {
			p.Peak = abs
		}
		sumSquares += s * s
	}
	if len(t.Samples) > 0 {
		p.RMS = math.Sqrt(sumSquares / float64(len(t.Samples)))
	}
	return p
}
