package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Processor computes one-sided magnitude spectra for a fixed window size.
// The FFT plan, the Hann coefficients and the scratch buffers are built
// once and reused for every window position.
type Processor struct {
	fft    *fourier.FFT
	window []float64
	size   int

	frame  []float64
	coeffs []complex128
	mags   []float64
}

// NewProcessor plans an FFT for the given window size.
func NewProcessor(windowSize int) *Processor {
	return &Processor{
		fft:    fourier.NewFFT(windowSize),
		window: HannWindow(windowSize),
		size:   windowSize,
		frame:  make([]float64, windowSize),
		coeffs: make([]complex128, windowSize/2+1),
		mags:   make([]float64, windowSize/2+1),
	}
}

// Size returns the window size the processor was planned for.
func (p *Processor) Size() int {
	return p.size
}

// Bins returns the number of one-sided spectrum bins per window.
func (p *Processor) Bins() int {
	return p.size/2 + 1
}

// Magnitudes computes the one-sided magnitude spectrum of one window of
// samples. The input must be exactly Size() samples long. The returned
// slice is reused by the next call; callers keeping values must copy.
func (p *Processor) Magnitudes(samples []float64) []float64 {
	for i := range p.frame {
		p.frame[i] = samples[i] * p.window[i]
	}

	p.coeffs = p.fft.Coefficients(p.coeffs, p.frame)
	for i, c := range p.coeffs {
		p.mags[i] = cmplx.Abs(c)
	}
	return p.mags
}

// HannWindow returns the n-point symmetric Hann window.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
