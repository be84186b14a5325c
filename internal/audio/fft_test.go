package audio

import (
	"math"
	"testing"
)

// TestHannWindow_Properties verifies that the Hann coefficients match
// their mathematical properties: zero endpoints, a peak of ~1.0 in the
// middle, and perfect symmetry. A wrong denominator (n instead of n-1)
// shifts the peak and breaks symmetry, which smears spectral leakage
// unevenly across bins.
func TestHannWindow_Properties(t *testing.T) {
	const n = 2048
	w := HannWindow(n)

	if len(w) != n {
		t.Fatalf("window length = %d, want %d", len(w), n)
	}

	epsilon := 1e-10
	if math.Abs(w[0]) > epsilon {
		t.Errorf("window start value %.15f is not zero", w[0])
	}
	if math.Abs(w[n-1]) > epsilon {
		t.Errorf("window end value %.15f is not zero", w[n-1])
	}

	mid := w[n/2]
	if mid < 0.9 || mid > 1.05 {
		t.Errorf("window centre value %.6f not close to 1.0", mid)
	}

	for i := 0; i < n/2; i++ {
		if math.Abs(w[i]-w[n-1-i]) > epsilon {
			t.Fatalf("window not symmetric at position %d: %.15f != %.15f",
				i, w[i], w[n-1-i])
		}
	}

	t.Logf("Hann window verified: start=%.15f, centre=%.6f, end=%.15f",
		w[0], mid, w[n-1])
}

// TestHannWindow_SinglePoint covers the degenerate one-sample window
// produced when a trailing audio segment is a single sample long.
func TestHannWindow_SinglePoint(t *testing.T) {
	w := HannWindow(1)
	if len(w) != 1 || w[0] != 1 {
		t.Errorf("HannWindow(1) = %v, want [1]", w)
	}
}

// TestProcessor_SinePeakBin verifies that a pure tone lands in its exact
// frequency bin. This catches FFT wiring errors, dropped window
// multiplies, and one-sided spectrum off-by-ones.
//
// The signal is built bin-exact: k full cycles over N samples puts all
// energy in bin k (frequency = k * sampleRate / N), so the peak bin is
// deterministic rather than split between neighbours.
func TestProcessor_SinePeakBin(t *testing.T) {
	const (
		n = 2048
		k = 32
	)

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * float64(k) * float64(i) / float64(n))
	}

	proc := NewProcessor(n)
	mags := proc.Magnitudes(samples)

	if len(mags) != n/2+1 {
		t.Fatalf("spectrum length = %d, want %d (one-sided)", len(mags), n/2+1)
	}

	peakBin := 0
	for i, m := range mags {
		if m > mags[peakBin] {
			peakBin = i
		}
	}

	t.Logf("bin-exact tone analysis:")
	t.Logf("  window size: %d samples", n)
	t.Logf("  target bin: %d", k)
	t.Logf("  peak bin: %d with magnitude %.2f", peakBin, mags[peakBin])

	if peakBin != k {
		t.Errorf("peak at bin %d, want %d", peakBin, k)
	}

	// The Hann window confines leakage to the immediate neighbours;
	// three bins out should be far below the peak.
	if mags[k+3] > mags[k]*0.01 {
		t.Errorf("excessive leakage: bin %d has %.6f of peak %.6f",
			k+3, mags[k+3], mags[k])
	}
}

// TestProcessor_SilenceIsZero verifies that an all-zero window produces
// an all-zero spectrum with no NaN creeping in. Downstream normalization
// divides by the spectrum peak, so a phantom value here would corrupt
// every bar.
func TestProcessor_SilenceIsZero(t *testing.T) {
	proc := NewProcessor(512)
	mags := proc.Magnitudes(make([]float64, 512))

	for i, m := range mags {
		if math.IsNaN(m) {
			t.Fatalf("bin %d is NaN", i)
		}
		if m != 0 {
			t.Fatalf("bin %d = %g, want 0 for silent input", i, m)
		}
	}
}

// TestProcessor_DCInput verifies that a constant signal concentrates its
// energy at bin zero. A windowing bug that zeroes the whole frame would
// leave the spectrum empty instead.
func TestProcessor_DCInput(t *testing.T) {
	const n = 512
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5
	}

	proc := NewProcessor(n)
	mags := proc.Magnitudes(samples)

	peakBin := 0
	for i, m := range mags {
		if m > mags[peakBin] {
			peakBin = i
		}
	}
	if peakBin != 0 {
		t.Errorf("DC energy at bin %d, want 0", peakBin)
	}
	if mags[0] == 0 {
		t.Error("DC bin is zero for a constant signal")
	}

	t.Logf("DC input: bin 0 magnitude %.2f", mags[0])
}

// TestProcessor_ScratchReuse documents the buffer reuse contract: the
// slice returned by Magnitudes is invalidated by the next call, so
// callers keeping values must copy them out.
func TestProcessor_ScratchReuse(t *testing.T) {
	const n = 256
	proc := NewProcessor(n)

	tone := make([]float64, n)
	for i := range tone {
		tone[i] = math.Sin(2 * math.Pi * 8 * float64(i) / float64(n))
	}

	first := proc.Magnitudes(tone)
	saved := make([]float64, len(first))
	copy(saved, first)

	second := proc.Magnitudes(make([]float64, n))

	if &first[0] != &second[0] {
		t.Fatal("expected Magnitudes to reuse its scratch buffer")
	}

	// The copied snapshot still holds the tone's spectrum even though
	// the live slice now shows silence.
	var sum float64
	for _, m := range saved {
		sum += m
	}
	if sum == 0 {
		t.Error("copied spectrum lost its content")
	}
	for i, m := range second {
		if m != 0 {
			t.Fatalf("bin %d = %g after silent call, scratch not overwritten", i, m)
		}
	}
}
