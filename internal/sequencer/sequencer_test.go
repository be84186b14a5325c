package sequencer

import (
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/soundglow/soundglow/internal/audio"
	"github.com/soundglow/soundglow/internal/framestore"
	"github.com/soundglow/soundglow/internal/imaging"
	"github.com/soundglow/soundglow/internal/logger"
	"github.com/soundglow/soundglow/internal/renderer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sineTrack(seconds float64, rate int, freq float64) *audio.Track {
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return &audio.Track{Samples: samples, SampleRate: rate}
}

func testRenderer(t *testing.T, width, height int) *renderer.Renderer {
	t.Helper()
	r, err := renderer.New(renderer.Config{
		Width:            width,
		Height:           height,
		ColorG:           0xFF,
		ColorB:           0xFF,
		BarCount:         16,
		BarWidthRatio:    0.8,
		BarHeightScale:   1.0,
		VerticalPosition: 0.5,
		HorizontalMargin: 0.1,
	}, nil)
	if err != nil {
		t.Fatalf("renderer.New failed: %v", err)
	}
	return r
}

func testParams(t *testing.T, track *audio.Track) Params {
	t.Helper()

	an, err := audio.NewAnalyzer(16, 1.0)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	st, err := framestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("framestore.New failed: %v", err)
	}
	t.Cleanup(func() { st.Purge() })

	return Params{
		Track:    track,
		Analyzer: an,
		Renderer: testRenderer(t, 64, 48),
		Store:    st,
		FPS:      30,
		Logger:   logger.Discard(),
	}
}

// litPixels counts non-black pixels in a stored frame.
func litPixels(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open frame: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}

	lit := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r|g|bl != 0 {
				lit++
			}
		}
	}
	return lit
}

// TestRun_FrameCountMatchesDuration pins the frame budget: duration
// times fps, rounded down, never up.
func TestRun_FrameCountMatchesDuration(t *testing.T) {
	p := testParams(t, sineTrack(2.0, 8000, 440))

	res, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.FrameCount != 60 {
		t.Errorf("FrameCount = %d, want 60 for 2s at 30fps", res.FrameCount)
	}

	n, err := p.Store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 60 {
		t.Errorf("store holds %d frames, want 60", n)
	}
}

func TestRun_SubFrameAudioRejected(t *testing.T) {
	track := &audio.Track{Samples: make([]float64, 100), SampleRate: 8000}
	p := testParams(t, track)

	if _, err := Run(context.Background(), p); err == nil {
		t.Error("Run produced frames from audio shorter than one frame")
	}
}

func TestRun_FirstFrameShape(t *testing.T) {
	p := testParams(t, sineTrack(0.5, 8000, 440))

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	w, h, err := imaging.FrameSize(p.Store.Path(0))
	if err != nil {
		t.Fatalf("first frame unreadable: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("first frame is %dx%d, want 64x48", w, h)
	}
}

// TestRun_OddFramesNormalized forces a renderer with an odd canvas and
// checks the post-pass rewrites the sequence to even dimensions, which
// yuv420p encoding requires.
func TestRun_OddFramesNormalized(t *testing.T) {
	p := testParams(t, sineTrack(0.5, 8000, 440))
	p.Renderer = testRenderer(t, 63, 47)

	res, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, idx := range []int{0, res.FrameCount - 1} {
		w, h, err := imaging.FrameSize(p.Store.Path(idx))
		if err != nil {
			t.Fatalf("frame %d unreadable: %v", idx, err)
		}
		if w%2 != 0 || h%2 != 0 {
			t.Errorf("frame %d still %dx%d after normalization", idx, w, h)
		}
	}
}

func TestRun_ProgressBounds(t *testing.T) {
	p := testParams(t, sineTrack(1.0, 8000, 440))

	var mu sync.Mutex
	var seen []float64
	p.Progress = func(pct float64) {
		mu.Lock()
		seen = append(seen, pct)
		mu.Unlock()
	}

	if _, err := Run(context.Background(), p); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) == 0 {
		t.Fatal("no progress reported")
	}
	t.Logf("progress: first=%.1f last=%.1f updates=%d", seen[0], seen[len(seen)-1], len(seen))

	last := 0.0
	for i, pct := range seen {
		if pct < 5 || pct > 75 {
			t.Errorf("progress %v outside the frame phase band [5, 75]", pct)
		}
		if pct < last {
			t.Errorf("progress went backwards at update %d: %v after %v", i, pct, last)
		}
		last = pct
	}
	if seen[len(seen)-1] != 75 {
		t.Errorf("final progress = %v, want 75", seen[len(seen)-1])
	}
}

// TestRun_OnFrameOrdered pins the hook contract: one call per frame,
// strictly in index order, on the coordinator goroutine.
func TestRun_OnFrameOrdered(t *testing.T) {
	p := testParams(t, sineTrack(1.0, 8000, 440))

	var indices []int
	p.OnFrame = func(index, total int, amps []float64) {
		indices = append(indices, index)
		if total != 30 {
			t.Errorf("OnFrame total = %d, want 30", total)
		}
		if len(amps) != 16 {
			t.Errorf("OnFrame got %d amplitudes, want 16", len(amps))
		}
	}

	res, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(indices) != res.FrameCount {
		t.Fatalf("OnFrame called %d times, want %d", len(indices), res.FrameCount)
	}
	for i, idx := range indices {
		if idx != i {
			t.Fatalf("OnFrame call %d carried index %d, want strict frame order", i, idx)
		}
	}
}

// TestRun_SmoothingCarriesEnergyAcrossSilence drives the loud-to-silent
// transition: with heavy smoothing the first silent frame keeps most of
// the previous frame's bars, without it the bars vanish instantly.
func TestRun_SmoothingCarriesEnergyAcrossSilence(t *testing.T) {
	rate := 8000
	loud := sineTrack(1.0, rate, 440).Samples
	silence := make([]float64, rate)
	track := &audio.Track{Samples: append(loud, silence...), SampleRate: rate}

	// fps 10 puts the transition exactly at frame 10.
	runWith := func(smoothing float64) int {
		p := testParams(t, track)
		p.FPS = 10
		p.Smoothing = smoothing
		if _, err := Run(context.Background(), p); err != nil {
			t.Fatalf("Run(smoothing=%v) failed: %v", smoothing, err)
		}
		return litPixels(t, p.Store.Path(10))
	}

	abrupt := runWith(0)
	smoothed := runWith(0.9)
	t.Logf("first silent frame: lit=%d without smoothing, lit=%d with 0.9", abrupt, smoothed)

	if abrupt != 0 {
		t.Errorf("without smoothing the silent frame has %d lit pixels, want 0", abrupt)
	}
	if smoothed == 0 {
		t.Error("with smoothing 0.9 the silent frame lost all bars")
	}
}

func TestRun_SaveFailureAborts(t *testing.T) {
	p := testParams(t, sineTrack(1.0, 8000, 440))

	// Purging up front makes every frame write fail.
	if err := p.Store.Purge(); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), p); err == nil {
		t.Error("Run succeeded with an unwritable frame store")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	p := testParams(t, sineTrack(1.0, 8000, 440))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRun_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"nil track", func(p *Params) { p.Track = nil }},
		{"nil analyzer", func(p *Params) { p.Analyzer = nil }},
		{"nil renderer", func(p *Params) { p.Renderer = nil }},
		{"nil store", func(p *Params) { p.Store = nil }},
		{"zero fps", func(p *Params) { p.FPS = 0 }},
		{"smoothing at one", func(p *Params) { p.Smoothing = 1.0 }},
		{"negative smoothing", func(p *Params) { p.Smoothing = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(t, sineTrack(0.5, 8000, 440))
			tt.mutate(&p)
			if _, err := Run(context.Background(), p); err == nil {
				t.Error("Run accepted invalid params")
			}
		})
	}
}
