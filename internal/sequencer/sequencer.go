// Package sequencer turns a decoded track into the numbered frame
// sequence the encoder consumes. Spectral analysis and temporal
// smoothing run on the coordinator goroutine in frame order, because
// each smoothed frame depends on the one before it. Rendering and PNG
// writes are order-independent and fan out to a bounded worker pool.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/soundglow/soundglow/internal/audio"
	"github.com/soundglow/soundglow/internal/config"
	"github.com/soundglow/soundglow/internal/framestore"
	"github.com/soundglow/soundglow/internal/imaging"
	"github.com/soundglow/soundglow/internal/renderer"
)

// Params wires the stages together for one run.
type Params struct {
	Track    *audio.Track
	Analyzer *audio.Analyzer
	Renderer *renderer.Renderer
	Store    *framestore.Store

	FPS       int
	Smoothing float64 // [0, 1): weight of the previous frame
	Workers   int     // <= 0 picks the default pool size

	// Progress receives advisory percentages in [5, 75]. It may be
	// called from multiple goroutines, one call at a time.
	Progress func(percent float64)

	// OnFrame, when set, receives each frame's amplitude vector right
	// before it is dispatched for rendering. Called from the
	// coordinator in frame order. The slice is shared with the render
	// worker; treat it as read-only and copy it before retaining.
	OnFrame func(index, total int, amps []float64)

	Logger *slog.Logger
}

// Result reports what a completed run produced.
type Result struct {
	FrameCount int
}

type job struct {
	index int
	amps  []float64
}

// Run produces every frame for the track. On the first frame failure
// the run cancels outstanding work and returns that error; the caller
// owns purging the store.
func Run(ctx context.Context, p Params) (*Result, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}

	frameCount := int(math.Floor(p.Track.Duration() * float64(p.FPS)))
	if frameCount <= 0 {
		return nil, fmt.Errorf("audio too short for a single frame at %d fps", p.FPS)
	}
	samplesPerFrame := p.Track.SampleRate / p.FPS
	if samplesPerFrame <= 0 {
		return nil, fmt.Errorf("frame rate %d exceeds the sample rate %d", p.FPS, p.Track.SampleRate)
	}

	log.Debug("sequencing frames",
		"frames", frameCount,
		"workers", workers,
		"samples_per_frame", samplesPerFrame,
		"smoothing", p.Smoothing)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		failOnce  sync.Once
		firstErr  error
		progressM sync.Mutex
		completed int
	)

	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	report := func() {
		if p.Progress == nil {
			return
		}
		progressM.Lock()
		completed++
		pct := config.ProgressSetup +
			(config.ProgressFramesEnd-config.ProgressSetup)*float64(completed)/float64(frameCount)
		p.Progress(pct)
		progressM.Unlock()
	}

	if p.Progress != nil {
		progressM.Lock()
		p.Progress(config.ProgressSetup)
		progressM.Unlock()
	}

	jobs := make(chan job, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue // drain without rendering
				}
				img, err := p.Renderer.RenderFrame(j.amps)
				if err != nil {
					fail(fmt.Errorf("frame %d: %w", j.index, err))
					continue
				}
				err = p.Store.Save(j.index, img)
				p.Renderer.Release(img)
				if err != nil {
					fail(fmt.Errorf("frame %d: %w", j.index, err))
					continue
				}
				report()
			}
		}()
	}

	// The smoothing recurrence makes frame i depend on frame i-1, so
	// amplitudes are computed here in index order before dispatch.
	var prev []float64
	for i := 0; i < frameCount; i++ {
		if ctx.Err() != nil {
			break
		}

		segment := p.Track.Segment(i, samplesPerFrame)
		amps := p.Analyzer.AnalyzeSegment(segment)

		if i > 0 && p.Smoothing > 0 {
			smoothed := make([]float64, len(amps))
			for k := range amps {
				smoothed[k] = prev[k]*p.Smoothing + amps[k]*(1-p.Smoothing)
			}
			amps = smoothed
		}
		prev = amps

		if p.OnFrame != nil {
			p.OnFrame(i, frameCount, amps)
		}

		select {
		case jobs <- job{index: i, amps: amps}:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := ensureEvenFrames(frameCount, p.Store, log); err != nil {
		return nil, err
	}

	if p.Progress != nil {
		progressM.Lock()
		p.Progress(config.ProgressFramesEnd)
		progressM.Unlock()
	}

	return &Result{FrameCount: frameCount}, nil
}

// ensureEvenFrames re-checks the first frame on disk. yuv420p encoding
// needs even dimensions, and a renderer misconfigured with an odd
// canvas would otherwise poison the whole sequence.
func ensureEvenFrames(frameCount int, store *framestore.Store, log *slog.Logger) error {
	w, h, err := imaging.FrameSize(store.Path(0))
	if err != nil {
		return fmt.Errorf("failed to verify first frame: %w", err)
	}
	if w%2 == 0 && h%2 == 0 {
		return nil
	}

	log.Warn("frames have odd dimensions, normalizing the sequence",
		"width", w, "height", h)
	for i := 0; i < frameCount; i++ {
		if err := imaging.NormalizeFile(store.Path(i)); err != nil {
			return fmt.Errorf("failed to normalize frame %d: %w", i, err)
		}
	}
	return nil
}

func validate(p Params) error {
	switch {
	case p.Track == nil:
		return fmt.Errorf("sequencer needs a decoded track")
	case p.Analyzer == nil:
		return fmt.Errorf("sequencer needs an analyzer")
	case p.Renderer == nil:
		return fmt.Errorf("sequencer needs a renderer")
	case p.Store == nil:
		return fmt.Errorf("sequencer needs a frame store")
	case p.FPS <= 0:
		return fmt.Errorf("frame rate must be positive, got %d", p.FPS)
	case p.Smoothing < 0 || p.Smoothing >= 1:
		return fmt.Errorf("smoothing %v outside [0, 1)", p.Smoothing)
	}
	return nil
}
