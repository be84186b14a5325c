package soundglow

import (
	"context"
	"image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/soundglow/soundglow/internal/config"
)

// Preview renders the single frame nearest to the at timestamp and
// writes it as a PNG to opts.OutputPath. It shares Options with
// Generate; encoder settings are ignored, and so is Smoothing, which
// needs frame history a lone frame does not have. Timestamps past the
// end of the audio clamp to the last frame.
func Preview(ctx context.Context, opts Options, at time.Duration) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	style := opts.Style
	if style == (StyleConfig{}) {
		style = DefaultStyle()
	}
	if opts.FPS == 0 {
		opts.FPS = config.DefaultFPS
	}

	if opts.AudioPath == "" {
		return nil, NewValidationError("AudioPath", "", "audio file is required")
	}
	if opts.ImagePath == "" {
		return nil, NewValidationError("ImagePath", "", "background image is required")
	}
	if opts.OutputPath == "" {
		return nil, NewValidationError("OutputPath", "", "output path is required")
	}
	if opts.FPS < 0 {
		return nil, NewValidationError("FPS", opts.FPS, "must be positive")
	}
	if at < 0 {
		return nil, NewValidationError("At", at, "must not be negative")
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pipe, err := buildPipeline(opts, style, log)
	if err != nil {
		return nil, err
	}

	frameCount := int(math.Floor(pipe.track.Duration() * float64(opts.FPS)))
	if frameCount <= 0 {
		return nil, NewInputError(opts.AudioPath, "audio too short for a single frame", nil)
	}
	samplesPerFrame := pipe.track.SampleRate / opts.FPS
	if samplesPerFrame <= 0 {
		return nil, NewValidationError("FPS", opts.FPS, "exceeds the audio sample rate")
	}

	index := int(at.Seconds() * float64(opts.FPS))
	if index >= frameCount {
		index = frameCount - 1
	}

	amps := pipe.analyzer.AnalyzeSegment(pipe.track.Segment(index, samplesPerFrame))
	img, err := pipe.renderer.RenderFrame(amps)
	if err != nil {
		return nil, NewRenderError("failed to render preview frame", err)
	}
	defer pipe.renderer.Release(img)

	f, err := os.Create(opts.OutputPath)
	if err != nil {
		return nil, NewRenderError("failed to create preview file", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, NewRenderError("failed to write preview file", err)
	}
	if err := f.Close(); err != nil {
		return nil, NewRenderError("failed to write preview file", err)
	}

	log.Info("preview written", "output", opts.OutputPath, "frame", index)

	return &Result{
		OutputPath: opts.OutputPath,
		FrameCount: 1,
		Width:      pipe.width,
		Height:     pipe.height,
		Duration:   time.Duration(pipe.track.Duration() * float64(time.Second)),
	}, nil
}
