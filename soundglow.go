// Package soundglow generates frequency-bar visualization videos from
// an audio file and a still background image.
package soundglow

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os/exec"
	"time"

	"github.com/soundglow/soundglow/internal/audio"
	"github.com/soundglow/soundglow/internal/config"
	"github.com/soundglow/soundglow/internal/encoder"
	"github.com/soundglow/soundglow/internal/framestore"
	"github.com/soundglow/soundglow/internal/imaging"
	"github.com/soundglow/soundglow/internal/renderer"
	"github.com/soundglow/soundglow/internal/sequencer"
)

// StyleConfig controls how the frequency bars look and move.
type StyleConfig struct {
	Color            string  // bar color as "#RRGGBB"
	BarCount         int     // number of frequency bars
	BarWidthRatio    float64 // fraction of each slot a bar fills, (0, 1]
	BarHeightScale   float64 // multiplier on bar height, > 0
	GlowEnabled      bool    // draw a halo beneath the bars
	GlowIntensity    float64 // halo strength, [0, 1]
	Responsiveness   float64 // amplitude gain applied before normalization, > 0
	Smoothing        float64 // weight of the previous frame, [0, 1)
	VerticalPosition float64 // bar anchor: 0 top edge, 1 bottom edge
	HorizontalMargin float64 // fraction of width kept clear per side, [0, 0.5)
	GrowFromAnchor   bool    // rise from the anchor instead of straddling it
}

// DefaultStyle returns the style used when the caller supplies none.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		Color:            config.DefaultColor,
		BarCount:         config.DefaultBarCount,
		BarWidthRatio:    config.DefaultBarWidthRatio,
		BarHeightScale:   config.DefaultBarHeightScale,
		GlowIntensity:    config.DefaultGlowIntensity,
		Responsiveness:   config.DefaultResponsiveness,
		Smoothing:        config.DefaultSmoothing,
		VerticalPosition: config.DefaultVerticalPosition,
		HorizontalMargin: config.DefaultHorizontalMargin,
	}
}

// Validate checks every field range and names the first offender.
func (s StyleConfig) Validate() error {
	if _, _, _, err := config.ParseHexColor(s.Color); err != nil {
		return NewValidationError("Color", s.Color, "must be a hex color like #00FFFF")
	}
	if s.BarCount <= 0 {
		return NewValidationError("BarCount", s.BarCount, "must be positive")
	}
	if s.BarWidthRatio <= 0 || s.BarWidthRatio > 1 {
		return NewValidationError("BarWidthRatio", s.BarWidthRatio, "must be in (0, 1]")
	}
	if s.BarHeightScale <= 0 || math.IsNaN(s.BarHeightScale) || math.IsInf(s.BarHeightScale, 0) {
		return NewValidationError("BarHeightScale", s.BarHeightScale, "must be positive and finite")
	}
	if s.GlowIntensity < 0 || s.GlowIntensity > 1 {
		return NewValidationError("GlowIntensity", s.GlowIntensity, "must be in [0, 1]")
	}
	if s.Responsiveness <= 0 || math.IsNaN(s.Responsiveness) || math.IsInf(s.Responsiveness, 0) {
		return NewValidationError("Responsiveness", s.Responsiveness, "must be positive and finite")
	}
	if s.Smoothing < 0 || s.Smoothing >= 1 {
		return NewValidationError("Smoothing", s.Smoothing, "must be in [0, 1)")
	}
	if s.VerticalPosition < 0 || s.VerticalPosition > 1 {
		return NewValidationError("VerticalPosition", s.VerticalPosition, "must be in [0, 1]")
	}
	if s.HorizontalMargin < 0 || s.HorizontalMargin >= 0.5 {
		return NewValidationError("HorizontalMargin", s.HorizontalMargin, "must be in [0, 0.5)")
	}
	return nil
}

// Options configures a Generate run. Only the three paths are
// required; everything else has a sensible default.
type Options struct {
	AudioPath  string
	ImagePath  string
	OutputPath string

	FPS     int         // defaults to 30
	Style   StyleConfig // zero value means DefaultStyle
	Workers int         // render pool size, defaults to 4

	Encoder    string // "auto", "none", or a hardware type like "nvenc"
	FFmpegPath string // defaults to "ffmpeg" on PATH

	// Title is drawn onto the background when FontPath is set. An
	// empty Title falls back to the audio file's tags, then its name.
	Title     string
	FontPath  string
	TextColor string // defaults to white

	// Progress receives advisory percentages in [0, 100].
	Progress func(percent float64)

	// FrameHook, when set, receives each frame's amplitude vector as
	// it is dispatched for rendering, in frame order. The slice is
	// shared with the renderer; copy it before retaining.
	FrameHook func(frameIndex, frameCount int, amplitudes []float64)

	Logger *slog.Logger
}

// Result describes a finished video.
type Result struct {
	OutputPath string
	FrameCount int
	Width      int
	Height     int
	Duration   time.Duration // duration of the source audio
	Codec      string        // video codec ffmpeg used
}

// knownEncoders are the accepted values for Options.Encoder.
var knownEncoders = map[string]encoder.HWAccelType{
	"":             encoder.HWAccelAuto,
	"auto":         encoder.HWAccelAuto,
	"none":         encoder.HWAccelNone,
	"nvenc":        encoder.HWAccelNVENC,
	"qsv":          encoder.HWAccelQSV,
	"vaapi":        encoder.HWAccelVAAPI,
	"vulkan":       encoder.HWAccelVulkan,
	"videotoolbox": encoder.HWAccelVideoToolbox,
}

// Generate runs the full pipeline: decode the audio, render one frame
// per video frame with the bars over the background image, and mux the
// sequence with the original audio into an MP4. Intermediate frames
// are always purged, on success and on failure alike.
func Generate(ctx context.Context, opts Options) (*Result, error) {
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
	if err := style.Validate(); err != nil {
		return nil, err
	}
	requested, ok := knownEncoders[opts.Encoder]
	if !ok {
		return nil, NewValidationError("Encoder", opts.Encoder,
			"must be auto, none, nvenc, qsv, vaapi, vulkan or videotoolbox")
	}

	if _, _, _, err := config.ParseHexColor(textColorOrDefault(opts.TextColor)); err != nil {
		return nil, NewValidationError("TextColor", opts.TextColor, "must be a hex color like #FFFFFF")
	}

	// Resolving ffmpeg up front avoids rendering thousands of frames
	// only to fail at the mux step.
	ffmpegPath, err := resolveFFmpeg(opts.FFmpegPath)
	if err != nil {
		return nil, err
	}

	pipe, err := buildPipeline(opts, style, log)
	if err != nil {
		return nil, err
	}

	store, err := framestore.New("")
	if err != nil {
		return nil, NewRenderError("failed to create frame store", err)
	}
	defer func() {
		if perr := store.Purge(); perr != nil {
			log.Warn("cleanup failed", "error", NewCleanupError(store.Dir(), perr))
		}
	}()

	seqRes, err := sequencer.Run(ctx, sequencer.Params{
		Track:     pipe.track,
		Analyzer:  pipe.analyzer,
		Renderer:  pipe.renderer,
		Store:     store,
		FPS:       opts.FPS,
		Smoothing: style.Smoothing,
		Workers:   opts.Workers,
		Progress:  opts.Progress,
		OnFrame:   opts.FrameHook,
		Logger:    log,
	})
	if err != nil {
		return nil, NewRenderError("frame sequence aborted", err)
	}

	selected := encoder.SelectBestEncoder(ctx, ffmpegPath, requested)
	if selected == nil && requested != encoder.HWAccelAuto && requested != encoder.HWAccelNone {
		log.Warn("requested encoder unavailable, using software x264", "requested", opts.Encoder)
	}
	codec := encoder.EncoderName(selected)
	log.Info("encoding video", "codec", codec, "frames", seqRes.FrameCount, "output", opts.OutputPath)

	encCfg := encoder.Config{
		FFmpegPath:   ffmpegPath,
		FramePattern: store.Pattern(),
		AudioPath:    opts.AudioPath,
		OutputPath:   opts.OutputPath,
		FrameRate:    opts.FPS,
		VideoCodec:   codec,
	}
	if selected != nil {
		// A hardware encoder needs the same device and upload args it
		// was detected with; without them the surface encoders reject
		// software frames.
		encCfg.DeviceArgs = selected.DeviceArgs
		encCfg.FilterArgs = selected.FilterArgs
	}
	err = encoder.Encode(ctx, encCfg, log)
	if err != nil {
		var runErr *encoder.RunError
		if errors.As(err, &runErr) {
			return nil, NewEncodeError(runErr.Stderr, err)
		}
		return nil, NewEncodeError("", err)
	}
	report(opts.Progress, config.ProgressEncoded)

	log.Info("video complete", "output", opts.OutputPath)
	report(opts.Progress, config.ProgressDone)

	return &Result{
		OutputPath: opts.OutputPath,
		FrameCount: seqRes.FrameCount,
		Width:      pipe.width,
		Height:     pipe.height,
		Duration:   time.Duration(pipe.track.Duration() * float64(time.Second)),
		Codec:      codec,
	}, nil
}

// pipeline bundles the stages shared by Generate and Preview.
type pipeline struct {
	track    *audio.Track
	analyzer *audio.Analyzer
	renderer *renderer.Renderer
	width    int
	height   int
}

// buildPipeline loads both inputs, bakes the optional title overlay
// into the background, and constructs the analyzer and renderer.
// Callers must have validated opts and style already.
func buildPipeline(opts Options, style StyleConfig, log *slog.Logger) (*pipeline, error) {
	bg, err := imaging.Load(opts.ImagePath)
	if err != nil {
		return nil, NewInputError(opts.ImagePath, "failed to load background image", err)
	}

	track, err := audio.LoadTrack(opts.AudioPath)
	if err != nil {
		return nil, NewInputError(opts.AudioPath, "failed to load audio", err)
	}

	width := bg.Bounds().Dx()
	height := bg.Bounds().Dy()
	log.Info("inputs loaded",
		"audio", opts.AudioPath,
		"duration", fmt.Sprintf("%.1fs", track.Duration()),
		"sample_rate", track.SampleRate,
		"canvas", fmt.Sprintf("%dx%d", width, height))
	if log.Enabled(context.Background(), slog.LevelDebug) {
		prof := audio.Measure(track)
		log.Debug("audio profile",
			"peak", fmt.Sprintf("%.3f", prof.Peak),
			"rms", fmt.Sprintf("%.3f", prof.RMS))
	}

	title := opts.Title
	if title == "" && opts.FontPath != "" {
		title = audio.TitleOrStem(opts.AudioPath)
	}
	if title != "" && opts.FontPath != "" {
		face, err := renderer.LoadFont(opts.FontPath, titleFontSize(height))
		if err != nil {
			return nil, NewInputError(opts.FontPath, "failed to load font", err)
		}
		textR, textG, textB, _ := config.ParseHexColor(textColorOrDefault(opts.TextColor))
		renderer.DrawTitle(bg, face, title,
			color.RGBA{R: textR, G: textG, B: textB, A: 255},
			renderer.TitleBaseline(height))
		log.Debug("title overlay drawn", "title", title)
	} else if title != "" {
		log.Warn("title ignored, no font file provided", "title", title)
	}

	analyzer, err := audio.NewAnalyzer(style.BarCount, style.Responsiveness)
	if err != nil {
		return nil, NewAnalysisError("invalid analyzer settings", err)
	}

	barR, barG, barB, _ := config.ParseHexColor(style.Color)
	rend, err := renderer.New(renderer.Config{
		ColorR:           barR,
		ColorG:           barG,
		ColorB:           barB,
		BarCount:         style.BarCount,
		BarWidthRatio:    style.BarWidthRatio,
		BarHeightScale:   style.BarHeightScale,
		GlowEnabled:      style.GlowEnabled,
		GlowIntensity:    style.GlowIntensity,
		VerticalPosition: style.VerticalPosition,
		HorizontalMargin: style.HorizontalMargin,
		GrowFromAnchor:   style.GrowFromAnchor,
	}, bg)
	if err != nil {
		return nil, NewRenderError("invalid renderer configuration", err)
	}

	return &pipeline{
		track:    track,
		analyzer: analyzer,
		renderer: rend,
		width:    width,
		height:   height,
	}, nil
}

func textColorOrDefault(s string) string {
	if s == "" {
		return "#FFFFFF"
	}
	return s
}

// EstimateDuration predicts wall-clock generation time from the audio
// length. Rendering plus encoding lands near 1.5x realtime on typical
// hardware, with a floor for fixed startup cost.
func EstimateDuration(audioDuration time.Duration) time.Duration {
	est := time.Duration(1.5 * float64(audioDuration))
	if est < 10*time.Second {
		est = 10 * time.Second
	}
	return est
}

func resolveFFmpeg(path string) (string, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", NewEncodeError("", fmt.Errorf("ffmpeg not found (%q): %w", path, err))
	}
	return resolved, nil
}

func titleFontSize(height int) float64 {
	s := float64(height) / 18
	if s < 16 {
		s = 16
	}
	return s
}

func report(cb func(float64), pct float64) {
	if cb != nil {
		cb(pct)
	}
}
