package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/soundglow/soundglow"
	"github.com/soundglow/soundglow/internal/cli"
	"github.com/soundglow/soundglow/internal/config"
	"github.com/soundglow/soundglow/internal/encoder"
	"github.com/soundglow/soundglow/internal/imaging"
	"github.com/soundglow/soundglow/internal/logger"
	"github.com/soundglow/soundglow/internal/ui"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// versionFlag prints the version and exits before any command runs.
type versionFlag bool

func (versionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	cli.PrintVersion(vars["version"])
	app.Exit(0)
	return nil
}

var CLI struct {
	Verbose bool        `short:"v" help:"Debug logging with plain output (disables the live view)"`
	Version versionFlag `help:"Show version information"`

	Render  renderCmd  `cmd:"" help:"Render an audio track and a background image into an MP4"`
	Preview previewCmd `cmd:"" help:"Render a single frame to PNG without encoding video"`
	Doctor  doctorCmd  `cmd:"" help:"Check ffmpeg and hardware encoder availability"`
}

// appContext carries the global flags into command Run methods.
type appContext struct {
	verbose bool
}

// styleFlags maps the bar style knobs onto CLI flags, shared by the
// render and preview commands.
type styleFlags struct {
	Color          string  `help:"Bar color as #RRGGBB" default:"#00FFFF"`
	Bars           int     `help:"Number of frequency bars" default:"64"`
	BarWidth       float64 `help:"Fraction of each slot a bar fills, (0, 1]" default:"0.8"`
	BarScale       float64 `help:"Multiplier on bar height" default:"1.0"`
	Glow           bool    `help:"Draw a halo beneath the bars"`
	GlowIntensity  float64 `help:"Halo strength, 0 to 1" default:"0.5"`
	Responsiveness float64 `help:"Amplitude gain before normalization" default:"1.0"`
	Smoothing      float64 `help:"Weight of the previous frame, 0 to 1" default:"0.2"`
	Position       float64 `help:"Vertical bar anchor: 0 top edge, 1 bottom edge" default:"0.5"`
	Margin         float64 `help:"Fraction of width kept clear per side" default:"0.1"`
	GrowFromAnchor bool    `help:"Grow bars up from the anchor instead of straddling it"`
}

func (f styleFlags) toStyle() soundglow.StyleConfig {
	return soundglow.StyleConfig{
		Color:            f.Color,
		BarCount:         f.Bars,
		BarWidthRatio:    f.BarWidth,
		BarHeightScale:   f.BarScale,
		GlowEnabled:      f.Glow,
		GlowIntensity:    f.GlowIntensity,
		Responsiveness:   f.Responsiveness,
		Smoothing:        f.Smoothing,
		VerticalPosition: f.Position,
		HorizontalMargin: f.Margin,
		GrowFromAnchor:   f.GrowFromAnchor,
	}
}

// overlayFlags control the optional title overlay.
type overlayFlags struct {
	Title     string `help:"Title drawn onto the background; defaults to the audio's title tag, then its file name"`
	Font      string `help:"TTF font for the title overlay; without it no title is drawn"`
	TextColor string `help:"Title color as #RRGGBB" default:"#FFFFFF"`
}

type renderCmd struct {
	Audio  string `arg:"" type:"existingfile" help:"Audio file (wav, mp3 or flac)"`
	Image  string `arg:"" type:"existingfile" help:"Background image (png or jpeg)"`
	Output string `arg:"" help:"Output MP4 file"`

	FPS     int    `help:"Video frame rate" default:"30"`
	Workers int    `help:"Parallel frame renderers" default:"4"`
	Encoder string `help:"Video encoder" enum:"auto,none,nvenc,qsv,vaapi,vulkan,videotoolbox" default:"auto"`
	FFmpeg  string `help:"Path to the ffmpeg binary" default:"ffmpeg"`
	NoUI    bool   `name:"no-ui" help:"Plain log output instead of the live progress view"`

	Style   styleFlags   `embed:""`
	Overlay overlayFlags `embed:""`
}

func (c *renderCmd) Run(app *appContext) error {
	if c.FPS == 0 {
		c.FPS = config.DefaultFPS
	}
	opts := soundglow.Options{
		AudioPath:  c.Audio,
		ImagePath:  c.Image,
		OutputPath: c.Output,
		FPS:        c.FPS,
		Workers:    c.Workers,
		Encoder:    c.Encoder,
		FFmpegPath: c.FFmpeg,
		Title:      c.Overlay.Title,
		FontPath:   c.Overlay.Font,
		TextColor:  c.Overlay.TextColor,
		Style:      c.Style.toStyle(),
	}

	if app.verbose || c.NoUI {
		return c.runPlain(opts, app.verbose)
	}
	return c.runUI(opts)
}

// runPlain drives a render with slog output instead of the live view.
func (c *renderCmd) runPlain(opts soundglow.Options, verbose bool) error {
	cfg := logger.DefaultConfig()
	if verbose {
		cfg.Level = slog.LevelDebug
	}
	log := logger.NewLogger(cfg)
	opts.Logger = log

	var startOnce sync.Once
	opts.FrameHook = func(_, total int, _ []float64) {
		startOnce.Do(func() {
			videoLen := time.Duration(total) * time.Second / time.Duration(opts.FPS)
			log.Info("render started",
				"frames", total,
				"estimated_total", soundglow.EstimateDuration(videoLen).Round(time.Second))
		})
	}

	var lastStep float64
	opts.Progress = func(pct float64) {
		if pct >= lastStep+5 {
			lastStep = pct
			log.Info("progress", "percent", int(pct))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := soundglow.Generate(ctx, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("render cancelled")
		}
		return err
	}

	printSummary(res, time.Since(start))
	return nil
}

// runUI drives a render behind the Bubbletea progress view.
func (c *renderCmd) runUI(opts soundglow.Options) error {
	// slog lines would tear the live view; plain mode keeps the logs.
	opts.Logger = logger.Discard()

	p := tea.NewProgram(ui.NewModel(opts.FPS))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	opts.FrameHook = func(frame, total int, amps []float64) {
		// Every third frame is plenty for a terminal redraw.
		if frame%3 != 0 && frame != total-1 {
			return
		}
		heights := make([]float64, len(amps))
		copy(heights, amps)
		p.Send(ui.RenderProgress{
			Frame:       frame + 1,
			TotalFrames: total,
			Amplitudes:  heights,
			Elapsed:     time.Since(start),
		})
	}
	opts.Progress = func(pct float64) {
		if pct >= config.ProgressFramesEnd {
			p.Send(ui.EncodeProgress{Percent: pct})
		}
	}

	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err := soundglow.Generate(ctx, opts)
		if err != nil {
			runErr = err
			p.Quit()
			return
		}
		p.Send(ui.RunComplete{
			OutputPath:    res.OutputPath,
			FrameCount:    res.FrameCount,
			Width:         res.Width,
			Height:        res.Height,
			Codec:         res.Codec,
			VideoDuration: res.Duration,
			FileSize:      outputSize(res.OutputPath),
			TotalTime:     time.Since(start),
		})
	}()

	_, uiErr := p.Run()

	// Ctrl+c exits the UI first; cancel the pipeline and wait for its
	// frame store cleanup before returning.
	stop()
	<-done

	if uiErr != nil {
		return fmt.Errorf("running UI: %w", uiErr)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return errors.New("render cancelled")
		}
		return runErr
	}
	return nil
}

type previewCmd struct {
	Audio  string `arg:"" type:"existingfile" help:"Audio file (wav, mp3 or flac)"`
	Image  string `arg:"" type:"existingfile" help:"Background image (png or jpeg)"`
	Output string `arg:"" help:"Output PNG file"`

	At     time.Duration `help:"Timestamp to render, e.g. 12s or 1m30s" default:"0s"`
	FPS    int           `help:"Frame rate the timestamp maps onto" default:"30"`
	NoShow bool          `name:"no-show" help:"Skip drawing the frame in the terminal"`

	Style   styleFlags   `embed:""`
	Overlay overlayFlags `embed:""`
}

func (c *previewCmd) Run(app *appContext) error {
	opts := soundglow.Options{
		AudioPath:  c.Audio,
		ImagePath:  c.Image,
		OutputPath: c.Output,
		FPS:        c.FPS,
		Title:      c.Overlay.Title,
		FontPath:   c.Overlay.Font,
		TextColor:  c.Overlay.TextColor,
		Style:      c.Style.toStyle(),
		Logger:     logger.Discard(),
	}
	if app.verbose {
		cfg := logger.DefaultConfig()
		cfg.Level = slog.LevelDebug
		opts.Logger = logger.NewLogger(cfg)
	}

	res, err := soundglow.Preview(context.Background(), opts, c.At)
	if err != nil {
		return err
	}
	cli.PrintSuccess(fmt.Sprintf("Preview written to %s (%d×%d)", res.OutputPath, res.Width, res.Height))

	if c.NoShow {
		return nil
	}
	frame, err := imaging.Load(res.OutputPath)
	if err != nil {
		return fmt.Errorf("reloading preview: %w", err)
	}
	fmt.Print(ui.RenderPreview(ui.DownsampleFrame(frame, ui.DefaultPreviewConfig())))
	return nil
}

type doctorCmd struct {
	FFmpeg string `help:"Path to the ffmpeg binary" default:"ffmpeg"`
}

func (c *doctorCmd) Run(_ *appContext) error {
	cli.PrintBanner()

	path, err := exec.LookPath(c.FFmpeg)
	if err != nil {
		cli.PrintWarning(fmt.Sprintf("ffmpeg not found (%q); install it to encode videos", c.FFmpeg))
		return nil
	}
	cli.PrintInfo("ffmpeg", path)
	fmt.Println()

	// Each probe encodes one synthetic frame, so give slow drivers room.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Print(encoder.GetEncoderStatus(ctx, path))
	fmt.Println("  Software x264 (libx264): available")
	return nil
}

// printSummary renders the completion box for plain-mode runs.
func printSummary(res *soundglow.Result, elapsed time.Duration) {
	speed := 0.0
	if elapsed > 0 {
		speed = res.Duration.Seconds() / elapsed.Seconds()
	}
	cli.PrintRunSummary(
		res.OutputPath,
		fmt.Sprintf("%d×%d", res.Width, res.Height),
		res.Codec,
		fmt.Sprintf("%d", res.FrameCount),
		fmt.Sprintf("%s video in %s", cli.FormatDuration(res.Duration), cli.FormatDuration(elapsed)),
		cli.FormatSpeed(speed),
		cli.FormatBytes(outputSize(res.OutputPath)),
	)
}

// outputSize stats the finished file, zero when unreadable.
func outputSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("soundglow"),
		kong.Description("Turn a still image and an audio track into a pulsing frequency-bar MP4."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if err := ctx.Run(&appContext{verbose: CLI.Verbose}); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}
