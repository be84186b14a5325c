// Package encoder drives an external ffmpeg binary: it probes for
// hardware H.264 encoders and muxes a rendered PNG sequence with the
// source audio into an MP4.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/soundglow/soundglow/internal/config"
)

// minOutputSize is the smallest plausible MP4: anything under this is
// a truncated or empty container.
const minOutputSize = 1024

// Config describes one encode run.
type Config struct {
	FFmpegPath   string // defaults to "ffmpeg" on PATH
	FramePattern string // printf-style PNG sequence pattern
	AudioPath    string
	OutputPath   string
	FrameRate    int
	VideoCodec   string   // e.g. "libx264" or "h264_nvenc"
	DeviceArgs   []string // hardware device setup, emitted before the inputs
	FilterArgs   []string // format/upload chain, replaces -pix_fmt yuv420p
	Preset       string
	Profile      string // applied to libx264 only
	AudioBitrate string
}

func (c *Config) setDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FrameRate <= 0 {
		c.FrameRate = config.DefaultFPS
	}
	if c.VideoCodec == "" {
		c.VideoCodec = "libx264"
	}
	if c.Preset == "" {
		c.Preset = config.DefaultPreset
	}
	if c.Profile == "" {
		c.Profile = config.DefaultProfile
	}
	if c.AudioBitrate == "" {
		c.AudioBitrate = config.DefaultAudioBitrate
	}
}

// RunError carries the ffmpeg invocation and its stderr tail so the
// caller can surface a diagnosable failure.
type RunError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg failed: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg failed: %v\n%s", e.Err, e.Stderr)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// presetCodecs are the encoders that define an x264-style -preset
// option. The surface encoders (vaapi, vulkan, videotoolbox) do not
// and reject it.
var presetCodecs = map[string]bool{
	"libx264":    true,
	"h264_nvenc": true,
	"h264_qsv":   true,
}

// buildArgs assembles the ffmpeg command line. Device args must come
// before the inputs, and a hardware format/upload chain replaces the
// software pixel format when present. The -shortest flag stops the mux
// at the shorter stream so audio rounding never produces a trailing
// frozen frame.
func buildArgs(cfg Config) []string {
	args := []string{"-y", "-hide_banner"}
	args = append(args, cfg.DeviceArgs...)
	args = append(args,
		"-framerate", strconv.Itoa(cfg.FrameRate),
		"-i", cfg.FramePattern,
		"-i", cfg.AudioPath,
		"-c:v", cfg.VideoCodec,
	)
	if presetCodecs[cfg.VideoCodec] {
		args = append(args, "-preset", cfg.Preset)
	}
	if cfg.VideoCodec == "libx264" {
		args = append(args, "-profile:v", cfg.Profile)
	}
	if len(cfg.FilterArgs) > 0 {
		args = append(args, cfg.FilterArgs...)
	} else {
		args = append(args, "-pix_fmt", "yuv420p")
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", cfg.AudioBitrate,
		"-shortest",
		cfg.OutputPath,
	)
	return args
}

// Encode muxes the frame sequence and audio into cfg.OutputPath,
// then verifies the container is present and readable.
func Encode(ctx context.Context, cfg Config, log *slog.Logger) error {
	cfg.setDefaults()
	if log == nil {
		log = slog.Default()
	}

	args := buildArgs(cfg)
	cmdLine := cfg.FFmpegPath + " " + strings.Join(args, " ")
	log.Debug("starting ffmpeg", "cmd", cmdLine)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cfg.FFmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		runErr := &RunError{
			Cmd:    cmdLine,
			Stderr: tailString(stderr.String(), 4096),
			Err:    err,
		}
		log.Error("ffmpeg failed", "error", err, "stderr", runErr.Stderr)
		return runErr
	}

	if err := verifyOutput(cfg.OutputPath); err != nil {
		return &RunError{Cmd: cmdLine, Stderr: tailString(stderr.String(), 4096), Err: err}
	}

	log.Debug("encode complete", "output", cfg.OutputPath)
	return nil
}

// verifyOutput confirms ffmpeg left a readable file of plausible size.
// ffmpeg can exit zero yet leave a useless container when the frame
// pattern matched nothing.
func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output file missing: %w", err)
	}
	if info.Size() < minOutputSize {
		return fmt.Errorf("output file is only %d bytes", info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("output file unreadable: %w", err)
	}
	defer f.Close()

	buf := make([]byte, minOutputSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("output file unreadable: %w", err)
	}
	return nil
}

// tailString keeps the last n bytes of s, where the actionable ffmpeg
// diagnostics live.
func tailString(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
