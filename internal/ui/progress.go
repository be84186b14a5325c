package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soundglow/soundglow/internal/cli"
)

// Phase represents the current pipeline phase
type Phase int

const (
	PhaseRendering Phase = iota
	PhaseEncoding
	PhaseComplete
)

// RenderProgress carries per-frame updates during the frame loop.
type RenderProgress struct {
	Frame       int // frames dispatched so far, 1-based
	TotalFrames int
	Amplitudes  []float64 // smoothed bar vector, owned by the UI
	Elapsed     time.Duration
}

// EncodeProgress carries the overall pipeline percentage while ffmpeg
// muxes the frame sequence with the audio.
type EncodeProgress struct {
	Percent float64
}

// RunComplete signals the pipeline finished and carries the summary.
type RunComplete struct {
	OutputPath    string
	FrameCount    int
	Width         int
	Height        int
	Codec         string
	VideoDuration time.Duration
	FileSize      int64
	TotalTime     time.Duration
}

// progressQuitMsg is sent when it's time to quit after showing completion
type progressQuitMsg struct{}

// encodeTickMsg redraws the encode view once a second so the elapsed
// timer keeps moving between ffmpeg progress updates.
type encodeTickMsg struct{}

func encodeTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return encodeTickMsg{}
	})
}

// Model implements the Bubbletea model for a whole generate run.
type Model struct {
	progressBar progress.Model
	phase       Phase
	fps         int

	renderState RenderProgress
	overallPct  float64
	complete    *RunComplete

	startTime       time.Time
	encodeStart     time.Time
	width           int
	height          int
	completionDelay time.Duration
}

// NewModel creates a progress UI model for a run at the given frame rate.
func NewModel(fps int) *Model {
	// Glow gradient: deep indigo → bright cyan
	p := progress.New(
		progress.WithGradient(string(cli.GlowIndigo), string(cli.GlowCyan)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &Model{
		progressBar:     p,
		phase:           PhaseRendering,
		fps:             fps,
		startTime:       time.Now(),
		completionDelay: 2 * time.Second,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = min(msg.Width-30, 50)
		return m, nil

	case RenderProgress:
		m.renderState = msg
		if msg.TotalFrames > 0 {
			frac := float64(msg.Frame) / float64(msg.TotalFrames)
			m.overallPct = 5 + 70*frac
		}
		return m, nil

	case EncodeProgress:
		var cmd tea.Cmd
		if m.phase == PhaseRendering {
			m.phase = PhaseEncoding
			m.encodeStart = time.Now()
			cmd = encodeTick()
		}
		if msg.Percent > m.overallPct {
			m.overallPct = msg.Percent
		}
		return m, cmd

	case encodeTickMsg:
		if m.phase == PhaseEncoding {
			return m, encodeTick()
		}
		return m, nil

	case RunComplete:
		m.complete = &msg
		m.phase = PhaseComplete
		m.overallPct = 100

		return m, tea.Tick(m.completionDelay, func(t time.Time) tea.Msg {
			return progressQuitMsg{}
		})

	case progressQuitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.complete != nil {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m *Model) View() string {
	if m.phase == PhaseComplete {
		return m.renderComplete()
	}
	return m.renderProgress()
}

func (m *Model) renderProgress() string {
	var s strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.GlowCyan).
		Render("Soundglow ✨")

	s.WriteString(title)
	s.WriteString("\n")

	var phaseLabel string
	if m.phase == PhaseRendering {
		phaseLabel = "Rendering frames"
	} else {
		phaseLabel = "Encoding video"
	}
	s.WriteString(lipgloss.NewStyle().Foreground(cli.GlowAqua).Render(phaseLabel))
	s.WriteString("\n\n")

	s.WriteString("Progress: ")
	s.WriteString(m.progressBar.ViewAs(m.overallPct / 100))
	s.WriteString(fmt.Sprintf("  %d%%", int(m.overallPct)))
	s.WriteString("\n\n")

	if m.phase == PhaseRendering {
		m.renderFrameStats(&s)
	} else {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render(
			fmt.Sprintf("Muxing frames and audio with ffmpeg  │  Elapsed: %s",
				formatDuration(time.Since(m.encodeStart)))))
		s.WriteString("\n")
	}

	if m.phase == PhaseRendering && len(m.renderState.Amplitudes) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Foreground(cli.GlowAqua).Render("Live Spectrum:"))
		s.WriteString("\n")
		spectrumWidth := 64
		if m.width > 10 {
			spectrumWidth = min(m.width-10, 64)
		}
		s.WriteString(renderSpectrum(m.renderState.Amplitudes, spectrumWidth))
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.GlowBlue).
		Padding(1, 2).
		Render(s.String())
}

func (m *Model) renderFrameStats(s *strings.Builder) {
	if m.renderState.TotalFrames == 0 {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Starting render..."))
		s.WriteString("\n")
		return
	}

	frac := float64(m.renderState.Frame) / float64(m.renderState.TotalFrames)

	elapsed := m.renderState.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(m.startTime)
	}

	var estimatedTotal, eta time.Duration
	var speed float64
	if frac > 0 {
		estimatedTotal = time.Duration(float64(elapsed) / frac)
		eta = estimatedTotal - elapsed
		if m.fps > 0 && elapsed > 0 {
			videoRendered := time.Duration(m.renderState.Frame) * time.Second / time.Duration(m.fps)
			speed = float64(videoRendered) / float64(elapsed)
		}
	}

	s.WriteString(lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("Time: %s / %s  │  Speed: %.1fx realtime  │  ETA: %s",
			formatDuration(elapsed),
			formatDuration(estimatedTotal),
			speed,
			formatDuration(eta))))
	s.WriteString("\n")

	s.WriteString(lipgloss.NewStyle().Faint(true).Italic(true).Render(
		fmt.Sprintf("Frame %d of %d", m.renderState.Frame, m.renderState.TotalFrames)))
	s.WriteString("\n")
}

func (m *Model) renderComplete() string {
	var s strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.GlowCyan).
		Render("✓ Video Complete!")

	s.WriteString(title)
	s.WriteString("\n\n")

	dimLabel := lipgloss.NewStyle().Faint(true)

	c := m.complete
	s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Output:   "), c.OutputPath))
	s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Encoder:  "), c.Codec))
	s.WriteString(fmt.Sprintf("%s%d frames at %d×%d\n",
		dimLabel.Render("Video:    "), c.FrameCount, c.Width, c.Height))
	s.WriteString(fmt.Sprintf("%s%.1fs video in %s\n",
		dimLabel.Render("Duration: "), c.VideoDuration.Seconds(), formatDuration(c.TotalTime)))
	if c.FileSize > 0 {
		s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Size:     "), formatBytes(c.FileSize)))
	}

	var speed float64
	if c.TotalTime > 0 {
		speed = float64(c.VideoDuration) / float64(c.TotalTime)
	}
	s.WriteString(fmt.Sprintf("%s%.1fx realtime", dimLabel.Render("Speed:    "), speed))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.GlowAqua).
		Padding(1, 1).
		Render(s.String()) + "\n"
}

// Helper functions

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatBytes(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// renderSpectrum draws a two-row block-character preview of the bar
// amplitudes, coloured deep blue to bright cyan by height. Amplitudes
// arrive already in [0, 1] and are clamped, never renormalized, so
// quiet frames look quiet.
func renderSpectrum(amplitudes []float64, width int) string {
	if len(amplitudes) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// Glow gradient colours from low to high intensity
	glowColors := []lipgloss.Color{
		"#191970", // Midnight blue
		"#4169E1", // Royal blue
		"#1E90FF", // Dodger blue
		"#00BFFF", // Deep sky blue
		"#00CED1", // Dark turquoise
		"#48D1CC", // Medium turquoise
		"#40E0D0", // Turquoise
		"#00FFFF", // Cyan
	}

	// Sample bars to fit width
	stride := len(amplitudes) / width
	if stride == 0 {
		stride = 1
	}

	display := make([]float64, 0, width)
	for i := 0; i < len(amplitudes) && len(display) < width; i += stride {
		a := amplitudes[i]
		if a < 0 {
			a = 0
		} else if a > 1 {
			a = 1
		}
		display = append(display, a)
	}

	colorFor := func(a float64) lipgloss.Color {
		idx := int(a * float64(len(glowColors)-1))
		if idx >= len(glowColors) {
			idx = len(glowColors) - 1
		}
		return glowColors[idx]
	}

	var top, bottom strings.Builder

	// Top row shows the portion of each bar above half height
	for _, a := range display {
		if a > 0.5 {
			blockIdx := int((a - 0.5) * 2 * float64(len(blocks)-1))
			if blockIdx >= len(blocks) {
				blockIdx = len(blocks) - 1
			}
			top.WriteString(lipgloss.NewStyle().
				Foreground(colorFor(a)).
				Render(string(blocks[blockIdx])))
		} else {
			top.WriteString(" ")
		}
	}

	// Bottom row fills completely once a bar reaches half height
	for _, a := range display {
		blockIdx := len(blocks) - 1
		if a < 0.5 {
			blockIdx = int(a * 2 * float64(len(blocks)-1))
			if blockIdx >= len(blocks) {
				blockIdx = len(blocks) - 1
			}
		}
		bottom.WriteString(lipgloss.NewStyle().
			Foreground(colorFor(a)).
			Render(string(blocks[blockIdx])))
	}

	return top.String() + "\n" + bottom.String()
}
