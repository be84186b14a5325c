package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModel_RenderPhase(t *testing.T) {
	m := NewModel(30)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.Update(RenderProgress{
		Frame:       30,
		TotalFrames: 60,
		Amplitudes:  []float64{0.2, 0.9},
		Elapsed:     2 * time.Second,
	})

	view := m.View()
	if !strings.Contains(view, "Rendering frames") {
		t.Error("render phase view missing its phase label")
	}
	// Halfway through the frames is 5 + 70*0.5 overall.
	if !strings.Contains(view, "40%") {
		t.Errorf("view shows %.0f%%, want the 5-75 band mapping (40%%)", m.overallPct)
	}
	if !strings.Contains(view, "Frame 30 of 60") {
		t.Error("view missing the frame counter")
	}
}

func TestModel_EncodePhaseTransition(t *testing.T) {
	m := NewModel(30)
	m.Update(RenderProgress{Frame: 60, TotalFrames: 60})
	m.Update(EncodeProgress{Percent: 85})

	if m.phase != PhaseEncoding {
		t.Fatalf("phase = %v after EncodeProgress, want PhaseEncoding", m.phase)
	}
	view := m.View()
	if !strings.Contains(view, "Encoding video") {
		t.Error("encode phase view missing its phase label")
	}
	if !strings.Contains(view, "85%") {
		t.Errorf("view shows %.0f%%, want 85%%", m.overallPct)
	}
}

// TestModel_ProgressNeverRegresses guards the encode phase against the
// facade reporting a percent below the frame phase's last value.
func TestModel_ProgressNeverRegresses(t *testing.T) {
	m := NewModel(30)
	m.Update(RenderProgress{Frame: 60, TotalFrames: 60})
	m.Update(EncodeProgress{Percent: 10})

	if m.overallPct != 75 {
		t.Errorf("overall percent dropped to %.0f, want to stay at 75", m.overallPct)
	}
}

func TestModel_CompleteSummary(t *testing.T) {
	m := NewModel(30)
	_, cmd := m.Update(RunComplete{
		OutputPath:    "/tmp/out.mp4",
		FrameCount:    90,
		Width:         1280,
		Height:        720,
		Codec:         "libx264",
		VideoDuration: 3 * time.Second,
		FileSize:      2048,
		TotalTime:     6 * time.Second,
	})

	if cmd == nil {
		t.Error("completion should schedule the quit timer")
	}

	view := m.View()
	for _, want := range []string{"Video Complete", "/tmp/out.mp4", "libx264", "90 frames", "2.0 KB", "0.5x realtime"} {
		if !strings.Contains(view, want) {
			t.Errorf("completion view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderSpectrum(t *testing.T) {
	out := renderSpectrum([]float64{0, 0.25, 0.75, 1}, 4)

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("spectrum has %d rows, want 2", len(lines))
	}
	// Bars above half height fill the bottom row completely.
	if !strings.Contains(lines[1], "█") {
		t.Error("bottom row has no full block for a loud bar")
	}
	// Quiet bars leave the top row empty.
	if !strings.Contains(lines[0], " ") {
		t.Error("top row has no gap for a quiet bar")
	}

	if renderSpectrum(nil, 10) != "" {
		t.Error("empty amplitudes should render nothing")
	}
	if renderSpectrum([]float64{0.5}, 0) != "" {
		t.Error("zero width should render nothing")
	}
}
