package cli

import "github.com/charmbracelet/lipgloss"

// Glow colour palette ✨
// Shared neon theme colours for consistent branding across CLI and TUI
var (
	// Core glow colours (bright to deep)
	GlowCyan   = lipgloss.Color("#00FFFF") // Bright cyan, the default bar colour
	GlowAqua   = lipgloss.Color("#00CED1") // Dark turquoise
	GlowBlue   = lipgloss.Color("#00BFFF") // Deep sky blue
	GlowIndigo = lipgloss.Color("#4169E1") // Royal blue

	// Accent colours
	CoolGray = lipgloss.Color("#5F9EA0") // Cadet blue for subtle text
)
