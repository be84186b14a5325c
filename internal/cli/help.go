package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles - glow theme
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(GlowCyan).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(GlowAqua).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(GlowAqua).
				MarginTop(1)

	helpCommandStyle = lipgloss.NewStyle().
				Foreground(GlowBlue).
				Bold(true)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(GlowCyan).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(GlowIndigo).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(CoolGray).
				Italic(true)
)

// StyledHelpPrinter creates a custom help printer with Lipgloss styling.
// Help for the root shows the command list; help for a command shows its
// arguments and flags.
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return kong.HelpPrinter(func(options kong.HelpOptions, ctx *kong.Context) error {
		node := ctx.Selected()
		if node == nil {
			node = ctx.Model.Node
		}

		var sb strings.Builder

		// Title and description
		sb.WriteString(helpTitleStyle.Render("Soundglow ✨"))
		sb.WriteString("\n")
		desc := node.Help
		if node == ctx.Model.Node {
			desc = ctx.Model.Help
		}
		if desc != "" {
			sb.WriteString(helpDescStyle.Render(desc))
			sb.WriteString("\n")
		}

		// Usage
		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usageLine(ctx, node))
		sb.WriteString("\n")

		// Commands section (root help only)
		cmds := getCommands(node)
		if len(cmds) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Commands:"))
			sb.WriteString("\n")
			for _, cmd := range cmds {
				sb.WriteString("  ")
				sb.WriteString(helpCommandStyle.Render(fmt.Sprintf("%-10s", cmd.name)))
				if cmd.help != "" {
					sb.WriteString("  ")
					sb.WriteString(cmd.help)
				}
				sb.WriteString("\n")
			}
		}

		// Arguments section
		args := getArguments(node)
		if len(args) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Arguments:"))
			sb.WriteString("\n")
			for _, arg := range args {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(arg.name))
				if arg.help != "" {
					sb.WriteString("  ")
					sb.WriteString(arg.help)
				}
				sb.WriteString("\n")
			}
		}

		// Flags section
		flags := getFlags(ctx, node)
		if len(flags) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Flags:"))
			sb.WriteString("\n")
			for _, flag := range flags {
				sb.WriteString("  ")
				sb.WriteString(helpFlagStyle.Render(flag.flags))
				if flag.help != "" {
					sb.WriteString("  ")
					sb.WriteString(flag.help)
				}
				if flag.defaultVal != "" {
					sb.WriteString(" ")
					sb.WriteString(helpDefaultStyle.Render("(default: " + flag.defaultVal + ")"))
				}
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	})
}

type command struct {
	name string
	help string
}

type argument struct {
	name string
	help string
}

type flag struct {
	flags      string
	help       string
	defaultVal string
}

func usageLine(ctx *kong.Context, node *kong.Node) string {
	parts := []string{ctx.Model.Name}
	if node != ctx.Model.Node && node.Name != "" {
		parts = append(parts, node.Name)
	}
	for _, pos := range node.Positional {
		parts = append(parts, pos.Summary())
	}
	if len(node.Children) > 0 {
		parts = append(parts, "<command>")
	}
	parts = append(parts, "[flags]")
	return strings.Join(parts, " ")
}

func getCommands(node *kong.Node) []command {
	var cmds []command

	for _, child := range node.Children {
		if child.Type != kong.CommandNode || child.Hidden {
			continue
		}
		cmds = append(cmds, command{name: child.Name, help: child.Help})
	}

	return cmds
}

func getArguments(node *kong.Node) []argument {
	var args []argument

	// Parse arguments from the selected node
	for _, arg := range node.Positional {
		name := arg.Summary()
		help := arg.Help
		args = append(args, argument{name: name, help: help})
	}

	return args
}

func getFlags(ctx *kong.Context, node *kong.Node) []flag {
	// Always include help flag
	flags := []flag{{
		flags: "-h, --help",
		help:  "Show context-sensitive help.",
	}}
	seen := map[string]bool{"help": true}

	// Root flags first, then the selected command's own
	for _, group := range [][]*kong.Flag{ctx.Model.Node.Flags, node.Flags} {
		for _, f := range group {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true

			flagStr := ""
			if f.Short != 0 {
				flagStr = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
			} else {
				flagStr = fmt.Sprintf("--%s", f.Name)
			}

			if !f.IsBool() && f.PlaceHolder != "" {
				flagStr += "=" + strings.ToUpper(f.PlaceHolder)
			}

			// Only show default if it's a meaningful value (not empty, not type placeholder)
			defaultVal := ""
			if f.HasDefault && !f.IsBool() {
				val := f.Default
				if val != "" && val != "STRING" && val != "BOOL" {
					defaultVal = val
				}
			}

			flags = append(flags, flag{
				flags:      flagStr,
				help:       f.Help,
				defaultVal: defaultVal,
			})
		}
	}

	return flags
}
