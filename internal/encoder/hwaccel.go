package encoder

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// HWAccelType represents a hardware acceleration type
type HWAccelType string

const (
	HWAccelNone         HWAccelType = "none"         // Software encoding (libx264)
	HWAccelAuto         HWAccelType = "auto"         // Auto-detect best available
	HWAccelNVENC        HWAccelType = "nvenc"        // NVIDIA NVENC
	HWAccelQSV          HWAccelType = "qsv"          // Intel Quick Sync Video
	HWAccelVAAPI        HWAccelType = "vaapi"        // VA-API (AMD, Intel, older hardware)
	HWAccelVulkan       HWAccelType = "vulkan"       // Vulkan Video
	HWAccelVideoToolbox HWAccelType = "videotoolbox" // Apple VideoToolbox (macOS)
)

// HWEncoder represents a detected hardware encoder
type HWEncoder struct {
	Name        string      // Encoder name (e.g., "h264_nvenc")
	Type        HWAccelType // Hardware acceleration type
	Available   bool        // Whether hardware is present and working
	Description string      // Human-readable description
	DeviceArgs  []string    // ffmpeg device setup, emitted before the inputs
	FilterArgs  []string    // format/upload chain, replaces the software pix_fmt
}

// encoderSpec defines a hardware encoder configuration for priority
// lists. VA-API and Vulkan only accept hardware surfaces, so their
// entries carry the device and upload-filter arguments; the probe and
// the final encode must both pass them.
type encoderSpec struct {
	name       string
	accelType  HWAccelType
	desc       string
	deviceArgs []string // global ffmpeg args inserted before the input
	filterArgs []string // args inserted after the input, before -c:v
}

// linuxEncoderPriority defines the encoder preference order for Linux
// Priority: nvenc > qsv > vaapi > vulkan > software
// VAAPI is preferred over Vulkan as it has broader hardware support
var linuxEncoderPriority = []encoderSpec{
	{"h264_nvenc", HWAccelNVENC, "NVIDIA NVENC", nil, nil},
	{"h264_qsv", HWAccelQSV, "Intel Quick Sync Video", nil,
		[]string{"-pix_fmt", "nv12"}},
	{"h264_vaapi", HWAccelVAAPI, "VA-API",
		[]string{"-vaapi_device", "/dev/dri/renderD128"},
		[]string{"-vf", "format=nv12,hwupload"}},
	{"h264_vulkan", HWAccelVulkan, "Vulkan Video",
		[]string{"-init_hw_device", "vulkan=vk", "-filter_hw_device", "vk"},
		[]string{"-vf", "format=nv12,hwupload"}},
}

// macOSEncoderPriority defines the encoder preference order for macOS
// Priority: videotoolbox > software
var macOSEncoderPriority = []encoderSpec{
	{"h264_videotoolbox", HWAccelVideoToolbox, "Apple VideoToolbox", nil, nil},
}

// probeTimeout bounds each hardware probe so a wedged driver cannot
// hang startup.
const probeTimeout = 5 * time.Second

// probeEnv silences libva's own logging, which bypasses ffmpeg's
// -loglevel during VA-API probes.
func probeEnv() []string {
	return append(os.Environ(), "LIBVA_MESSAGING_LEVEL=0")
}

// listEncoders asks the ffmpeg binary which encoders were compiled in.
// An encoder missing from this list cannot work no matter the hardware.
func listEncoders(ctx context.Context, ffmpegPath string) map[string]bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders")
	cmd.Env = probeEnv()

	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	available := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// Encoder lines look like " V....D h264_nvenc  NVIDIA ...".
		if len(fields) >= 2 && strings.HasPrefix(fields[0], "V") {
			available[fields[1]] = true
		}
	}
	return available
}

// probeEncoder is the definitive availability test: encode a single
// synthetic frame through the encoder and discard the output. This
// catches encoders that are compiled in but have no working hardware
// behind them.
func probeEncoder(ctx context.Context, ffmpegPath string, spec encoderSpec) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, spec.deviceArgs...)
	args = append(args, "-f", "lavfi", "-i", "color=c=black:s=256x256:r=30:d=0.1")
	args = append(args, spec.filterArgs...)
	args = append(args, "-frames:v", "1", "-c:v", spec.name, "-f", "null", "-")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Env = probeEnv()

	return cmd.Run() == nil
}

// DetectHWEncoders probes for available hardware encoders
// Returns a list of detected encoders in priority order
func DetectHWEncoders(ctx context.Context, ffmpegPath string) []HWEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	var priority []encoderSpec
	switch runtime.GOOS {
	case "darwin":
		priority = macOSEncoderPriority
	default: // Linux and others
		priority = linuxEncoderPriority
	}

	compiled := listEncoders(ctx, ffmpegPath)

	var encoders []HWEncoder
	for _, spec := range priority {
		enc := HWEncoder{
			Name:        spec.name,
			Type:        spec.accelType,
			Description: spec.desc,
			DeviceArgs:  spec.deviceArgs,
			FilterArgs:  spec.filterArgs,
		}
		if compiled[spec.name] {
			enc.Available = probeEncoder(ctx, ffmpegPath, spec)
		}
		encoders = append(encoders, enc)
	}
	return encoders
}

// SelectBestEncoder returns the best available encoder based on priority
// If requestedType is HWAccelAuto, it selects the first available hardware encoder
// If requestedType is HWAccelNone, it returns nil (use software)
// Otherwise, it attempts to use the requested type if available
func SelectBestEncoder(ctx context.Context, ffmpegPath string, requestedType HWAccelType) *HWEncoder {
	if requestedType == HWAccelNone {
		return nil // Explicitly requested software encoding
	}

	encoders := DetectHWEncoders(ctx, ffmpegPath)

	if requestedType == HWAccelAuto {
		for i := range encoders {
			if encoders[i].Available {
				return &encoders[i]
			}
		}
		return nil // No hardware available, fall back to software
	}

	for i := range encoders {
		if encoders[i].Type == requestedType {
			if encoders[i].Available {
				return &encoders[i]
			}
			return nil // Requested type not available
		}
	}

	return nil // Requested type not found
}

// EncoderName maps a selection result to the codec name passed to
// ffmpeg, falling back to software x264.
func EncoderName(enc *HWEncoder) string {
	if enc == nil {
		return "libx264"
	}
	return enc.Name
}

// GetEncoderStatus returns a human-readable status of all hardware encoders
func GetEncoderStatus(ctx context.Context, ffmpegPath string) string {
	encoders := DetectHWEncoders(ctx, ffmpegPath)

	var sb strings.Builder
	sb.WriteString("Hardware Encoder Status:\n")

	for _, enc := range encoders {
		status := "not available"
		if enc.Available {
			status = "available"
		}
		sb.WriteString("  ")
		sb.WriteString(enc.Description)
		sb.WriteString(" (")
		sb.WriteString(enc.Name)
		sb.WriteString("): ")
		sb.WriteString(status)
		sb.WriteString("\n")
	}

	return sb.String()
}
