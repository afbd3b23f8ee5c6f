package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"media-converter/internal/encoding"
	"media-converter/internal/logging"
)

// Accelerator is a hardware encoding backend exposed by ffmpeg.
type Accelerator string

const (
	AccelNone         Accelerator = "none"
	AccelNVIDIA       Accelerator = "nvidia"
	AccelVAAPI        Accelerator = "vaapi"
	AccelQSV          Accelerator = "qsv"
	AccelVideoToolbox Accelerator = "videotoolbox"
)

// AccelAuto asks DetectCapabilities to pick the first available accelerator.
const AccelAuto Accelerator = "auto"

// autoOrder is the preference order for AccelAuto.
var autoOrder = []Accelerator{AccelNVIDIA, AccelQSV, AccelVAAPI, AccelVideoToolbox}

// hardwareEncoders maps each accelerator's codec families to ffmpeg encoder names.
var hardwareEncoders = map[Accelerator]map[string]string{
	AccelNVIDIA: {
		encoding.CodecAV1:  "av1_nvenc",
		encoding.CodecHEVC: "hevc_nvenc",
		encoding.CodecH264: "h264_nvenc",
	},
	AccelQSV: {
		encoding.CodecAV1:   "av1_qsv",
		encoding.CodecHEVC:  "hevc_qsv",
		encoding.CodecH264:  "h264_qsv",
		encoding.CodecMJPEG: "mjpeg_qsv",
	},
	AccelVAAPI: {
		encoding.CodecAV1:   "av1_vaapi",
		encoding.CodecHEVC:  "hevc_vaapi",
		encoding.CodecH264:  "h264_vaapi",
		encoding.CodecMJPEG: "mjpeg_vaapi",
	},
	AccelVideoToolbox: {
		encoding.CodecHEVC: "hevc_videotoolbox",
		encoding.CodecH264: "h264_videotoolbox",
	},
}

// ParseAccelerator validates a GPU_ACCEL value.
func ParseAccelerator(s string) (Accelerator, error) {
	switch a := Accelerator(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AccelAuto, nil
	case AccelAuto, AccelNone, AccelNVIDIA, AccelVAAPI, AccelQSV, AccelVideoToolbox:
		return a, nil
	default:
		return AccelNone, fmt.Errorf("unknown accelerator %q (want auto, nvidia, vaapi, qsv, videotoolbox or none)", s)
	}
}

// Capabilities is what the local ffmpeg build can encode with.
type Capabilities struct {
	Accelerator Accelerator
	Encoders    map[string]bool
}

// HardwareEncoder returns the encoder the accelerator offers for a codec family.
func (c Capabilities) HardwareEncoder(codec string) (string, bool) {
	name, ok := hardwareEncoders[c.Accelerator][codec]
	if !ok || !c.Encoders[name] {
		return "", false
	}
	return name, true
}

// HasEncoder reports whether ffmpeg lists the named encoder.
func (c Capabilities) HasEncoder(name string) bool {
	return c.Encoders[name]
}

// DetectCapabilities lists ffmpeg's encoders and resolves the accelerator
// for mode. An explicit mode whose encoders are missing degrades to
// AccelNone. The result is meant to be computed once at startup.
func DetectCapabilities(ctx context.Context, ffmpegPath string, mode Accelerator) (Capabilities, error) {
	caps := Capabilities{Accelerator: AccelNone, Encoders: map[string]bool{}}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return caps, fmt.Errorf("list ffmpeg encoders: %w", err)
	}
	caps.Encoders = parseEncoders(out)

	if mode == AccelNone {
		return caps, nil
	}

	candidates := autoOrder
	if mode != AccelAuto && mode != "" {
		candidates = []Accelerator{mode}
	}

	for _, accel := range candidates {
		for _, name := range hardwareEncoders[accel] {
			if caps.Encoders[name] {
				caps.Accelerator = accel
				logging.Info("Hardware acceleration: %s", accel)
				return caps, nil
			}
		}
	}

	if mode != AccelAuto {
		logging.Warn("Requested accelerator %s has no encoders in this ffmpeg build, using software only", mode)
	}
	return caps, nil
}

// parseEncoders reads `ffmpeg -encoders` output. Encoder lines look like
// " V....D libx264              libx264 H.264 ..." after a "------" separator.
func parseEncoders(out []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	inList := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inList {
			if strings.HasPrefix(line, "---") {
				inList = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}
