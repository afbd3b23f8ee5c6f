package transcoder

import (
	"fmt"
	"strconv"
	"strings"

	"media-converter/internal/encoding"
)

const defaultVAAPIDevice = "/dev/dri/renderD128"

// buildArgs assembles the ffmpeg command line for one attempt.
func buildArgs(req encoding.Request, encoder string, accel Accelerator, vaapiDevice string) []string {
	a := req.Attempt
	hw := a.Tier == encoding.TierHardware

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostdin"}

	if hw {
		switch accel {
		case AccelVAAPI:
			if vaapiDevice == "" {
				vaapiDevice = defaultVAAPIDevice
			}
			args = append(args, "-vaapi_device", vaapiDevice)
		case AccelNVIDIA:
			args = append(args, "-hwaccel", "cuda")
		}
	}

	args = append(args, "-i", req.Input)

	if isImageOutput(a) {
		args = append(args, imageArgs(a, encoder, hw && accel == AccelVAAPI)...)
	} else {
		args = append(args, videoArgs(a, encoder, hw && accel == AccelVAAPI)...)
	}

	return append(args, req.Output)
}

func videoArgs(a encoding.Attempt, encoder string, vaapi bool) []string {
	args := []string{"-map", "0:v:0", "-map", "0:a:0?", "-c:v", encoder}

	if vaapi {
		args = append(args, "-vf", "format=nv12,hwupload")
	} else {
		args = append(args, "-pix_fmt", "yuv420p")
	}
	if a.Preset != "" {
		args = append(args, "-preset", a.Preset)
	}
	if a.Quality > 0 {
		args = append(args, "-crf", strconv.Itoa(a.Quality))
	}
	if a.VideoBitrate != "" {
		args = append(args, "-b:v", a.VideoBitrate)
	}
	if a.MaxRate != "" {
		args = append(args, "-maxrate", a.MaxRate)
	}
	if a.BufSize != "" {
		args = append(args, "-bufsize", a.BufSize)
	}
	if a.Tag != "" {
		args = append(args, "-tag:v", a.Tag)
	}

	if a.AudioCodec != "" {
		args = append(args, "-c:a", a.AudioCodec)
		if a.AudioBitrate != "" {
			args = append(args, "-b:a", a.AudioBitrate)
		}
	} else {
		args = append(args, "-an")
	}

	if strings.EqualFold(a.Extension, ".mp4") {
		args = append(args, "-movflags", "+faststart")
	}
	return args
}

func imageArgs(a encoding.Attempt, encoder string, vaapi bool) []string {
	args := []string{"-frames:v", "1"}

	var filters []string
	if a.MaxDimension > 0 {
		filters = append(filters, scaleFilter(a.MaxDimension))
	}
	if vaapi {
		filters = append(filters, "format=nv12", "hwupload")
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	args = append(args, "-c:v", encoder)

	switch a.Codec {
	case encoding.CodecAV1:
		if !vaapi {
			args = append(args, "-pix_fmt", "yuv420p")
		}
		if encoder == "libaom-av1" {
			args = append(args, "-still-picture", "1")
		}
		if a.Quality > 0 {
			args = append(args, "-crf", strconv.Itoa(a.Quality))
		}
	case encoding.CodecMJPEG:
		if !vaapi {
			args = append(args, "-pix_fmt", "yuvj420p")
		}
		if a.Quality > 0 {
			args = append(args, "-q:v", strconv.Itoa(a.Quality))
		}
		args = append(args, "-update", "1")
	}
	return args
}

// scaleFilter bounds both edges to limit while keeping the aspect ratio and
// never upscaling.
func scaleFilter(limit int) string {
	return fmt.Sprintf("scale=w='min(iw,%d)':h='min(ih,%d)':force_original_aspect_ratio=decrease:force_divisible_by=2", limit, limit)
}

func isImageOutput(a encoding.Attempt) bool {
	switch strings.ToLower(a.Extension) {
	case ".avif", ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}
