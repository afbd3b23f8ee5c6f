package encoding

import (
	"time"

	"media-converter/internal/mediatypes"
)

// Tier names a position in the fallback cascade.
type Tier string

const (
	TierHardware  Tier = "hardware"
	TierSoftware  Tier = "software"
	TierUniversal Tier = "universal"
)

// Engine selects which collaborator runs an attempt.
type Engine string

const (
	// EngineFFmpeg runs an ffmpeg process.
	EngineFFmpeg Engine = "ffmpeg"
	// EngineStill runs the in-process still image encoder.
	EngineStill Engine = "still"
)

// Codec families. Hardware attempts name only the family; the transcoder
// picks the concrete encoder for the detected accelerator.
const (
	CodecAV1   = "av1"
	CodecHEVC  = "hevc"
	CodecH264  = "h264"
	CodecMJPEG = "mjpeg"
	CodecJPEG  = "jpeg"
)

// Attempt is one tier of the cascade: what to run and how long it may take.
type Attempt struct {
	Tier   Tier
	Engine Engine
	Codec  string
	// Encoder is the concrete ffmpeg encoder for software and universal
	// tiers, e.g. "libsvtav1". Empty for hardware tiers.
	Encoder string

	VideoBitrate string // -b:v
	MaxRate      string // -maxrate
	BufSize      string // -bufsize
	Preset       string
	// Quality is the CRF for video encoders, q:v for mjpeg and the JPEG
	// quality (1-100) for the still engine. Zero leaves the encoder default.
	Quality      int
	AudioCodec   string
	AudioBitrate string
	// Tag overrides the container codec tag (hvc1 for HEVC in MP4).
	Tag string

	// MaxDimension bounds the longest edge of image output. Zero keeps the
	// source size.
	MaxDimension int

	Timeout   time.Duration
	Extension string // including the dot
	Suffix    string // appended to the source stem
}

// Table maps a policy and media type to an ordered list of attempts.
type Table map[Policy]map[mediatypes.MediaType][]Attempt

// Lookup returns a copy of the attempts for policy and media type.
func (t Table) Lookup(policy Policy, mediaType mediatypes.MediaType) []Attempt {
	byType, ok := t[policy]
	if !ok {
		return nil
	}
	attempts := byType[mediaType]
	if len(attempts) == 0 {
		return nil
	}
	out := make([]Attempt, len(attempts))
	copy(out, attempts)
	return out
}

const (
	videoHardwareTimeout = 30 * time.Minute
	videoSoftwareTimeout = 60 * time.Minute
	imageFastTimeout     = 2 * time.Minute
	imageSoftwareTimeout = 5 * time.Minute

	modernImageMaxDimension = 4096
	legacyImageMaxDimension = 3072
	universalJPEGQuality    = 85
)

// DefaultTable returns the built-in cascade:
// hardware encoder, then software encoder, then a format every client plays.
func DefaultTable() Table {
	universalVideo := Attempt{
		Tier:         TierUniversal,
		Engine:       EngineFFmpeg,
		Codec:        CodecH264,
		Encoder:      "libx264",
		Preset:       "fast",
		VideoBitrate: "5M",
		MaxRate:      "5M",
		BufSize:      "10M",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		Timeout:      videoSoftwareTimeout,
		Extension:    ".mp4",
		Suffix:       "_h264",
	}

	return Table{
		Modern: {
			mediatypes.Video: {
				{
					Tier:         TierHardware,
					Engine:       EngineFFmpeg,
					Codec:        CodecAV1,
					VideoBitrate: "4M",
					MaxRate:      "4M",
					BufSize:      "8M",
					AudioCodec:   "libopus",
					AudioBitrate: "128k",
					Timeout:      videoHardwareTimeout,
					Extension:    ".mp4",
					Suffix:       "_av1",
				},
				{
					Tier:         TierSoftware,
					Engine:       EngineFFmpeg,
					Codec:        CodecAV1,
					Encoder:      "libsvtav1",
					Preset:       "6",
					Quality:      30,
					MaxRate:      "4M",
					BufSize:      "8M",
					AudioCodec:   "libopus",
					AudioBitrate: "128k",
					Timeout:      videoSoftwareTimeout,
					Extension:    ".mp4",
					Suffix:       "_av1",
				},
				universalVideo,
			},
			mediatypes.Image: {
				{
					Tier:         TierHardware,
					Engine:       EngineFFmpeg,
					Codec:        CodecAV1,
					MaxDimension: modernImageMaxDimension,
					Timeout:      imageFastTimeout,
					Extension:    ".avif",
				},
				{
					Tier:         TierSoftware,
					Engine:       EngineFFmpeg,
					Codec:        CodecAV1,
					Encoder:      "libaom-av1",
					Quality:      20,
					MaxDimension: modernImageMaxDimension,
					Timeout:      imageSoftwareTimeout,
					Extension:    ".avif",
				},
				{
					Tier:         TierUniversal,
					Engine:       EngineStill,
					Codec:        CodecJPEG,
					Quality:      universalJPEGQuality,
					MaxDimension: modernImageMaxDimension,
					Timeout:      imageFastTimeout,
					Extension:    ".jpg",
				},
			},
		},
		Legacy: {
			mediatypes.Video: {
				{
					Tier:         TierHardware,
					Engine:       EngineFFmpeg,
					Codec:        CodecHEVC,
					VideoBitrate: "5M",
					MaxRate:      "5M",
					BufSize:      "10M",
					AudioCodec:   "aac",
					AudioBitrate: "128k",
					Tag:          "hvc1",
					Timeout:      videoHardwareTimeout,
					Extension:    ".mp4",
					Suffix:       "_hevc",
				},
				{
					Tier:         TierSoftware,
					Engine:       EngineFFmpeg,
					Codec:        CodecHEVC,
					Encoder:      "libx265",
					Preset:       "medium",
					Quality:      28,
					MaxRate:      "5M",
					BufSize:      "10M",
					AudioCodec:   "aac",
					AudioBitrate: "128k",
					Tag:          "hvc1",
					Timeout:      videoSoftwareTimeout,
					Extension:    ".mp4",
					Suffix:       "_hevc",
				},
				universalVideo,
			},
			mediatypes.Image: {
				{
					Tier:         TierHardware,
					Engine:       EngineFFmpeg,
					Codec:        CodecMJPEG,
					MaxDimension: legacyImageMaxDimension,
					Timeout:      imageFastTimeout,
					Extension:    ".jpg",
				},
				{
					Tier:         TierSoftware,
					Engine:       EngineFFmpeg,
					Codec:        CodecMJPEG,
					Encoder:      "mjpeg",
					Quality:      3,
					MaxDimension: legacyImageMaxDimension,
					Timeout:      imageSoftwareTimeout,
					Extension:    ".jpg",
				},
				{
					Tier:         TierUniversal,
					Engine:       EngineStill,
					Codec:        CodecJPEG,
					Quality:      universalJPEGQuality,
					MaxDimension: legacyImageMaxDimension,
					Timeout:      imageFastTimeout,
					Extension:    ".jpg",
				},
			},
		},
	}
}
