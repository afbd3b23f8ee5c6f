package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaType is the coarse category used to pick a conversion cascade.
type MediaType string

const (
	// Video covers moving-picture sources and anything unrecognized.
	Video MediaType = "video"
	// Image covers still-picture sources.
	Image MediaType = "image"
)

// VideoExtensions maps file extensions to whether they are accepted video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".3gp":  true,
}

// ImageExtensions maps file extensions to whether they are accepted image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Converted outputs
	".avif": "image/avif",
	".mp4":  "video/mp4",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",

	// Sources
	".png":  "image/png",
	".heic": "image/heic",
	".heif": "image/heif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".3gp":  "video/3gpp",
}

// Ext returns the lowercase extension of path including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Classify returns the MediaType for a file path based on its extension.
// Unknown extensions classify as Video.
func Classify(path string) MediaType {
	ext := Ext(path)
	if VideoExtensions[ext] {
		return Video
	}
	if ImageExtensions[ext] {
		return Image
	}
	return Video
}

// IsKnown reports whether the extension is on either allow-list.
func IsKnown(path string) bool {
	ext := Ext(path)
	return VideoExtensions[ext] || ImageExtensions[ext]
}

// GetMimeType returns the MIME type for a file path.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(path string) string {
	if mime, ok := MimeTypes[Ext(path)]; ok {
		return mime
	}
	return "application/octet-stream"
}
