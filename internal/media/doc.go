// Package media holds the in-process image handling used by the universal
// image tier.
//
// StillEncoder decodes a still with libvips when available (this is the only
// path that reads HEIC/HEIF) and with imaging plus the golang.org/x/image
// decoders otherwise, applies EXIF orientation, fits it inside the attempt's
// MaxDimension and writes a JPEG atomically.
//
// libvips is process global: call InitVips once at startup and ShutdownVips
// on exit.
package media
