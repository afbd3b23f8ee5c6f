// Package mediatypes classifies source files and maps extensions to MIME
// types.
//
// It is a dependency-free foundation imported by the encoding, handler and
// media packages without creating import cycles.
//
// # Classification
//
// Classify is total: every path maps to Video or Image. Extensions on neither
// allow-list are treated as video, so an unexpected container still goes
// through the video cascade instead of being rejected:
//
//	mediatypes.Classify("clip.MOV")  // Video
//	mediatypes.Classify("IMG.heic")  // Image
//	mediatypes.Classify("blob.xyz")  // Video
//
// # MIME Types
//
// GetMimeType picks the Content-Type for converted downloads:
//
//	mediatypes.GetMimeType("out.avif") // "image/avif"
package mediatypes
