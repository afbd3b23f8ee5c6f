// Package transcoder runs encode attempts through ffmpeg.
//
// DetectCapabilities lists the encoders of the local ffmpeg build once at
// startup and picks a hardware accelerator (NVENC, Quick Sync, VA-API or
// VideoToolbox). FFmpeg.Encode maps an attempt to a command line, runs it
// under the attempt's context and reports the tail of ffmpeg's stderr when
// it fails. Router dispatches attempts between ffmpeg and the in-process
// still image encoder.
//
// ffmpeg must be installed; FFMPEG_PATH overrides the binary location.
package transcoder
