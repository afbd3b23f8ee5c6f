// Package logging provides a leveled logging facade for the media converter.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// Messages are written through zerolog. The printf-style helpers cover
// startup and request logging; WithComponent returns a structured child
// logger for code that attaches fields such as job ids.
//
// The level is configured via DEBUG or LOG_LEVEL, the output format via
// LOG_FORMAT ("console" or "json").
package logging
