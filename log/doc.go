// Package log provides the leveled logging interface used across faqgraph.
//
// Components accept a Logger and fall back to the package-level default
// (see OrDefault). Binaries install a golog-backed logger at start-up:
//
//	logger := log.NewServiceLogger(os.Stderr, "supportbot", log.LogLevelInfo)
//	log.SetDefaultLogger(logger)
//
// Levels, in order of increasing severity: LogLevelDebug, LogLevelInfo,
// LogLevelWarn, LogLevelError. LogLevelNone disables output.
package log
