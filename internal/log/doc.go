// Package log provides the slog handler used by the htmlcs CLI.
//
// Build tools print short, timestamped lines rather than key=value records,
// so ConsoleHandler renders each record as
//
//	[15:04:05] message key=value key=value
//
// and is otherwise a plain slog.Handler.
package log
