// Package logging configures the process-wide slog logger. Logs go to
// stderr and, when a file is configured, to a size-rotated log file.
// Nothing is ever written to stdout, which the tool server reserves for
// its protocol stream.
package logging
