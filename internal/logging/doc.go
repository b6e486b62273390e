// Package logging assembles structured slog loggers used across stemsep.
//
// It owns the console and JSON handlers, fans records out to an optional
// rotating log file, and exposes context helpers so workflow code can tag log
// lines with the run ID, batch number, and model name. A no-op logger is
// provided for tests and wiring code that cannot fail.
//
// Separator process output is not routed through these loggers; it is relayed
// verbatim by the procstream package so operators see it unmodified.
package logging
