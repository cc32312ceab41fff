// Package logging wraps log/slog with the console and JSON handlers used by
// the CLI, standardized field names, and helpers for deriving logger fields
// from context values.
package logging
