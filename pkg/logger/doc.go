// Package logger builds the application's slog logger: text output in
// development, JSON in production, with the environment attached to every
// record.
package logger
