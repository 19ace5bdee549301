// Package log provides slog loggers that mask secrets before they are written.
//
// SecureHandler wraps any slog.Handler and sanitizes every attribute:
//   - values of sensitive keys (authorization, password, token, ...) are replaced
//   - bearer tokens, JWTs and private key blocks are replaced wherever they appear
//   - passwords embedded in URLs are masked, so
//     redis://:hunter2@cache:6379/0 is logged as redis://:***@cache:6379/0
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Info("connecting to result store", "url", cfg.RedisURL)
package log
