// Package log builds slog loggers that redact personal data and key
// material before it reaches the log output.
//
// Pseudonymization runs handle exactly the data that must never be logged:
// original cell values, recognized entities, plaintext read back from
// encrypted mappings and hex-encoded secret keys. SecureHandler wraps any
// slog.Handler and masks attributes by key name (original, plaintext,
// secret_key, key_hex, value, ...) and by value shape (hex keys, e-mail
// addresses, phone numbers, PEM blocks). Verbose mode only lowers the level;
// masking stays on.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("column pseudonymized",
//	    "column", "Name",
//	    "original", "Alice", // written as ***REDACTED***
//	)
package log
