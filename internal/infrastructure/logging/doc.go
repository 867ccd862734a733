// Package logging provides structured logging for the potentiostat service.
//
// It wraps log/slog so every entry carries the service name and build
// version, with JSON output for production and text for development.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//
// Never log secrets, bearer tokens, passwords or one-time token values.
package logging
