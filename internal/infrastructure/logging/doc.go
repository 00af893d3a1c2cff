// Package logging builds the structured logger the rest of coverseer
// shares.
//
// It is a thin layer over log/slog: config picks the level, the format
// (text for terminals, JSON for machines), and the destination, and
// every entry carries service and version fields. Supervisor
// diagnostics default to stderr so they stay separable from the child
// process output echoed at info level.
//
// Configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// Typical use:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting supervision", "command", cmd)
//	logger.Error("oracle unreachable", "error", err)
package logging
