// Package config loads and validates coverseer configuration.
//
// Settings come from a YAML file, overridden field by field with
// COVERSEER_* environment variables, with defaults filling the rest.
// The tool runs with zero configuration: an empty path yields
// defaults, so `coverseer <command>` works without any file on disk.
// Sensitive values (broker passwords, InfluxDB tokens) should be set
// via environment variables rather than the file.
//
// Loading happens once at startup; nothing re-reads the file while
// supervision runs.
//
//	cfg, err := config.Load("coverseer.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Oracle.Model)
package config
