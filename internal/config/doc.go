// Package config provides configuration management for the grid export
// service. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern GRIDEXPORT_<SECTION>_<FIELD>:
//
//	GRIDEXPORT_SERVER_PORT=8080
//	GRIDEXPORT_LOGGING_LEVEL=debug
//	GRIDEXPORT_EXPORT_READY_TIMEOUT=2s
//	GRIDEXPORT_EXPORT_PRIMARY_FIELD=profileName
//	GRIDEXPORT_RENDERER_CHROME_PATH=/usr/bin/chromium
//
// # Configuration File
//
// The file is taken from GRIDEXPORT_CONFIG_FILE, or the first of
// config.yaml and configs/config.yaml that exists:
//
//	export:
//	  output_dir: exports
//	  ready_timeout: 2s
//	renderer:
//	  landscape: true
//	  scale: 0.9
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	addr := cfg.Server.Address()
package config
