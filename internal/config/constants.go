package config

import "time"

// Application constants
const (
	AppName = "Grid Export"

	// EnvPrefix namespaces every environment variable
	EnvPrefix = "GRIDEXPORT"
	// ConfigFileEnv names the variable holding an explicit config file path
	ConfigFileEnv = "GRIDEXPORT_CONFIG_FILE"

	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 45 * time.Second
	DefaultMaxBodyBytes    = 32 << 20

	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	DefaultOutputDir    = "exports"
	DefaultFilePrefix   = "grid-export"
	DefaultReadyTimeout = 2 * time.Second
	DefaultMaxRows      = 100000

	DefaultSheetName = "Export"
	DefaultPDFScale  = 0.9
	DefaultMarginCM  = 0.8

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)
