package config

import "time"

// Operational defaults that do not get an env knob.
const (
	// DefaultHTTPReadHeaderTimeout bounds header parsing only. Response
	// writes stay unbounded because update-all sweeps can run long.
	DefaultHTTPReadHeaderTimeout = 5 * time.Second

	DefaultShutdownTimeout = 10 * time.Second

	DefaultPGMaxConns = 5
	DefaultPGMinConns = 1
)
