package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration.
func Default() Config {
	dataDir := "data"
	logDir := "logs"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "encore")
		logDir = filepath.Join(dataDir, "logs")
	}

	return Config{
		Paths: Paths{
			DataDir: dataDir,
			LogDir:  logDir,
		},
		Server: Server{
			Bind:         "127.0.0.1:8443",
			AllowOrigins: []string{},
		},
		Kai: Kai{
			RequestTimeout: 30,
		},
		Events: Events{
			Channel: "encore:events",
		},
		Import: Import{
			Workers:    8,
			JobWorkers: 2,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
