package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		problems = append(problems, "server.bind must be set")
	}
	if c.Import.Workers < 1 {
		problems = append(problems, "import.workers must be at least 1")
	}
	if c.Import.JobWorkers < 1 {
		problems = append(problems, "import.job_workers must be at least 1")
	}
	if c.Import.SessionGapMinutes < 0 {
		problems = append(problems, "import.session_gap_minutes cannot be negative")
	}
	if c.Kai.RequestTimeout < 1 {
		problems = append(problems, "kai.request_timeout must be at least 1 second")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
