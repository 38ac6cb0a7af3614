// CLAUDE:SUMMARY extractd configuration: YAML file with env-var overrides and defaults.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the optional config file. Every field has
// an env-var override; env wins.
type fileConfig struct {
	Port         string `yaml:"port"`
	JobsDB       string `yaml:"jobs_db"`
	AuthToken    string `yaml:"auth_token"`
	MaxBody      int64  `yaml:"max_body"`
	Workers      int    `yaml:"workers"`
	JobWorkers   int    `yaml:"job_workers"`
	LogLevel     string `yaml:"log_level"`
	MCPTransport string `yaml:"mcp_transport"`
	Tesseract    string `yaml:"tesseract"`
	Ghostscript  string `yaml:"ghostscript"`
	// JobRetention is how long finished jobs stay queryable before the
	// purge sweep deletes them.
	JobRetention time.Duration `yaml:"job_retention"`
}

func (c *fileConfig) defaults() {
	if c.Port == "" {
		c.Port = "8087"
	}
	if c.JobsDB == "" {
		c.JobsDB = "db/jobs.db"
	}
	if c.MaxBody <= 0 {
		c.MaxBody = 32 << 20
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.JobRetention <= 0 {
		c.JobRetention = 24 * time.Hour
	}
}

// loadConfig reads the YAML file named by CONFIG_FILE (if any), then applies
// env overrides and defaults.
func loadConfig() (fileConfig, error) {
	var cfg fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = env("PORT", cfg.Port)
	cfg.JobsDB = env("JOBS_DB", cfg.JobsDB)
	cfg.AuthToken = env("AUTH_TOKEN", cfg.AuthToken)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.MCPTransport = env("MCP_TRANSPORT", cfg.MCPTransport)
	cfg.Tesseract = env("TESSERACT_PATH", cfg.Tesseract)
	cfg.Ghostscript = env("GHOSTSCRIPT_PATH", cfg.Ghostscript)
	if v := os.Getenv("MAX_BODY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxBody = n
		}
	}
	if v := os.Getenv("EXTRACT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("JOB_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JobWorkers = n
		}
	}
	if v := os.Getenv("JOB_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.JobRetention = d
		}
	}

	cfg.defaults()
	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
