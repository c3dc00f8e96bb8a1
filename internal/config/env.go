package config

import "os"

// Environment variables read by the client.
const (
	EnvManagerURL = "BATCH_MANAGER_URL"
	EnvUsername   = "BATCH_USERNAME"
	EnvPassword   = "BATCH_PASSWORD"
	EnvLogLevel   = "BATCH_LOG_LEVEL"
)

// envOverrides maps environment variables to config field setters.
// The manager URL is not listed: it has its own precedence in ResolveManagerURL.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: EnvUsername,
		apply: func(c *Config, v string) {
			c.Username = v
		},
	},
	{
		envVar: EnvPassword,
		apply: func(c *Config, v string) {
			c.Password = v
		},
	},
	{
		envVar: EnvLogLevel,
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
