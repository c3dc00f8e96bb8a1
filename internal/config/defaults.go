package config

const (
	DefaultManagerURL   = "http://localhost:9681"
	DefaultPollInterval = "5s"
	DefaultTimeout      = "10s"
	DefaultLogLevel     = "info"

	ConfigFileName  = "client.yaml"
	SystemConfigDir = "/etc/batchd"
)

// DefaultConfig returns a Config with all default values applied.
// ManagerURL stays empty; ResolveManagerURL supplies its default.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		LogLevel:     DefaultLogLevel,
	}
}
