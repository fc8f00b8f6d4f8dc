package config

const (
	defaultEndpoint  = "ws://127.0.0.1:8000/ws"
	defaultRetryMS   = 3000
	defaultReadLimit = 1 << 20
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Endpoint:  defaultEndpoint,
			RetryMS:   defaultRetryMS,
			ReadLimit: defaultReadLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Stdout: false,
			File:   "webpilot.log",
		},
	}
}
