package config

import "time"

// Config holds runtime settings for the gophauth CLI.
type Config struct {
	ServerURL      string
	LocalDBPath    string
	DeviceName     string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with values suitable for a local server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:4000"
	c.LocalDBPath = "gophauth.db"
	c.DeviceName = "cli"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig builds a Config from defaults, then the JSON file (if any),
// then command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
