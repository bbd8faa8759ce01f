package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the CivicReport terminal client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - ChatbotURL: base URL of the HTTP API hosting the assistant.
//   - DatabasePath: local SQLite file holding the remembered session.
//   - RoutesFile: optional YAML routing table replacing the built-in one.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - Debug: log at debug level.
type Config struct {
	ServerEndpointAddr  string        `env:"SERVER_ADDR"`
	ChatbotURL          string        `env:"CHATBOT_URL"`
	DatabasePath        string        `env:"DB_PATH"`
	RoutesFile          string        `env:"ROUTES_FILE"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	Debug               bool          `env:"DEBUG"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.ChatbotURL = "http://127.0.0.1:8080/api"
	c.DatabasePath = defaultDatabasePath()
	c.RoutesFile = ""
	c.OnlineCheckInterval = 3 * time.Second
	c.Debug = false
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".civicreport", "client.db")
	}
	return filepath.Join(home, ".civicreport", "client.db")
}

// Load builds a Config from defaults, then the JSON file, then the
// environment, then args. Later sources take precedence.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}

// LoadConfig is Load over os.Args.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}
