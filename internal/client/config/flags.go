package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   address and port of the backend server
//	-u string   chatbot API base URL
//	-d string   local database file
//	-r string   routing table file
//	-i int      online check interval in seconds
//	-debug      debug logging
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-u", "-d", "-r", "-i", "-debug"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.ChatbotURL, "u", cfg.ChatbotURL, "chatbot API base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.RoutesFile, "r", cfg.RoutesFile, "routing table (YAML)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
