package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/flagx"
	"github.com/dmitrijs2005/civicreport/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "zero" so a partial file only overrides
// what it names.
type JsonConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr"`
	ChatbotURL          *string         `json:"chatbot_url"`
	DatabasePath        *string         `json:"db_path"`
	RoutesFile          *string         `json:"routes_file"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	Debug               *bool           `json:"debug"`
}

// parseJson overlays cfg with the file named by -c/-config or
// $CIVIC_CONFIG. It panics on read or decode errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.ChatbotURL != nil {
		cfg.ChatbotURL = *jc.ChatbotURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.RoutesFile != nil {
		cfg.RoutesFile = *jc.RoutesFile
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.Debug != nil {
		cfg.Debug = *jc.Debug
	}
}
