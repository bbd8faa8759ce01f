// Package config loads runtime configuration for the CivicReport terminal
// client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / -config or $CIVIC_CONFIG.
//  3. Environment variables with the CIVIC_ prefix.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-u string   chatbot API base URL
//	-d string   local SQLite file
//	-r string   routing table (YAML)
//	-i int      online status check interval (seconds)
//	-debug      debug logging
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "chatbot_url": "http://127.0.0.1:8080/api",
//	  "db_path": "/home/me/.civicreport/client.db",
//	  "online_check_interval": "3s"
//	}
//
// # Environment
//
//	CIVIC_SERVER_ADDR, CIVIC_CHATBOT_URL, CIVIC_DB_PATH, CIVIC_ROUTES_FILE,
//	CIVIC_ONLINE_CHECK_INTERVAL (Go duration), CIVIC_DEBUG
package config
