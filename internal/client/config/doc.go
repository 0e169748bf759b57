// Package config loads runtime configuration for the TaskKeeper client.
//
// Sources, in increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Environment variables prefixed with TASKKEEPER_. A .env file in the
//     working directory is loaded first when present.
//  4. Command-line flags.
//
// Flags
//
//	-a string   backend server URL
//	-d string   local database path
//	-i int      session re-check interval (seconds)
//	-t int      request timeout (seconds)
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//
// # File schema
//
// Durations are strings like "5m" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "database_path": "taskkeeper.db",
//	  "auth_check_interval": "5m",
//	  "request_timeout": "10s",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
