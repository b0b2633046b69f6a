// Package config loads runtime configuration for the gophauth CLI.
//
// Sources, in order of precedence (lowest first):
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or the CONFIG variable.
//  3. Command-line flags -a, -d, -n and -t.
//
// Example file:
//
//	{
//	  "server_url": "https://auth.example.com",
//	  "local_db_path": "/home/me/.gophauth.db",
//	  "device_name": "laptop",
//	  "request_timeout": "15s"
//	}
package config
