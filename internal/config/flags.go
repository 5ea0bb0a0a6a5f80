package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-account owner sign-in address
//	-password password protecting the local files
//	-storage-dir local file store directory
//	-encoding at-rest encoding (none|compress|encrypt|compress+encrypt|sealed)
//	-use-cache enable the decoded-file read cache
//	-a contact service base URL
//	-request-timeout outbound request timeout (e.g., "30s", "1m")
//	-sync-interval periodic sync interval, 0 for one-shot
//	-log-level minimum log level
//	-log-file log file path (console when empty)
//	-c/-config json file path with configs
func ParseFlags() *StructuredConfig {
	var account string
	var password string
	var storageDir string
	var encoding string
	var useCache bool
	var serviceAddress string
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var logLevel string
	var logFile string
	var jsonConfigPath string

	flag.StringVar(&account, "account", "", "Owner sign-in address")
	flag.StringVar(&password, "password", "", "Password protecting the local files")
	flag.StringVar(&storageDir, "storage-dir", "", "Local file store directory")
	flag.StringVar(&encoding, "encoding", "", "At-rest encoding (none|compress|encrypt|compress+encrypt|sealed)")
	flag.BoolVar(&useCache, "use-cache", false, "Enable the decoded-file read cache")
	flag.StringVar(&serviceAddress, "a", "", "Contact service base URL")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync interval, 0 for one-shot")
	flag.StringVar(&logLevel, "log-level", "", "Minimum log level")
	flag.StringVar(&logFile, "log-file", "", "Log file path (console when empty)")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	flag.Parse()

	return &StructuredConfig{
		Account: Account{
			Email:    account,
			Password: password,
		},
		Storage: Storage{
			Dir:      storageDir,
			Encoding: encoding,
			UseCache: useCache,
		},
		Remote: Remote{
			Address:        serviceAddress,
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
		},
		Log: Log{
			Level: logLevel,
			File:  logFile,
		},
		JSONFilePath: jsonConfigPath,
	}
}
