// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the msnab
// client. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, and an optional
// JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Account holds the owner's sign-in identity and the password protecting
	// the local files.
	Account Account `envPrefix:"ACCOUNT_"`

	// Storage holds the local file-store settings: directory, at-rest
	// encoding and read-cache usage.
	Storage Storage `envPrefix:"STORAGE_"`

	// Remote holds the contact-service endpoint settings.
	Remote Remote `envPrefix:"REMOTE_"`

	// Workers holds background synchronization job settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// Log holds logging settings.
	Log Log `envPrefix:"LOG_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Account identifies the owner whose contact list is mirrored.
type Account struct {
	// Email is the owner's sign-in address.
	// Env: ACCOUNT_EMAIL
	Email string `env:"EMAIL"`

	// Password protects the encoded files on disk; it feeds key derivation
	// for the encrypting encodings. May be empty for unencrypted storage.
	// Env: ACCOUNT_PASSWORD
	Password string `env:"PASSWORD"`
}

// Storage holds the settings of the local encoded file store.
type Storage struct {
	// Dir is the directory the addressbook and deltas files live in.
	// Env: STORAGE_DIR
	Dir string `env:"DIR"`

	// Encoding selects the at-rest layout: "none", "compress", "encrypt",
	// "compress+encrypt" or "sealed".
	// Env: STORAGE_ENCODING
	Encoding string `env:"ENCODING"`

	// UseCache enables the process-wide read cache of decoded files.
	// Env: STORAGE_USE_CACHE
	UseCache bool `env:"USE_CACHE"`
}

// Remote holds the contact-service endpoint settings.
type Remote struct {
	// Address is the contact service base URL or host.
	// Env: REMOTE_ADDRESS
	Address string `env:"ADDRESS"`

	// RequestTimeout bounds a single outbound request (e.g. "30s", "1m").
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds background synchronization settings.
type Workers struct {
	// SyncInterval defines how often the periodic sync job runs. Zero
	// disables the periodic job (one-shot synchronization only).
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// Log holds logging settings.
type Log struct {
	// Level is the minimum zerolog level ("debug", "info", "warn", ...).
	// Env: LOG_LEVEL
	Level string `env:"LEVEL"`

	// File, when non-empty, redirects log output to the given path instead
	// of the console.
	// Env: LOG_FILE
	File string `env:"FILE"`
}

// GetStructuredConfig loads, merges, and validates the client configuration
// from all available sources in the following priority order (first source
// wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
