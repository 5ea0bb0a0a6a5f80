// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package config

import (
	"fmt"
	"strings"
	"time"
)

var knownEncodings = map[string]bool{
	"":                 true,
	"none":             true,
	"compress":         true,
	"encrypt":          true,
	"compress+encrypt": true,
	"sealed":           true,
}

// validate checks that the final merged [StructuredConfig] satisfies the
// client's startup invariants and fills in the defaults for optional
// settings.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Account.Email == "" {
		return fmt.Errorf("%w: account email is required", ErrInvalidAccountConfigs)
	}

	if cfg.Remote.Address == "" {
		return fmt.Errorf("%w: contact service address is required", ErrInvalidRemoteConfigs)
	}
	if cfg.Remote.RequestTimeout == 0 {
		cfg.Remote.RequestTimeout = 30 * time.Second
	}

	encoding := strings.ToLower(strings.TrimSpace(cfg.Storage.Encoding))
	if !knownEncodings[encoding] {
		return fmt.Errorf("%w: unknown encoding %q", ErrInvalidStorageConfigs, cfg.Storage.Encoding)
	}
	if encoding == "" {
		encoding = "compress"
	}
	cfg.Storage.Encoding = encoding

	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "."
	}

	return nil
}
