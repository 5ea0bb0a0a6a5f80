// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package mclfile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avalekseev/msnab/internal/logger"
)

// saveDebounce coalesces rapid repeated saves: an unforced Save is skipped
// when the target file was written within this window.
const saveDebounce = 5 * time.Second

// envelope wraps a serialized model with its schema version tag.
type envelope[T any] struct {
	Version string `json:"version"`
	Model   *T     `json:"model"`
}

// LoadResult is the outcome of loading a model from disk. Model is always
// non-nil and usable. Recovered distinguishes "fresh install" (false, empty
// model, no file) from "something was lost" (true, empty model, Reason says
// why): schema drift, decode failure or structural corruption.
type LoadResult[T any] struct {
	Model     *T
	Recovered bool
	Reason    error
}

// Serializer persists one model type to one file through a Registry,
// tagging it with a schema version and checking that tag on load.
type Serializer[T any] struct {
	reg      *Registry
	path     string
	enc      Encoding
	password string
	version  string
	log      *logger.Logger
}

// NewSerializer constructs a Serializer writing to path with the given
// encoding flags and password. version is the expected schema version; a
// stored model tagged differently is discarded on load.
func NewSerializer[T any](reg *Registry, path string, enc Encoding, password, version string, log *logger.Logger) *Serializer[T] {
	return &Serializer[T]{reg: reg, path: path, enc: enc, password: password, version: version, log: log}
}

// Path returns the file path the serializer persists to.
func (s *Serializer[T]) Path() string { return s.path }

// Load reads, decodes and structurally deserializes the model. It never
// fails: any loss (unreadable file, wrong password, schema drift, malformed
// structure) is logged, reported via the Recovered/Reason fields and
// replaced by a freshly constructed default-initialized model.
func (s *Serializer[T]) Load(useCache bool) LoadResult[T] {
	file := s.reg.Open(s.path, s.enc, s.password, useCache)
	if file.Recovered {
		return LoadResult[T]{Model: new(T), Recovered: true, Reason: file.Reason}
	}
	if len(file.Content) == 0 {
		return LoadResult[T]{Model: new(T)}
	}

	var env envelope[T]
	if err := json.Unmarshal(file.Content, &env); err != nil || env.Model == nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("stored model corrupted, starting from empty state")
		return LoadResult[T]{Model: new(T), Recovered: true, Reason: ErrModelCorrupted}
	}

	if env.Version != s.version {
		s.log.Warn().
			Str("path", s.path).
			Str("stored", env.Version).
			Str("expected", s.version).
			Msg("stored model schema version mismatch, starting from empty state")
		return LoadResult[T]{Model: new(T), Recovered: true, Reason: ErrSchemaVersion}
	}

	return LoadResult[T]{Model: env.Model}
}

// Save serializes model and writes it through the registry. Unless force is
// set, a save within saveDebounce of the file's last write is skipped so
// that bursts of mutations coalesce into one write.
func (s *Serializer[T]) Save(model *T, force bool) error {
	if !force {
		if mod := s.reg.ModTime(s.path); !mod.IsZero() && s.reg.Clock().Now().Sub(mod) < saveDebounce {
			return nil
		}
	}

	payload, err := json.Marshal(envelope[T]{Version: s.version, Model: model})
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err = s.reg.Save(s.path, payload, s.enc, s.password); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Delete removes the persisted file, used when local state is discarded for
// a full resynchronization.
func (s *Serializer[T]) Delete() error {
	return s.reg.Remove(s.path)
}
