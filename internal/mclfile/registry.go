// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

// Package mclfile reads and writes the .mcl container files the library
// persists its models in: a single opaque blob per file, transparently
// gzip-compressed and/or enciphered based on a 3-byte signature. A Registry
// caches decoded files per path and invalidates entries when the file on
// disk changes. Serializer layers a versioned JSON model on top.
package mclfile

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/avalekseev/msnab/internal/logger"
)

// registryCacheSize bounds the number of decoded files kept in memory.
const registryCacheSize = 64

// File is the decoded content of one stored blob. Recovered is set when the
// file existed but could not be decoded, in which case Content is empty and
// Reason explains what was lost; callers proceed as if the file were absent.
type File struct {
	Path     string
	Encoding Encoding
	Content  []byte

	Recovered bool
	Reason    error
}

type cacheEntry struct {
	file    *File
	modTime time.Time
}

// Registry owns the process-wide decoded-file cache. It is constructed once
// at startup and passed to every component that persists state, which keeps
// the cache's lifetime explicit and testable instead of hiding it in package
// globals. All methods are safe for concurrent use.
type Registry struct {
	fs    afero.Fs
	clock clockwork.Clock
	log   *logger.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, cacheEntry]
}

// NewRegistry constructs a Registry over fs. Tests pass afero.NewMemMapFs()
// and a fake clock; production callers use afero.NewOsFs() and a real one.
func NewRegistry(fs afero.Fs, clock clockwork.Clock, log *logger.Logger) *Registry {
	cache, _ := lru.New[string, cacheEntry](registryCacheSize)
	return &Registry{fs: fs, clock: clock, log: log, cache: cache}
}

// Clock returns the clock the registry was constructed with.
func (r *Registry) Clock() clockwork.Clock { return r.clock }

// Fs returns the filesystem the registry was constructed with.
func (r *Registry) Fs() afero.Fs { return r.fs }

// Open reads and decodes the file at path. The returned File is always
// usable: read or decode failures are logged and yield an empty Content
// with Recovered set, never an error return.
//
// When useCache is true the decoded file is served from the registry cache
// keyed by cleaned path; a cache entry is invalidated and reloaded when the
// file's last-modification time no longer matches the one observed at
// decode time.
func (r *Registry) Open(path string, enc Encoding, password string, useCache bool) *File {
	key := filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if useCache {
		if entry, ok := r.cache.Get(key); ok {
			if info, err := r.fs.Stat(key); err == nil && info.ModTime().Equal(entry.modTime) {
				return entry.file
			}
			r.cache.Remove(key)
		}
	}

	file := r.read(key, enc, password)
	if useCache {
		if info, err := r.fs.Stat(key); err == nil {
			r.cache.Add(key, cacheEntry{file: file, modTime: info.ModTime()})
		}
	}
	return file
}

func (r *Registry) read(path string, enc Encoding, password string) *File {
	raw, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			// First run: no file yet, empty content, nothing recovered.
			return &File{Path: path, Encoding: enc}
		}
		r.log.Warn().Err(err).Str("path", path).Msg("mcl read failed, starting from empty state")
		return &File{Path: path, Encoding: enc, Recovered: true, Reason: ErrReadFailed}
	}

	payload, detected, err := decode(raw, password)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("mcl decode failed, starting from empty state")
		return &File{Path: path, Encoding: enc, Recovered: true, Reason: ErrDecodeFailed}
	}

	return &File{Path: path, Encoding: detected, Content: payload}
}

// Save encodes content per enc and replaces the file at path wholesale. A
// read-only file is made writable first. On success the cache entry is
// refreshed so subsequent cached opens see the new content without a
// re-read.
func (r *Registry) Save(path string, content []byte, enc Encoding, password string) error {
	key := filepath.Clean(path)

	raw, err := encode(content, enc, password)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(key); dir != "." {
		if err = r.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if info, statErr := r.fs.Stat(key); statErr == nil && info.Mode()&0o200 == 0 {
		if err = r.fs.Chmod(key, info.Mode()|0o200); err != nil {
			return err
		}
	}

	if err = afero.WriteFile(r.fs, key, raw, 0o600); err != nil {
		return err
	}

	if info, statErr := r.fs.Stat(key); statErr == nil {
		r.cache.Add(key, cacheEntry{
			file:    &File{Path: key, Encoding: enc, Content: content},
			modTime: info.ModTime(),
		})
	}
	return nil
}

// ModTime reports the file's last-modification time, or the zero time when
// the file does not exist.
func (r *Registry) ModTime(path string) time.Time {
	info, err := r.fs.Stat(filepath.Clean(path))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Remove deletes the file at path and drops its cache entry. A missing file
// is not an error.
func (r *Registry) Remove(path string) error {
	key := filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Remove(key)
	if err := r.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
