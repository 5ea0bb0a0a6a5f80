// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// configBuilder collects configuration layers in priority order. The first
// layer to set a field wins; later layers only fill the gaps. Source errors
// accumulate and surface once, at build.
type configBuilder struct {
	layers []*StructuredConfig
	err    error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{layers: make([]*StructuredConfig, 0, 3)}
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	config := new(StructuredConfig)
	for _, layer := range b.layers {
		if err := mergo.Merge(config, layer); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return config, config.validate()
}

// withEnv adds the environment layer. Fields are mapped through the `env`
// and `envPrefix` tags on [StructuredConfig] and its nested types.
func (b *configBuilder) withEnv() *configBuilder {
	layer := &StructuredConfig{}
	if err := env.Parse(layer); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("error getting env configs: %w", err))
		return b
	}
	b.layers = append(b.layers, layer)
	return b
}

func (b *configBuilder) withFlags() *configBuilder {
	b.layers = append(b.layers, ParseFlags())
	return b
}

// withJSON adds the config-file layer when an earlier layer named a file.
// The last layer to name one wins, so a flag path overrides an env path
// only if flags were added later.
func (b *configBuilder) withJSON() *configBuilder {
	var jsonPath string
	for _, layer := range b.layers {
		if layer.JSONFilePath != "" {
			jsonPath = layer.JSONFilePath
		}
	}
	if jsonPath == "" {
		return b
	}

	layer, err := parseJSON(jsonPath)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.layers = append(b.layers, layer)
	return b
}
