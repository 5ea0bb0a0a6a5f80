package config

import "errors"

var (
	ErrInvalidAccountConfigs = errors.New("invalid account configs")
	ErrInvalidStorageConfigs = errors.New("invalid storage configs")
	ErrInvalidRemoteConfigs  = errors.New("invalid remote configs")
)
