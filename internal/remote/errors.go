package remote

import "errors"

var (
	ErrBadRequest       = errors.New("contact service rejected the request")
	ErrUnauthorized     = errors.New("contact service unauthorized")
	ErrServerError      = errors.New("contact service internal error")
	ErrFullSyncRequired = errors.New("full synchronization required")
)
