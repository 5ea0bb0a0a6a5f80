package mclfile

import "errors"

// Sentinel errors reported through File.Reason and LoadResult.Reason.
// Callers should use [errors.Is] to match against these values.
var (
	// ErrDecodeFailed is reported when the file was present but its payload
	// could not be decoded (wrong password, tampered bytes, truncation).
	// The caller receives an empty payload and proceeds as on first run.
	ErrDecodeFailed = errors.New("mcl file could not be decoded")

	// ErrReadFailed is reported when the file could not be read at all
	// (permissions, transient I/O). Treated the same as an absent file.
	ErrReadFailed = errors.New("mcl file could not be read")

	// ErrSchemaVersion is reported when a stored model carries a schema
	// version different from the one the library expects. The caller
	// receives a fresh empty model and should run a full resynchronization.
	ErrSchemaVersion = errors.New("stored model schema version mismatch")

	// ErrModelCorrupted is reported when the payload decoded fine but the
	// structural deserialization of the model failed.
	ErrModelCorrupted = errors.New("stored model could not be deserialized")
)
