package model

// Shared limits used by the store, loaders and HTTP layer.
const (
	DefaultMaxUploadEntries = 1000
	DefaultFallbackEntries  = 1000
	DefaultMaxUploadSize    = 50 << 20
	DefaultPageSize         = 50
)
