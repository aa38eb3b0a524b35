package playlist

import "errors"

// Errors returned by playlist operations.
var (
	// ErrInvalidPlaylist indicates a template failed validation.
	ErrInvalidPlaylist = errors.New("invalid playlist")

	// ErrUnknownPlaylist indicates the handle is not registered.
	ErrUnknownPlaylist = errors.New("unknown playlist")

	// ErrManagerClosed indicates the manager no longer accepts work.
	ErrManagerClosed = errors.New("playlist manager closed")
)
