package peripheral

import "errors"

// Errors returned by peripheral operations.
var (
	// ErrUnknownResource indicates a resource name the definition does not declare.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrResourceCycle indicates resources that depend on each other.
	ErrResourceCycle = errors.New("resource cycle")

	// ErrInvalidDefinition indicates a definition failed validation.
	ErrInvalidDefinition = errors.New("invalid peripheral definition")

	// ErrUnknownPeripheral indicates the handle is not registered.
	ErrUnknownPeripheral = errors.New("unknown peripheral")

	// ErrManagerClosed indicates the manager no longer accepts registrations.
	ErrManagerClosed = errors.New("peripheral manager closed")
)
