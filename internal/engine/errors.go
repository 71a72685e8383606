package engine

import "errors"

// Sentinel errors for callers to match with errors.Is.
var (
	// ErrNoAnnotation indicates no live annotation exists for the entity.
	ErrNoAnnotation = errors.New("no live annotation for entity")

	// ErrCannotUndo indicates nothing is held for the entity, or its grace
	// window has already lapsed.
	ErrCannotUndo = errors.New("nothing to undo for entity")

	// ErrUnknownEntityKind indicates a kind outside the supported set.
	ErrUnknownEntityKind = errors.New("unknown entity kind")

	// ErrClosed indicates the engine has been shut down.
	ErrClosed = errors.New("annotation engine is closed")
)
