package snapshot

import "errors"

var (
	ErrVersionMismatch  = errors.New("snapshot format version mismatch")
	ErrUnknownComponent = errors.New("unknown component type")
	ErrTypeMismatch     = errors.New("component value has the wrong type")
	ErrInvalidEntity    = errors.New("snapshot entity has no id")
)
