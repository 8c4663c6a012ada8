package units

import "errors"

var (
	ErrUnknownSpawnType = errors.New("no factory registered for spawn type")
	ErrNilWorld         = errors.New("world is nil")
)
