package engine

import "errors"

var (
	ErrEngineRunning    = errors.New("engine is already running")
	ErrEngineNotRunning = errors.New("engine is not running")
	ErrEngineStopped    = errors.New("engine is stopped")
)
