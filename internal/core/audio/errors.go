package audio

import "errors"

var (
	ErrAudioStopped  = errors.New("audio system is stopped")
	ErrAudioRunning  = errors.New("audio system is already running")
	ErrEmptyResource = errors.New("audio resource id is empty")
)
