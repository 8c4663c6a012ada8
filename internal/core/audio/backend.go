package audio

import (
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

// MusicInstance is the instance ID a Backend sees for the music track.
const MusicInstance = "music"

// Resource is a registered sound or music track.
type Resource struct {
	ID       string
	Path     string
	Category Category
}

// Backend performs the actual playback. All calls come from the audio
// goroutine, one at a time.
type Backend interface {
	Play(instanceID string, res Resource, volume float64, loop bool) error
	Stop(instanceID string)
	PlayMusic(res Resource, volume float64, loop bool) error
	StopMusic()
	Pause()
	Resume()
	SetVolume(instanceID string, volume float64)
}

// LogBackend plays nothing and logs every call. It backs headless runs.
type LogBackend struct {
	logger log.Log
}

func NewLogBackend(logger log.Log) *LogBackend {
	return &LogBackend{logger: log.OrNop(logger).With(log.String("component", "audio_backend"))}
}

func (b *LogBackend) Play(instanceID string, res Resource, volume float64, loop bool) error {
	b.logger.Debug("play",
		log.String("instance", instanceID),
		log.String("sound", res.ID),
		log.Float64("volume", volume),
		log.Bool("loop", loop))
	return nil
}

func (b *LogBackend) Stop(instanceID string) {
	b.logger.Debug("stop", log.String("instance", instanceID))
}

func (b *LogBackend) PlayMusic(res Resource, volume float64, loop bool) error {
	b.logger.Debug("play music", log.String("music", res.ID), log.Float64("volume", volume), log.Bool("loop", loop))
	return nil
}

func (b *LogBackend) StopMusic() { b.logger.Debug("stop music") }
func (b *LogBackend) Pause()     { b.logger.Debug("pause") }
func (b *LogBackend) Resume()    { b.logger.Debug("resume") }

func (b *LogBackend) SetVolume(instanceID string, volume float64) {
	b.logger.Debug("set volume", log.String("instance", instanceID), log.Float64("volume", volume))
}
