// Package audio runs sound and music playback on its own goroutine. Callers
// enqueue requests; the worker drains them in FIFO order and talks to a
// Backend. Shutdown is itself a request, so everything queued before it is
// processed first.
package audio

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/ironcore/internal/core/observability/log"
)

const (
	DefaultVolume      = 1.0
	DefaultPriority    = 50
	DefaultMaxChannels = 32
	MinChannels        = 1
)

type Category uint8

const (
	CategorySFX Category = iota
	CategoryVoice
	CategoryMusic
)

func (c Category) String() string {
	switch c {
	case CategorySFX:
		return "sfx"
	case CategoryVoice:
		return "voice"
	case CategoryMusic:
		return "music"
	default:
		return "unknown"
	}
}

// VolumeGroup selects one of the mixer levels.
type VolumeGroup uint8

const (
	VolumeMaster VolumeGroup = iota
	VolumeSound
	VolumeMusic
	VolumeVoice
	volumeGroups
)

type PlayOptions struct {
	Volume   float64
	Loop     bool
	Priority int
	Category Category
}

func DefaultPlayOptions() PlayOptions {
	return PlayOptions{Volume: DefaultVolume, Priority: DefaultPriority}
}

// ActiveSound is one playing instance occupying a channel.
type ActiveSound struct {
	InstanceID string
	SoundID    string
	Priority   int
	Loop       bool
	Category   Category
	Volume     float64
	StartedAt  time.Time

	seq uint64
}

// PlaybackTracker is implemented by backends that know when a one-shot sound
// finished. CleanupInactive uses it to free channels.
type PlaybackTracker interface {
	Playing(instanceID string) bool
}

type requestKind uint8

const (
	requestPlay requestKind = iota
	requestStop
	requestPlayMusic
	requestStopMusic
	requestVolume
	requestPause
	requestResume
	requestUnload
	requestCleanup
	requestFlush
	requestShutdown
)

type request struct {
	kind requestKind
	id   string
	opts PlayOptions
	done chan struct{}
}

type state uint8

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// System owns the request queue and the channel table.
type System struct {
	backend Backend
	logger  log.Log

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []request
	state   state
	closing bool
	done    chan struct{}

	resMu        sync.Mutex
	sounds       map[string]Resource
	music        map[string]Resource
	active       []ActiveSound
	maxChannels  int
	volumes      [volumeGroups]float64
	currentMusic string
	musicVolume  float64
	seq          uint64

	now func() time.Time
}

// NewSystem creates an idle audio system. A nil backend logs instead of
// playing.
func NewSystem(backend Backend, maxChannels int, logger log.Log) *System {
	logger = log.OrNop(logger).With(log.String("component", "audio"))
	if backend == nil {
		backend = NewLogBackend(logger)
	}
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}
	s := &System{
		backend:     backend,
		logger:      logger,
		done:        make(chan struct{}),
		sounds:      make(map[string]Resource),
		music:       make(map[string]Resource),
		maxChannels: max(MinChannels, maxChannels),
		now:         time.Now,
	}
	s.cond = sync.NewCond(&s.mu)
	for i := range s.volumes {
		s.volumes[i] = DefaultVolume
	}
	return s
}

// Run drains the queue until Shutdown is processed or ctx is cancelled.
// Cancellation queues a shutdown behind the pending requests.
func (s *System) Run(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateRunning:
		s.mu.Unlock()
		return ErrAudioRunning
	case stateStopped:
		s.mu.Unlock()
		return ErrAudioStopped
	}
	s.state = stateRunning
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.queueShutdownLocked()
			s.mu.Unlock()
		case <-s.done:
		}
	}()

	s.logger.Info("audio worker started", log.Int("max_channels", s.MaxChannels()))
	s.loop()
	s.release()

	s.mu.Lock()
	s.state = stateStopped
	close(s.done)
	s.mu.Unlock()
	s.logger.Info("audio worker stopped")
	return nil
}

// Shutdown queues a shutdown and waits for the worker to exit. Before Run it
// just marks the system stopped and discards the queue.
func (s *System) Shutdown() {
	s.mu.Lock()
	switch s.state {
	case stateIdle:
		s.state = stateStopped
		s.closing = true
		s.queue = nil
		close(s.done)
		s.mu.Unlock()
		return
	case stateStopped:
		s.mu.Unlock()
		return
	}
	s.queueShutdownLocked()
	s.mu.Unlock()
	<-s.done
}

// Done is closed once the system has stopped.
func (s *System) Done() <-chan struct{} {
	return s.done
}

func (s *System) queueShutdownLocked() {
	if s.closing {
		return
	}
	s.closing = true
	s.queue = append(s.queue, request{kind: requestShutdown})
	s.cond.Signal()
}

func (s *System) enqueue(req request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrAudioStopped
	}
	s.queue = append(s.queue, req)
	s.cond.Signal()
	return nil
}

func (s *System) loop() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			s.cond.Wait()
		}
		req := s.queue[0]
		s.queue[0] = request{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if req.kind == requestShutdown {
			return
		}
		s.process(req)
	}
}

func (s *System) process(req request) {
	switch req.kind {
	case requestPlay:
		s.play(req.id, req.opts)
	case requestStop:
		s.stop(req.id)
	case requestPlayMusic:
		s.playMusic(req.id, req.opts.Volume)
	case requestStopMusic:
		s.resMu.Lock()
		s.backend.StopMusic()
		s.currentMusic = ""
		s.resMu.Unlock()
	case requestVolume:
		s.applyVolumes()
	case requestPause:
		s.backend.Pause()
	case requestResume:
		s.backend.Resume()
	case requestUnload:
		s.unload(req.id)
	case requestCleanup:
		s.cleanupInactive()
	case requestFlush:
		close(req.done)
	}
}

func (s *System) release() {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	for _, a := range s.active {
		s.backend.Stop(a.InstanceID)
	}
	s.active = nil
	if s.currentMusic != "" {
		s.backend.StopMusic()
		s.currentMusic = ""
	}
}

// LoadSound registers a sound. Loading an existing ID is a no-op.
func (s *System) LoadSound(id, path string, category Category) error {
	if id == "" {
		return ErrEmptyResource
	}
	s.resMu.Lock()
	defer s.resMu.Unlock()
	if _, ok := s.sounds[id]; !ok {
		s.sounds[id] = Resource{ID: id, Path: path, Category: category}
	}
	return nil
}

func (s *System) LoadMusic(id, path string) error {
	if id == "" {
		return ErrEmptyResource
	}
	s.resMu.Lock()
	defer s.resMu.Unlock()
	s.music[id] = Resource{ID: id, Path: path, Category: CategoryMusic}
	return nil
}

func (s *System) Play(soundID string, opts PlayOptions) error {
	return s.enqueue(request{kind: requestPlay, id: soundID, opts: opts})
}

// Stop stops every playing instance of soundID.
func (s *System) Stop(soundID string) error {
	return s.enqueue(request{kind: requestStop, id: soundID})
}

func (s *System) PlayMusic(musicID string, volume float64) error {
	return s.enqueue(request{kind: requestPlayMusic, id: musicID, opts: PlayOptions{Volume: volume}})
}

func (s *System) StopMusic() error {
	return s.enqueue(request{kind: requestStopMusic})
}

func (s *System) PauseAll() error {
	return s.enqueue(request{kind: requestPause})
}

func (s *System) ResumeAll() error {
	return s.enqueue(request{kind: requestResume})
}

// Unload stops and forgets a sound or music track.
func (s *System) Unload(id string) error {
	return s.enqueue(request{kind: requestUnload, id: id})
}

// UnloadAll queues an unload for every registered resource.
func (s *System) UnloadAll() error {
	s.resMu.Lock()
	ids := make([]string, 0, len(s.sounds)+len(s.music))
	for id := range s.sounds {
		ids = append(ids, id)
	}
	for id := range s.music {
		ids = append(ids, id)
	}
	s.resMu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		if err := s.Unload(id); err != nil {
			return fmt.Errorf("unload %q: %w", id, err)
		}
	}
	return nil
}

// CleanupInactive frees channels held by finished one-shot sounds.
func (s *System) CleanupInactive() error {
	return s.enqueue(request{kind: requestCleanup})
}

// Flush blocks until every request queued before it has been processed.
func (s *System) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := s.enqueue(request{kind: requestFlush, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-s.done:
		return ErrAudioStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetVolume sets a mixer level, clamped to [0, 1]. Playing sounds pick the
// change up when the worker reaches it.
func (s *System) SetVolume(group VolumeGroup, v float64) error {
	if group >= volumeGroups {
		return fmt.Errorf("unknown volume group %d", group)
	}
	s.resMu.Lock()
	s.volumes[group] = clampVolume(v)
	s.resMu.Unlock()
	return s.enqueue(request{kind: requestVolume})
}

func (s *System) Volume(group VolumeGroup) float64 {
	if group >= volumeGroups {
		return 0
	}
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return s.volumes[group]
}

func (s *System) SetMaxChannels(n int) {
	s.resMu.Lock()
	s.maxChannels = max(MinChannels, n)
	s.resMu.Unlock()
}

func (s *System) MaxChannels() int {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return s.maxChannels
}

func (s *System) ActiveChannelCount() int {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return len(s.active)
}

// ActiveSounds returns a copy of the channel table in start order.
func (s *System) ActiveSounds() []ActiveSound {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return slices.Clone(s.active)
}

func (s *System) play(soundID string, opts PlayOptions) {
	s.resMu.Lock()
	defer s.resMu.Unlock()

	res, ok := s.sounds[soundID]
	if !ok {
		s.logger.Warn("unknown sound", log.String("sound", soundID))
		return
	}
	if !s.admitLocked(opts.Priority) {
		s.logger.Debug("sound rejected, channels full",
			log.String("sound", soundID),
			log.Int("priority", opts.Priority))
		return
	}

	instance := uuid.NewString()
	if err := s.backend.Play(instance, res, s.effectiveLocked(opts.Category, opts.Volume), opts.Loop); err != nil {
		s.logger.Error("play failed", log.String("sound", soundID), log.Error(err))
		return
	}
	s.seq++
	s.active = append(s.active, ActiveSound{
		InstanceID: instance,
		SoundID:    soundID,
		Priority:   opts.Priority,
		Loop:       opts.Loop,
		Category:   opts.Category,
		Volume:     opts.Volume,
		StartedAt:  s.now(),
		seq:        s.seq,
	})
}

// admitLocked makes room for a sound of the given priority. At capacity the
// lowest priority sound, oldest first on ties, is evicted if its priority
// does not exceed the incoming one; otherwise the request is refused.
func (s *System) admitLocked(priority int) bool {
	for len(s.active) >= s.maxChannels {
		victim := s.lowestLocked()
		if victim < 0 || s.active[victim].Priority > priority {
			return false
		}
		evicted := s.active[victim]
		s.backend.Stop(evicted.InstanceID)
		s.active = slices.Delete(s.active, victim, victim+1)
		s.logger.Debug("sound evicted",
			log.String("sound", evicted.SoundID),
			log.Int("priority", evicted.Priority),
			log.Int("incoming_priority", priority))
	}
	return true
}

func (s *System) lowestLocked() int {
	idx := -1
	for i, a := range s.active {
		if idx < 0 {
			idx = i
			continue
		}
		b := s.active[idx]
		switch {
		case a.Priority != b.Priority:
			if a.Priority < b.Priority {
				idx = i
			}
		case !a.StartedAt.Equal(b.StartedAt):
			if a.StartedAt.Before(b.StartedAt) {
				idx = i
			}
		case a.seq < b.seq:
			idx = i
		}
	}
	return idx
}

func (s *System) stop(soundID string) {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	s.stopInstancesLocked(soundID)
}

func (s *System) stopInstancesLocked(soundID string) {
	s.active = slices.DeleteFunc(s.active, func(a ActiveSound) bool {
		if a.SoundID != soundID {
			return false
		}
		s.backend.Stop(a.InstanceID)
		return true
	})
}

func (s *System) playMusic(musicID string, volume float64) {
	s.resMu.Lock()
	defer s.resMu.Unlock()

	res, ok := s.music[musicID]
	if !ok {
		s.logger.Warn("unknown music", log.String("music", musicID))
		return
	}
	v := s.volumes[VolumeMaster] * s.volumes[VolumeMusic] * volume
	if err := s.backend.PlayMusic(res, v, true); err != nil {
		s.logger.Error("music failed", log.String("music", musicID), log.Error(err))
		return
	}
	s.currentMusic = musicID
	s.musicVolume = volume
}

func (s *System) unload(id string) {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	if _, ok := s.sounds[id]; ok {
		s.stopInstancesLocked(id)
		delete(s.sounds, id)
	}
	if _, ok := s.music[id]; ok {
		if s.currentMusic == id {
			s.backend.StopMusic()
			s.currentMusic = ""
		}
		delete(s.music, id)
	}
}

func (s *System) cleanupInactive() {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	tracker, _ := s.backend.(PlaybackTracker)
	before := len(s.active)
	s.active = slices.DeleteFunc(s.active, func(a ActiveSound) bool {
		if a.Loop {
			return false
		}
		if _, ok := s.sounds[a.SoundID]; !ok {
			return true
		}
		return tracker != nil && !tracker.Playing(a.InstanceID)
	})
	if freed := before - len(s.active); freed > 0 {
		s.logger.Debug("inactive sounds released", log.Int("count", freed))
	}
}

func (s *System) applyVolumes() {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	for _, a := range s.active {
		s.backend.SetVolume(a.InstanceID, s.effectiveLocked(a.Category, a.Volume))
	}
	if s.currentMusic != "" {
		s.backend.SetVolume(MusicInstance, s.volumes[VolumeMaster]*s.volumes[VolumeMusic]*s.musicVolume)
	}
}

func (s *System) effectiveLocked(c Category, v float64) float64 {
	group := VolumeSound
	switch c {
	case CategoryVoice:
		group = VolumeVoice
	case CategoryMusic:
		group = VolumeMusic
	}
	return s.volumes[VolumeMaster] * s.volumes[group] * v
}

func clampVolume(v float64) float64 {
	return min(1, max(0, v))
}
