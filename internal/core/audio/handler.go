package audio

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zeusync/ironcore/internal/core/components"
	"github.com/zeusync/ironcore/internal/core/ecs"
	"github.com/zeusync/ironcore/internal/core/events"
	"github.com/zeusync/ironcore/internal/core/events/bus"
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

const (
	SelectionVolume   = 1.0
	SelectionPriority = 5
	SelectionCooldown = 300 * time.Millisecond
	CombatHitVolume   = 0.6
	CombatHitPriority = 3
	DeathSound        = "combat_death"
)

// Player is the part of System the event handler drives.
type Player interface {
	Play(soundID string, opts PlayOptions) error
	PlayMusic(musicID string, volume float64) error
}

// EventHandler turns gameplay events into playback requests. Handlers run on
// the publishing goroutine and only enqueue.
type EventHandler struct {
	player Player
	world  *ecs.World
	logger log.Log
	subs   bus.Group

	mu             sync.Mutex
	voices         map[components.SpawnType]string
	ambient        map[events.AmbientState]string
	voiceCategory  bool
	lastSelection  time.Time
	lastSelectType components.SpawnType
	rng            *rand.Rand
	now            func() time.Time
}

func NewEventHandler(player Player, world *ecs.World, logger log.Log) *EventHandler {
	return &EventHandler{
		player:        player,
		world:         world,
		logger:        log.OrNop(logger).With(log.String("component", "audio_events")),
		voices:        make(map[components.SpawnType]string),
		ambient:       make(map[events.AmbientState]string),
		voiceCategory: true,
		rng:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:           time.Now,
	}
}

// Attach subscribes the handler to m. Close detaches it.
func (h *EventHandler) Attach(m *bus.Manager) {
	h.subs.Add(bus.Subscribe(m, h.onUnitSelected))
	h.subs.Add(bus.Subscribe(m, h.onAmbientStateChanged))
	h.subs.Add(bus.Subscribe(m, h.onAudioTrigger))
	h.subs.Add(bus.Subscribe(m, h.onMusicTrigger))
	h.subs.Add(bus.Subscribe(m, h.onCombatHit))
}

func (h *EventHandler) Close() error {
	return h.subs.Close()
}

func (h *EventHandler) MapUnitVoice(spawn components.SpawnType, soundID string) {
	h.mu.Lock()
	h.voices[spawn] = soundID
	h.mu.Unlock()
}

func (h *EventHandler) MapAmbientMusic(state events.AmbientState, musicID string) {
	h.mu.Lock()
	h.ambient[state] = musicID
	h.mu.Unlock()
}

// SetVoiceCategory routes selection voices to the voice mixer level instead
// of the sound effects level.
func (h *EventHandler) SetVoiceCategory(on bool) {
	h.mu.Lock()
	h.voiceCategory = on
	h.mu.Unlock()
}

func (h *EventHandler) onUnitSelected(ev events.UnitSelected) {
	u := ecs.Get[components.Unit](h.world.Entity(ev.UnitID))
	if u == nil {
		return
	}

	h.mu.Lock()
	soundID, ok := h.voices[u.SpawnType]
	if !ok {
		h.mu.Unlock()
		return
	}
	now := h.now()
	if now.Sub(h.lastSelection) < SelectionCooldown && u.SpawnType == h.lastSelectType {
		h.mu.Unlock()
		return
	}
	h.lastSelection, h.lastSelectType = now, u.SpawnType
	category := CategorySFX
	if h.voiceCategory {
		category = CategoryVoice
	}
	h.mu.Unlock()

	h.play(soundID, PlayOptions{Volume: SelectionVolume, Priority: SelectionPriority, Category: category})
}

func (h *EventHandler) onAmbientStateChanged(ev events.AmbientStateChanged) {
	h.mu.Lock()
	musicID, ok := h.ambient[ev.NewState]
	h.mu.Unlock()
	if ok {
		h.playMusic(musicID, DefaultVolume)
	}
}

func (h *EventHandler) onAudioTrigger(ev events.AudioTrigger) {
	h.play(ev.SoundID, PlayOptions{Volume: ev.Volume, Loop: ev.Loop, Priority: ev.Priority})
}

func (h *EventHandler) onMusicTrigger(ev events.MusicTrigger) {
	h.playMusic(ev.MusicID, ev.Volume)
}

func (h *EventHandler) onCombatHit(ev events.CombatHit) {
	h.mu.Lock()
	volume := CombatHitVolume * (0.85 + h.rng.Float64()*0.15)
	h.mu.Unlock()

	h.play(HitSound(ev.AttackerType), PlayOptions{Volume: volume, Priority: CombatHitPriority})
	if ev.Killing {
		h.play(DeathSound, PlayOptions{Volume: volume * 0.9, Priority: CombatHitPriority + 1})
	}
}

func (h *EventHandler) play(soundID string, opts PlayOptions) {
	if err := h.player.Play(soundID, opts); err != nil {
		h.logger.Debug("sound dropped", log.String("sound", soundID), log.Error(err))
	}
}

func (h *EventHandler) playMusic(musicID string, volume float64) {
	if err := h.player.PlayMusic(musicID, volume); err != nil {
		h.logger.Debug("music dropped", log.String("music", musicID), log.Error(err))
	}
}

// HitSound picks the impact sound for an attacker type name.
func HitSound(attackerType string) string {
	spawn, ok := components.ParseSpawnType(attackerType)
	if !ok {
		return "combat_hit_generic"
	}
	switch spawn {
	case components.SpawnKnight, components.SpawnMountedKnight:
		return "combat_hit_sword"
	case components.SpawnSpearman:
		return "combat_hit_spear"
	case components.SpawnArcher, components.SpawnHorseArcher:
		return "combat_hit_arrow"
	case components.SpawnCatapult, components.SpawnBallista:
		return "combat_hit_siege"
	default:
		return "combat_hit_generic"
	}
}
