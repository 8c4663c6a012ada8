// Package events holds the event vocabulary published on the simulation bus.
// Events are immutable values; subscribers must not retain pointers into them.
package events

import "github.com/zeusync/ironcore/internal/core/ecs"

type UnitSelected struct {
	UnitID ecs.EntityID
}

type UnitMoved struct {
	UnitID ecs.EntityID
	X, Z   float64
}

// UnitDied is the single carrier of kill credit. KillerID and KillerOwnerID
// are zero when nobody gets credit.
type UnitDied struct {
	UnitID        ecs.EntityID
	OwnerID       int
	UnitType      string
	KillerID      ecs.EntityID
	KillerOwnerID int
}

type UnitSpawned struct {
	UnitID   ecs.EntityID
	OwnerID  int
	UnitType string
}

type BuildingAttacked struct {
	BuildingID      ecs.EntityID
	OwnerID         int
	BuildingType    string
	AttackerID      ecs.EntityID
	AttackerOwnerID int
	Damage          int
}

type BarrackCaptured struct {
	BarrackID       ecs.EntityID
	PreviousOwnerID int
	NewOwnerID      int
}

// CombatHit is published for every damage application, lethal or not.
type CombatHit struct {
	AttackerID   ecs.EntityID
	TargetID     ecs.EntityID
	Damage       int
	AttackerType string
	Killing      bool
}

type AmbientState uint8

const (
	AmbientPeaceful AmbientState = iota
	AmbientTense
	AmbientCombat
	AmbientVictory
	AmbientDefeat
)

func (s AmbientState) String() string {
	switch s {
	case AmbientPeaceful:
		return "peaceful"
	case AmbientTense:
		return "tense"
	case AmbientCombat:
		return "combat"
	case AmbientVictory:
		return "victory"
	case AmbientDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

type AmbientStateChanged struct {
	NewState      AmbientState
	PreviousState AmbientState
}

type AudioTrigger struct {
	SoundID  string
	Volume   float64
	Loop     bool
	Priority int
}

type MusicTrigger struct {
	MusicID   string
	Volume    float64
	Crossfade bool
}

type BlockReason uint8

const (
	BlockGlobalTroopLimit BlockReason = iota + 1
	BlockPerBarracksLimit
)

func (r BlockReason) String() string {
	switch r {
	case BlockGlobalTroopLimit:
		return "global_troop_limit"
	case BlockPerBarracksLimit:
		return "per_barracks_limit"
	default:
		return "unknown"
	}
}

// ProductionBlocked reports a production run that could not spawn.
type ProductionBlocked struct {
	BarracksID ecs.EntityID
	OwnerID    int
	Reason     BlockReason
}

// NewAudioTrigger fills the defaults used by most callers.
func NewAudioTrigger(soundID string) AudioTrigger {
	return AudioTrigger{SoundID: soundID, Volume: 1}
}

// NewMusicTrigger fills the defaults used by most callers.
func NewMusicTrigger(musicID string) MusicTrigger {
	return MusicTrigger{MusicID: musicID, Volume: 1, Crossfade: true}
}
