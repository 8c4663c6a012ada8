package registry

import (
	"slices"
	"strconv"
	"sync"

	"github.com/zeusync/ironcore/internal/core/components"
)

type OwnerType uint8

const (
	OwnerPlayer OwnerType = iota
	OwnerAI
	OwnerNeutral
)

func (t OwnerType) String() string {
	switch t {
	case OwnerPlayer:
		return "player"
	case OwnerAI:
		return "ai"
	default:
		return "neutral"
	}
}

type OwnerInfo struct {
	OwnerID int
	Type    OwnerType
	Name    string
	TeamID  int
	Color   [3]float64
}

var defaultOwnerColor = [3]float64{0.8, 0.9, 1.0}

// Owners tracks factions, their kind and team membership. It is safe for
// concurrent use; the AI worker reads it while the step mutates nothing.
type Owners struct {
	mu            sync.RWMutex
	owners        []OwnerInfo
	index         map[int]int
	nextOwnerID   int
	localPlayerID int
}

func NewOwners() *Owners {
	return &Owners{index: make(map[int]int), nextOwnerID: 1, localPlayerID: 1}
}

func (o *Owners) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owners = nil
	o.index = make(map[int]int)
	o.nextOwnerID = 1
	o.localPlayerID = 1
}

// Register adds an owner under the next free ID and returns that ID.
func (o *Owners) Register(kind OwnerType, name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextOwnerID
	o.registerLocked(id, kind, name)
	return id
}

// RegisterWithID adds or replaces an owner under a fixed ID.
func (o *Owners) RegisterWithID(id int, kind OwnerType, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registerLocked(id, kind, name)
}

func (o *Owners) registerLocked(id int, kind OwnerType, name string) {
	if name == "" {
		name = "Owner" + strconv.Itoa(id)
	}
	info := OwnerInfo{OwnerID: id, Type: kind, Name: name, Color: defaultOwnerColor}
	if idx, ok := o.index[id]; ok {
		info.TeamID = o.owners[idx].TeamID
		info.Color = o.owners[idx].Color
		o.owners[idx] = info
	} else {
		o.index[id] = len(o.owners)
		o.owners = append(o.owners, info)
	}
	if id >= o.nextOwnerID {
		o.nextOwnerID = id + 1
	}
}

func (o *Owners) SetLocalPlayerID(id int) {
	o.mu.Lock()
	o.localPlayerID = id
	o.mu.Unlock()
}

func (o *Owners) LocalPlayerID() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.localPlayerID
}

func (o *Owners) lookup(id int) (OwnerInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	idx, ok := o.index[id]
	if !ok {
		return OwnerInfo{}, false
	}
	return o.owners[idx], true
}

// Type returns the owner kind; unknown IDs are neutral.
func (o *Owners) Type(id int) OwnerType {
	if info, ok := o.lookup(id); ok {
		return info.Type
	}
	return OwnerNeutral
}

func (o *Owners) IsPlayer(id int) bool { return o.Type(id) == OwnerPlayer }
func (o *Owners) IsAI(id int) bool     { return o.Type(id) == OwnerAI }

// IsNeutral reports whether id is the neutral sentinel or an owner
// registered as neutral.
func (o *Owners) IsNeutral(id int) bool {
	if id == components.NeutralOwner {
		return true
	}
	info, ok := o.lookup(id)
	return ok && info.Type == OwnerNeutral
}

func (o *Owners) Name(id int) string {
	if info, ok := o.lookup(id); ok {
		return info.Name
	}
	return "Unknown"
}

// All returns a copy of every registered owner in registration order.
func (o *Owners) All() []OwnerInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.owners)
}

func (o *Owners) idsOfType(kind OwnerType) []int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []int
	for _, info := range o.owners {
		if info.Type == kind {
			out = append(out, info.OwnerID)
		}
	}
	return out
}

func (o *Owners) PlayerIDs() []int { return o.idsOfType(OwnerPlayer) }
func (o *Owners) AIIDs() []int     { return o.idsOfType(OwnerAI) }

func (o *Owners) SetTeam(id, team int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if idx, ok := o.index[id]; ok {
		o.owners[idx].TeamID = team
	}
}

func (o *Owners) Team(id int) int {
	if info, ok := o.lookup(id); ok {
		return info.TeamID
	}
	return 0
}

func (o *Owners) SetColor(id int, r, g, b float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if idx, ok := o.index[id]; ok {
		o.owners[idx].Color = [3]float64{r, g, b}
	}
}

func (o *Owners) Color(id int) [3]float64 {
	if info, ok := o.lookup(id); ok {
		return info.Color
	}
	return defaultOwnerColor
}

// AreAllies is true for the same owner or owners sharing a nonzero team.
func (o *Owners) AreAllies(a, b int) bool {
	if a == b {
		return true
	}
	ta, tb := o.Team(a), o.Team(b)
	return ta != 0 && ta == tb
}

func (o *Owners) AreEnemies(a, b int) bool {
	return !o.AreAllies(a, b)
}

func (o *Owners) AlliesOf(id int) []int {
	var out []int
	for _, info := range o.All() {
		if info.OwnerID != id && o.AreAllies(id, info.OwnerID) {
			out = append(out, info.OwnerID)
		}
	}
	return out
}

func (o *Owners) EnemiesOf(id int) []int {
	var out []int
	for _, info := range o.All() {
		if info.Type != OwnerNeutral && o.AreEnemies(id, info.OwnerID) {
			out = append(out, info.OwnerID)
		}
	}
	return out
}

// OwnersState is the persisted form of the registry.
type OwnersState struct {
	Owners        []OwnerInfo
	NextOwnerID   int
	LocalPlayerID int
}

func (o *Owners) State() OwnersState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return OwnersState{Owners: slices.Clone(o.owners), NextOwnerID: o.nextOwnerID, LocalPlayerID: o.localPlayerID}
}

func (o *Owners) Restore(state OwnersState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owners = slices.Clone(state.Owners)
	o.index = make(map[int]int, len(o.owners))
	for i, info := range o.owners {
		o.index[info.OwnerID] = i
	}
	o.nextOwnerID = max(state.NextOwnerID, 1)
	o.localPlayerID = state.LocalPlayerID
}
