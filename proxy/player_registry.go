package proxy

import (
	"sort"
	"strings"
	"sync"

	"github.com/minibit/relay"
	"github.com/pkg/errors"
)

var ErrSessionClosed = errors.New("session is closed")

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		players: make(map[string]*Player),
	}
}

// PlayerRegistry keeps track of the players connected to any backend.
type PlayerRegistry struct {
	mu       sync.RWMutex
	players  map[string]*Player
	switches sync.WaitGroup
}

func playerID(name string) string {
	return strings.ToLower(name)
}

// Join registers the player on server through session. A player already
// known keeps its handle and is moved over.
func (registry *PlayerRegistry) Join(name string, server *Server, session Session) *Player {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	player, ok := registry.players[playerID(name)]
	if !ok {
		player = &Player{
			name:     name,
			switches: &registry.switches,
		}
		registry.players[playerID(name)] = player
		playersOnline.Inc()
	}
	player.move(session, server)
	return player
}

// Quit removes the player, unless it already joined through another session.
func (registry *PlayerRegistry) Quit(name string, session Session) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	player, ok := registry.players[playerID(name)]
	if !ok || player.Session() != session {
		return false
	}
	delete(registry.players, playerID(name))
	player.move(nil, nil)
	playersOnline.Dec()
	return true
}

// DropSession removes every player still bound to session.
func (registry *PlayerRegistry) DropSession(session Session) int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	dropped := 0
	for id, player := range registry.players {
		if player.Session() != session {
			continue
		}
		delete(registry.players, id)
		player.move(nil, nil)
		dropped++
	}
	playersOnline.Sub(float64(dropped))
	return dropped
}

func (registry *PlayerRegistry) Lookup(name string) (*Player, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	player, ok := registry.players[playerID(name)]
	return player, ok
}

func (registry *PlayerRegistry) PlayerByName(name string) (relay.Player, bool) {
	player, ok := registry.Lookup(name)
	if !ok {
		return nil, false
	}
	return player, true
}

// Players returns every online player sorted by name.
func (registry *PlayerRegistry) Players() []*Player {
	registry.mu.RLock()
	players := make([]*Player, 0, len(registry.players))
	for _, player := range registry.players {
		players = append(players, player)
	}
	registry.mu.RUnlock()
	sort.Slice(players, func(i, j int) bool {
		return players[i].Name() < players[j].Name()
	})
	return players
}

// WaitSwitches blocks until every running connection switch is done.
func (registry *PlayerRegistry) WaitSwitches() {
	registry.switches.Wait()
}
