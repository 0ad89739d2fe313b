package proxy

import (
	"fmt"
	"sync"

	"github.com/Tnze/go-mc/chat"
	"github.com/minibit/relay"
	"github.com/rs/zerolog/log"
)

// Session is the backend connection a player is currently playing through.
type Session interface {
	ID() string
	SendChat(player string, msg chat.Message) error
	SendTransfer(player string, server *Server) error
}

type Player struct {
	name     string
	switches *sync.WaitGroup

	mu      sync.RWMutex
	session Session
	current *Server
}

func (player *Player) Name() string {
	return player.name
}

func (player *Player) String() string {
	return player.name
}

func (player *Player) CurrentServer() (relay.Server, bool) {
	server, ok := player.Server()
	if !ok {
		return nil, false
	}
	return server, true
}

// Server returns the concrete handle of the server the player is on.
func (player *Player) Server() (*Server, bool) {
	player.mu.RLock()
	defer player.mu.RUnlock()
	return player.current, player.current != nil
}

func (player *Player) Session() Session {
	player.mu.RLock()
	defer player.mu.RUnlock()
	return player.session
}

func (player *Player) SendMessage(msg chat.Message) error {
	session := player.Session()
	if session == nil {
		return ErrSessionClosed
	}
	return session.SendChat(player.name, msg)
}

func (player *Player) move(session Session, server *Server) {
	player.mu.Lock()
	defer player.mu.Unlock()
	player.session = session
	player.current = server
}

// RequestConnectionSwitch asks the player's backend to transfer the player
// in the background. Failures are told to the player and logged, nobody
// waits for the result. The player's server and session only change once
// the target backend reports the join.
func (player *Player) RequestConnectionSwitch(target relay.Server) {
	server, ok := target.(*Server)
	if !ok {
		log.Warn().Str("player", player.name).Str("server", target.Name()).Msg("server handle from another registry")
		return
	}
	player.switches.Add(1)
	go func() {
		defer player.switches.Done()
		player.connect(server)
	}()
}

func (player *Player) connect(server *Server) {
	if server.State() != Online {
		log.Info().Str("player", player.name).Str("server", server.Name()).Msg("target server is offline")
		if err := player.SendMessage(couldNotConnectMessage(server.Name())); err != nil {
			log.Warn().Err(err).Str("player", player.name).Msg("could not tell player about failed switch")
		}
		switchResults.WithLabelValues("offline").Inc()
		return
	}
	session := player.Session()
	if session == nil {
		switchResults.WithLabelValues("no_session").Inc()
		return
	}
	if err := session.SendTransfer(player.name, server); err != nil {
		log.Warn().Err(err).Str("player", player.name).Str("server", server.Name()).Msg("sending transfer failed")
		switchResults.WithLabelValues("failed").Inc()
		return
	}
	switchResults.WithLabelValues("transferred").Inc()
	log.Info().Str("player", player.name).Str("server", server.Name()).Msg("player transferred")
}

func couldNotConnectMessage(serverName string) chat.Message {
	msg := chat.Text(fmt.Sprintf("Could not connect to %s", serverName))
	msg.Color = "red"
	return msg
}
