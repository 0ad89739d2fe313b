package proxy

import (
	"sync"
	"time"
)

type ServerState byte

const (
	Unknown ServerState = iota
	Online
	Offline
)

func (state ServerState) String() string {
	var text string
	switch state {
	case Unknown:
		text = "Unknown"
	case Online:
		text = "Online"
	case Offline:
		text = "Offline"
	}
	return text
}

type StateAgent interface {
	State() ServerState
}

func NewMcServerState(cooldown time.Duration, connCreator ConnectionCreator) StateAgent {
	return &McServerState{
		state:       Unknown,
		cooldown:    cooldown,
		connCreator: connCreator,
		startTime:   time.Time{},
	}
}

// McServerState dials the server to find out whether it is reachable and
// keeps the answer for cooldown.
type McServerState struct {
	mu          sync.Mutex
	state       ServerState
	cooldown    time.Duration
	startTime   time.Time
	connCreator ConnectionCreator
}

func (server *McServerState) State() ServerState {
	server.mu.Lock()
	defer server.mu.Unlock()
	if time.Since(server.startTime) <= server.cooldown {
		return server.state
	}
	server.startTime = time.Now()
	connFunc := server.connCreator.Conn()
	conn, err := connFunc()
	if err != nil {
		server.state = Offline
	} else {
		server.state = Online
		conn.Close()
	}
	return server.state
}

type AlwaysOnlineState struct{}

func (agent AlwaysOnlineState) State() ServerState {
	return Online
}

type AlwaysOfflineState struct{}

func (agent AlwaysOfflineState) State() ServerState {
	return Offline
}
