package proxy

import (
	"net"
	"sync"

	"github.com/minibit/relay/config"
)

type ServerFactoryFunc func(cfg config.BackendConfig) *Server

// NewServer builds a handle for a registered backend. The handle stays the
// same for as long as the server is registered, updates happen in place.
func NewServer(cfg config.BackendConfig) *Server {
	server := &Server{}
	server.Update(cfg)
	return server
}

type Server struct {
	mu         sync.RWMutex
	cfg        config.BackendConfig
	stateAgent StateAgent
}

func (server *Server) Name() string {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.cfg.Name
}

func (server *Server) Address() string {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.cfg.Address
}

func (server *Server) State() ServerState {
	server.mu.RLock()
	agent := server.stateAgent
	server.mu.RUnlock()
	return agent.State()
}

func (server *Server) String() string {
	return server.Name()
}

func (server *Server) Update(cfg config.BackendConfig) {
	agent := NewStateAgent(cfg)
	server.mu.Lock()
	defer server.mu.Unlock()
	server.cfg = cfg
	server.stateAgent = agent
}

func NewStateAgent(cfg config.BackendConfig) StateAgent {
	switch cfg.StateOption {
	case config.StateAlwaysOnline:
		return AlwaysOnlineState{}
	case config.StateAlwaysOffline:
		return AlwaysOfflineState{}
	}
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	var connCreator ConnectionCreator = BasicConnCreator(cfg.Address, dialer)
	if cfg.SendProxyProtocol {
		connCreator = ProxyProtocolConnCreator(connCreator)
	}
	return NewMcServerState(cfg.StateUpdateCooldown, connCreator)
}
