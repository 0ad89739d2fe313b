package proxy

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/minibit/relay"
	"github.com/minibit/relay/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrUnknownServer = errors.New("unknown server")

func NewServerManager(cfgReader config.ServerConfigReader, factory ServerFactoryFunc) (*ServerManager, error) {
	manager := &ServerManager{
		servers:       make(map[string]*Server),
		cfgs:          make(map[string]config.ServerConfig),
		serverFactory: factory,
		configReader:  cfgReader,
	}
	err := manager.Update()
	return manager, err
}

// ServerManager owns the registered backend servers and keeps them in
// sync with the server config files.
type ServerManager struct {
	mu      sync.RWMutex
	servers map[string]*Server
	cfgs    map[string]config.ServerConfig

	serverFactory ServerFactoryFunc
	configReader  config.ServerConfigReader
}

func serverID(name string) string {
	return strings.ToLower(name)
}

// Update reads the configs again. Nothing changes when one of them is invalid.
func (manager *ServerManager) Update() error {
	newCfgs, err := manager.configReader()
	if err != nil {
		return err
	}
	for _, newCfg := range newCfgs {
		if _, err := config.ServerToBackendConfig(newCfg); err != nil {
			return err
		}
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.loadAllConfigs(newCfgs)
	log.Info().Int("servers", len(manager.servers)).Msg("registered backend servers")
	return nil
}

// convert error should be checked before calling this method
func (manager *ServerManager) addConfig(cfg config.ServerConfig) {
	id := serverID(cfg.Name)
	manager.cfgs[id] = cfg
	backendCfg, _ := config.ServerToBackendConfig(cfg)
	manager.servers[id] = manager.serverFactory(backendCfg)
	log.Debug().Str("server", cfg.Name).Msg("server added")
}

func (manager *ServerManager) removeConfig(cfg config.ServerConfig) {
	id := serverID(cfg.Name)
	delete(manager.cfgs, id)
	delete(manager.servers, id)
	log.Debug().Str("server", cfg.Name).Msg("server removed")
}

func (manager *ServerManager) updateConfig(cfg config.ServerConfig) {
	id := serverID(cfg.Name)
	oldCfg := manager.cfgs[id]
	if reflect.DeepEqual(cfg, oldCfg) {
		return
	}
	manager.cfgs[id] = cfg
	backendCfg, _ := config.ServerToBackendConfig(cfg)
	manager.servers[id].Update(backendCfg)
	log.Debug().Str("server", cfg.Name).Msg("server updated")
}

func (manager *ServerManager) loadAllConfigs(cfgs []config.ServerConfig) {
	newCfgs := make(map[string]config.ServerConfig)
	for _, cfg := range cfgs {
		newCfgs[serverID(cfg.Name)] = cfg
	}

	for id, oldCfg := range manager.cfgs {
		if _, ok := newCfgs[id]; !ok {
			manager.removeConfig(oldCfg)
		}
	}

	for id, newCfg := range newCfgs {
		if _, ok := manager.cfgs[id]; !ok {
			manager.addConfig(newCfg)
			continue
		}
		manager.updateConfig(newCfg)
	}
}

// Lookup returns the handle of a registered server, names are matched
// case-insensitively.
func (manager *ServerManager) Lookup(name string) (*Server, bool) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	server, ok := manager.servers[serverID(name)]
	return server, ok
}

func (manager *ServerManager) ServerByName(name string) (relay.Server, bool) {
	server, ok := manager.Lookup(name)
	if !ok {
		return nil, false
	}
	return server, true
}

// Servers returns every registered server sorted by name.
func (manager *ServerManager) Servers() []*Server {
	manager.mu.RLock()
	servers := make([]*Server, 0, len(manager.servers))
	for _, server := range manager.servers {
		servers = append(servers, server)
	}
	manager.mu.RUnlock()
	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Name() < servers[j].Name()
	})
	return servers
}
