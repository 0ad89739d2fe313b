package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/minibit/relay/bridge"
	"github.com/minibit/relay/proxy"
	"github.com/rs/zerolog/log"
)

type ServerManager interface {
	Update() error
	Servers() []*proxy.Server
	Lookup(name string) (*proxy.Server, bool)
}

type PlayerRegistry interface {
	Players() []*proxy.Player
}

type BackendLister interface {
	Sessions() []*bridge.Session
}

func NewAPI(servers ServerManager, players PlayerRegistry, backends BackendLister) *API {
	api := &API{
		servers:  servers,
		players:  players,
		backends: backends,
	}
	api.router = api.routes()
	return api
}

// API is the local control surface of the relay.
type API struct {
	servers  ServerManager
	players  PlayerRegistry
	backends BackendLister
	router   chi.Router
	server   *http.Server
}

func (api *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/reload", api.reloadHandler)
	r.Post("/reload", api.reloadHandler)
	r.Route("/servers", func(r chi.Router) {
		r.Get("/", api.listServers)
		r.Get("/{name}", api.getServer)
	})
	r.Get("/players", api.listPlayers)
	r.Get("/backends", api.listBackends)
	return r
}

func (api *API) Handler() http.Handler {
	return api.router
}

// Serve blocks until the listener fails or Shutdown is called.
func (api *API) Serve(listener net.Listener) error {
	api.server = &http.Server{Handler: api.router}
	log.Info().Str("addr", listener.Addr().String()).Msg("serving api")
	err := api.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (api *API) Shutdown(ctx context.Context) error {
	if api.server == nil {
		return nil
	}
	return api.server.Shutdown(ctx)
}

func (api *API) reloadHandler(w http.ResponseWriter, r *http.Request) {
	err := api.servers.Update()
	if err != nil {
		log.Warn().Err(err).Msg("reloading server configs failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "success")
}

type serverView struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	State   string `json:"state"`
}

func newServerView(server *proxy.Server) serverView {
	return serverView{
		Name:    server.Name(),
		Address: server.Address(),
		State:   server.State().String(),
	}
}

func (api *API) listServers(w http.ResponseWriter, r *http.Request) {
	servers := api.servers.Servers()
	views := make([]serverView, 0, len(servers))
	for _, server := range servers {
		views = append(views, newServerView(server))
	}
	writeJSON(w, http.StatusOK, views)
}

func (api *API) getServer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	server, ok := api.servers.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": proxy.ErrUnknownServer.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newServerView(server))
}

func (api *API) listPlayers(w http.ResponseWriter, r *http.Request) {
	players := make(map[string]string)
	for _, player := range api.players.Players() {
		server, ok := player.Server()
		if !ok {
			continue
		}
		players[player.Name()] = server.Name()
	}
	writeJSON(w, http.StatusOK, players)
}

type backendView struct {
	ID     string `json:"id"`
	Server string `json:"server"`
	Remote string `json:"remote"`
}

func (api *API) listBackends(w http.ResponseWriter, r *http.Request) {
	sessions := api.backends.Sessions()
	views := make([]backendView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, backendView{
			ID:     session.ID(),
			Server: session.Server().Name(),
			Remote: session.RemoteAddr().String(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("writing api response failed")
	}
}
