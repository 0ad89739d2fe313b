package relay

import (
	"github.com/Tnze/go-mc/chat"
	"github.com/rs/zerolog/log"
)

const DefaultLobbyServer = "lobby"

type RedirectOutcome byte

const (
	Ignored RedirectOutcome = iota
	AlreadyConnected
	ServerNotFound
	Redirecting
)

func (outcome RedirectOutcome) String() string {
	var text string
	switch outcome {
	case Ignored:
		text = "ignored"
	case AlreadyConnected:
		text = "already_connected"
	case ServerNotFound:
		text = "server_not_found"
	case Redirecting:
		text = "redirecting"
	}
	return text
}

// Origin tells who asked for a redirect.
type Origin byte

const (
	OriginBackend Origin = iota
	OriginCommand
)

func (origin Origin) String() string {
	if origin == OriginCommand {
		return "command"
	}
	return "backend"
}

type RedirectEvent struct {
	PlayerName string
	ServerName string
	Outcome    RedirectOutcome
	Origin     Origin
}

type OutcomeObserver interface {
	ObserveRedirect(event RedirectEvent)
}

type OutcomeObserverFunc func(event RedirectEvent)

func (f OutcomeObserverFunc) ObserveRedirect(event RedirectEvent) {
	f(event)
}

func NewCoordinator(players PlayerRegistry, servers ServerRegistry, lobbyServer string, observers ...OutcomeObserver) *Coordinator {
	if lobbyServer == "" {
		lobbyServer = DefaultLobbyServer
	}
	return &Coordinator{
		players:     players,
		servers:     servers,
		lobbyServer: lobbyServer,
		observers:   observers,
	}
}

// Coordinator decides whether a player has to be moved and asks the host
// to do so. It keeps no state between requests.
type Coordinator struct {
	players     PlayerRegistry
	servers     ServerRegistry
	lobbyServer string
	observers   []OutcomeObserver
}

func (c *Coordinator) LobbyServer() string {
	return c.lobbyServer
}

// HandleRedirect handles a redirect asked for by a backend server.
func (c *Coordinator) HandleRedirect(playerName, targetServerName string) RedirectOutcome {
	player, ok := c.players.PlayerByName(playerName)
	if !ok {
		return c.finish(RedirectEvent{
			PlayerName: playerName,
			ServerName: targetServerName,
			Outcome:    Ignored,
			Origin:     OriginBackend,
		})
	}
	return c.redirect(player, targetServerName, OriginBackend)
}

// Lobby sends player to the lobby server.
func (c *Coordinator) Lobby(player Player) RedirectOutcome {
	return c.redirect(player, c.lobbyServer, OriginCommand)
}

func (c *Coordinator) redirect(player Player, targetServerName string, origin Origin) RedirectOutcome {
	event := RedirectEvent{
		PlayerName: player.Name(),
		ServerName: targetServerName,
		Origin:     origin,
	}

	current, ok := player.CurrentServer()
	if !ok {
		event.Outcome = Ignored
		return c.finish(event)
	}
	target, registered := c.servers.ServerByName(targetServerName)

	switch {
	case registered && sameServer(current, target):
		event.Outcome = AlreadyConnected
		c.tell(player, outcomeMessage(AlreadyConnectedText, origin))
	case !registered:
		event.Outcome = ServerNotFound
		c.tell(player, outcomeMessage(ServerNotFoundText, origin))
	default:
		event.Outcome = Redirecting
		player.RequestConnectionSwitch(target)
	}
	return c.finish(event)
}

func (c *Coordinator) tell(player Player, msg chat.Message) {
	if err := player.SendMessage(msg); err != nil {
		log.Warn().Err(err).Str("player", player.Name()).Msg("could not send message to player")
	}
}

func (c *Coordinator) finish(event RedirectEvent) RedirectOutcome {
	redirectOutcomes.WithLabelValues(event.Outcome.String(), event.Origin.String()).Inc()
	log.Debug().
		Str("player", event.PlayerName).
		Str("server", event.ServerName).
		Stringer("origin", event.Origin).
		Stringer("outcome", event.Outcome).
		Msg("handled redirect")
	for _, observer := range c.observers {
		observer.ObserveRedirect(event)
	}
	return event.Outcome
}
