package bridge

import (
	"net"
	"sort"
	"sync"
	"time"

	"github.com/minibit/relay"
	"github.com/minibit/relay/mc"
	"github.com/minibit/relay/proxy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ServerLookup interface {
	Lookup(name string) (*proxy.Server, bool)
}

type PluginMessageHandler interface {
	HandlePluginMessage(source relay.MessageSource, channel string, data []byte) relay.DispatchResult
}

type CommandExecutor interface {
	Execute(source relay.CommandSource, line string) error
}

type Config struct {
	IOTimeout       time.Duration
	NumberOfWorkers int
	QueueSize       int
	Limiter         ConnectionLimiter
}

func DefaultConfig() Config {
	return Config{
		IOTimeout:       time.Second,
		NumberOfWorkers: 10,
		QueueSize:       50,
		Limiter:         AlwaysAllowConnection{},
	}
}

type pluginJob struct {
	session *Session
	channel string
	data    []byte
}

func New(cfg Config, servers ServerLookup, players *proxy.PlayerRegistry, handler PluginMessageHandler, commands CommandExecutor, registrar *relay.ChannelRegistrar) *Bridge {
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.Limiter == nil {
		cfg.Limiter = AlwaysAllowConnection{}
	}
	return &Bridge{
		cfg:       cfg,
		servers:   servers,
		players:   players,
		handler:   handler,
		commands:  commands,
		registrar: registrar,
		jobs:      make(chan pluginJob, cfg.QueueSize),
		done:      make(chan struct{}),
		sessions:  make(map[string]*Session),
	}
}

// Bridge accepts connections from backend servers and hands the packets
// they send to the relay.
type Bridge struct {
	cfg       Config
	servers   ServerLookup
	players   *proxy.PlayerRegistry
	handler   PluginMessageHandler
	commands  CommandExecutor
	registrar *relay.ChannelRegistrar

	jobs      chan pluginJob
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Start runs the plugin message workers.
func (b *Bridge) Start() {
	for i := 0; i < b.cfg.NumberOfWorkers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.work()
		}()
	}
	log.Info().Int("workers", b.cfg.NumberOfWorkers).Msg("started plugin message workers")
}

func (b *Bridge) work() {
	for {
		select {
		case <-b.done:
			return
		case job := <-b.jobs:
			result := b.handler.HandlePluginMessage(job.session, job.channel, job.data)
			log.Debug().
				Stringer("backend", job.session).
				Str("channel", job.channel).
				Stringer("result", result).
				Msg("handled plugin message")
		}
	}
}

func (b *Bridge) enqueue(job pluginJob) bool {
	select {
	case b.jobs <- job:
		return true
	case <-b.done:
		return false
	}
}

// Serve accepts connections until the listener is closed.
func (b *Bridge) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Info().Str("addr", listener.Addr().String()).Msg("listener was closed, shutting down listener")
				return nil
			}
			select {
			case <-b.done:
				return nil
			default:
			}
			log.Warn().Err(err).Msg("accepting connection failed")
			continue
		}
		if !b.cfg.Limiter.Allow(conn.RemoteAddr()) {
			connectionsDenied.Inc()
			conn.Close()
			continue
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleConn(conn)
		}()
	}
}

func (b *Bridge) handleConn(c net.Conn) {
	conn := mc.NewMcConn(c)
	logger := log.With().Str("remote", c.RemoteAddr().String()).Logger()

	pk, err := conn.ReadPacketWithin(b.cfg.IOTimeout)
	if err != nil {
		logger.Debug().Err(err).Msg("no hello from backend")
		b.cfg.Limiter.Ban(c.RemoteAddr())
		c.Close()
		return
	}
	hello, err := mc.UnmarshalServerBoundHello(pk)
	if err != nil {
		logger.Debug().Err(err).Msg("first packet was not a hello")
		b.cfg.Limiter.Ban(c.RemoteAddr())
		disconnect(conn, "Expected a hello packet")
		return
	}
	server, ok := b.servers.Lookup(string(hello.ServerName))
	if !ok {
		logger.Warn().Str("server", string(hello.ServerName)).Msg("unknown server tried to connect")
		b.cfg.Limiter.Ban(c.RemoteAddr())
		disconnect(conn, "Unknown server: "+string(hello.ServerName))
		return
	}

	session := newSession(b, conn, server)
	if !b.addSession(session) {
		session.Close()
		return
	}
	defer b.removeSession(session)

	err = conn.WriteMcPacket(mc.PluginMessage{
		Channel: mc.String(relay.RegisterChannel),
		Data:    mc.RestOfData(b.registrar.RegisterPayload()),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("could not register channels")
		return
	}
	session.readLoop()
}

func disconnect(conn *mc.StreamConn, reason string) {
	conn.WriteMcPacket(mc.ClientBoundDisconnect{Reason: mc.String(reason)})
	conn.Close()
}

func (b *Bridge) addSession(session *Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return false
	default:
	}
	b.sessions[session.ID()] = session
	backendsConnected.Inc()
	log.Info().Stringer("backend", session).Msg("backend connected")
	return true
}

func (b *Bridge) removeSession(session *Session) {
	session.Close()
	b.mu.Lock()
	delete(b.sessions, session.ID())
	b.mu.Unlock()
	backendsConnected.Dec()
	dropped := b.players.DropSession(session)
	log.Info().Stringer("backend", session).Int("droppedPlayers", dropped).Msg("backend disconnected")
}

// Sessions returns the connected backends sorted by server name.
func (b *Bridge) Sessions() []*Session {
	b.mu.RLock()
	sessions := make([]*Session, 0, len(b.sessions))
	for _, session := range b.sessions {
		sessions = append(sessions, session)
	}
	b.mu.RUnlock()
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].server.Name() != sessions[j].server.Name() {
			return sessions[i].server.Name() < sessions[j].server.Name()
		}
		return sessions[i].id < sessions[j].id
	})
	return sessions
}

// Close disconnects every backend and waits for the workers to stop. The
// listener given to Serve has to be closed by the caller.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.done)
		for _, session := range b.sessions {
			session.Close()
		}
		b.mu.Unlock()
	})
	b.wg.Wait()
}
