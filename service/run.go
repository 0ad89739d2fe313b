package service

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minibit/relay"
	"github.com/minibit/relay/api"
	"github.com/minibit/relay/bridge"
	"github.com/minibit/relay/config"
	"github.com/minibit/relay/proxy"
	"github.com/minibit/relay/telemetry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Relay is every long running part of the relay wired together.
type Relay struct {
	Config    config.RelayConfig
	Servers   *proxy.ServerManager
	Players   *proxy.PlayerRegistry
	Bridge    *bridge.Bridge
	API       *api.API
	publisher *telemetry.MQTTPublisher
}

// New wires the relay together without listening on anything yet.
func New(cfg config.RelayConfig, serverReader config.ServerConfigReader) (*Relay, error) {
	channel, err := relay.ParseChannelIdentifier(cfg.Channel)
	if err != nil {
		return nil, errors.Wrap(err, "channel")
	}
	servers, err := proxy.NewServerManager(serverReader, proxy.NewServer)
	if err != nil {
		return nil, err
	}
	players := proxy.NewPlayerRegistry()

	r := &Relay{
		Config:  cfg,
		Servers: servers,
		Players: players,
	}
	var observers []relay.OutcomeObserver
	if cfg.MQTT.Enabled {
		publisher, err := telemetry.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		if err := publisher.Connect(shutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("running without MQTT telemetry")
		} else {
			r.publisher = publisher
			observers = append(observers, publisher)
		}
	}

	coordinator := relay.NewCoordinator(players, servers, cfg.LobbyServer, observers...)
	dispatcher := relay.NewDispatcher(channel, coordinator)
	commands := relay.NewCommandManager()
	if err := relay.RegisterLobbyCommand(commands, coordinator); err != nil {
		return nil, err
	}
	registrar := relay.NewChannelRegistrar()
	registrar.Register(channel)

	bridgeCfg := bridge.Config{
		IOTimeout:       cfg.IOTimeout,
		NumberOfWorkers: cfg.NumberOfWorkers,
		QueueSize:       cfg.NumberOfWorkers * 5,
		Limiter:         bridge.NewConnLimiter(cfg.RateLimit, cfg.RateCooldown, cfg.BanListCooldown),
	}
	r.Bridge = bridge.New(bridgeCfg, servers, players, dispatcher, commands, registrar)
	r.API = api.NewAPI(servers, players, r.Bridge)
	return r, nil
}

// Listeners are the sockets a relay serves on.
type Listeners struct {
	Bridge  net.Listener
	API     net.Listener
	Metrics net.Listener
}

func (ls *Listeners) Close() {
	for _, ln := range []net.Listener{ls.Bridge, ls.API, ls.Metrics} {
		if ln != nil {
			ln.Close()
		}
	}
}

// Listen opens every socket the relay config asks for.
func (r *Relay) Listen(listen ListenFunc) (*Listeners, error) {
	ls := &Listeners{}
	var err error
	ls.Bridge, err = createBridgeListener(r.Config, listen)
	if err != nil {
		return nil, err
	}
	ls.API, err = listen("tcp", r.Config.APIBind)
	if err != nil {
		ls.Close()
		return nil, errors.Wrapf(err, "listening on %s", r.Config.APIBind)
	}
	if r.Config.EnablePrometheus {
		ls.Metrics, err = listen("tcp", r.Config.PrometheusBind)
		if err != nil {
			ls.Close()
			return nil, errors.Wrapf(err, "listening on %s", r.Config.PrometheusBind)
		}
	}
	return ls, nil
}

// Serve runs until ctx is done or one of the listeners fails. It closes
// the listeners before returning.
func (r *Relay) Serve(ctx context.Context, ls *Listeners) error {
	var metricsServer *http.Server
	if ls.Metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Handler: mux}
	}

	r.Bridge.Start()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.Config.NumberOfListeners; i++ {
		g.Go(func() error {
			return r.Bridge.Serve(ls.Bridge)
		})
	}
	log.Info().Str("addr", ls.Bridge.Addr().String()).Int("listeners", r.Config.NumberOfListeners).Msg("accepting backends")
	g.Go(func() error {
		return r.API.Serve(ls.API)
	})
	if metricsServer != nil {
		g.Go(func() error {
			log.Info().Str("addr", ls.Metrics.Addr().String()).Msg("serving metrics")
			err := metricsServer.Serve(ls.Metrics)
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		ls.Bridge.Close()
		r.API.Shutdown(shutdownCtx)
		if metricsServer != nil {
			metricsServer.Shutdown(shutdownCtx)
		}
		r.Bridge.Close()
		r.Players.WaitSwitches()
		if r.publisher != nil {
			r.publisher.Close()
		}
		return nil
	})
	return g.Wait()
}

// Run starts the relay with the configs in configDir and blocks until it
// is told to stop.
func Run(configDir, version string) error {
	cfg, err := config.NewRelayConfigFileReader(configDir)()
	if err != nil {
		return err
	}
	SetupLogging(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("version", version).Str("config", configDir).Msg("starting relay")

	serverReader := config.NewServerConfigFileReader(configDir, config.VerifyServerConfigs)
	r, err := New(cfg, serverReader.Read)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !useHotSwap(cfg, version) {
		ls, err := r.Listen(net.Listen)
		if err != nil {
			return err
		}
		return r.Serve(ctx, ls)
	}

	upg, err := newUpgrader(cfg, configDir)
	if err != nil {
		return err
	}
	defer upg.Stop()
	ls, err := r.Listen(upg.Listen)
	if err != nil {
		return err
	}
	if err := upg.Ready(); err != nil {
		ls.Close()
		return errors.Wrap(err, "upgrader not ready")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-upg.Exit()
		log.Info().Msg("upgraded, handing over to the new process")
		cancel()
	}()
	return r.Serve(ctx, ls)
}
