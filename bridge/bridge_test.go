package bridge_test

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Tnze/go-mc/chat"
	"github.com/google/go-cmp/cmp"
	"github.com/minibit/relay"
	"github.com/minibit/relay/bridge"
	"github.com/minibit/relay/config"
	"github.com/minibit/relay/mc"
	"github.com/minibit/relay/proxy"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	addr    string
	bridge  *bridge.Bridge
	players *proxy.PlayerRegistry
	servers *proxy.ServerManager
}

type testLimiter struct {
	mu     sync.Mutex
	banned []string
}

func (limiter *testLimiter) Allow(addr net.Addr) bool {
	return true
}

func (limiter *testLimiter) Ban(addr net.Addr) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	limiter.banned = append(limiter.banned, bridge.FilterIpFromAddr(addr))
}

func (limiter *testLimiter) bans() []string {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return append([]string(nil), limiter.banned...)
}

func serverCfg(name, address string) config.ServerConfig {
	cfg := config.DefaultServerConfig()
	cfg.Name = name
	cfg.Address = address
	cfg.StateOption = config.StateAlwaysOnline
	return cfg
}

func newTestEnv(t *testing.T, options ...func(*bridge.Config)) testEnv {
	t.Helper()
	reader := func() ([]config.ServerConfig, error) {
		return []config.ServerConfig{
			serverCfg("lobby", "10.0.0.1:25565"),
			serverCfg("bedwars", "10.0.0.2:25565"),
		}, nil
	}
	servers, err := proxy.NewServerManager(reader, proxy.NewServer)
	if err != nil {
		t.Fatal(err)
	}
	players := proxy.NewPlayerRegistry()
	coordinator := relay.NewCoordinator(players, servers, "lobby")
	channel := relay.MustChannelIdentifier(relay.DefaultChannel)
	dispatcher := relay.NewDispatcher(channel, coordinator)
	commands := relay.NewCommandManager()
	if err := relay.RegisterLobbyCommand(commands, coordinator); err != nil {
		t.Fatal(err)
	}
	registrar := relay.NewChannelRegistrar()
	registrar.Register(channel)

	cfg := bridge.DefaultConfig()
	cfg.NumberOfWorkers = 2
	for _, option := range options {
		option(&cfg)
	}
	b := bridge.New(cfg, servers, players, dispatcher, commands, registrar)
	b.Start()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan struct{})
	go func() {
		b.Serve(listener)
		close(served)
	}()
	t.Cleanup(func() {
		listener.Close()
		<-served
		b.Close()
		players.WaitSwitches()
	})
	return testEnv{
		addr:    listener.Addr().String(),
		bridge:  b,
		players: players,
		servers: servers,
	}
}

type testBackend struct {
	t    *testing.T
	conn net.Conn
	mc   *mc.StreamConn
}

func (env testEnv) connect(t *testing.T, serverName string) testBackend {
	t.Helper()
	conn, err := net.Dial("tcp", env.addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	backend := testBackend{t: t, conn: conn, mc: mc.NewMcConn(conn)}
	backend.send(mc.ServerBoundHello{ServerName: mc.String(serverName)})
	return backend
}

func (backend testBackend) send(pk mc.McPacket) {
	backend.t.Helper()
	if err := backend.mc.WriteMcPacket(pk); err != nil {
		backend.t.Fatalf("writing packet: %v", err)
	}
}

func (backend testBackend) read() mc.Packet {
	backend.t.Helper()
	pk, err := backend.mc.ReadPacketWithin(time.Second)
	if err != nil {
		backend.t.Fatalf("reading packet: %v", err)
	}
	return pk
}

func (backend testBackend) readRegister() {
	backend.t.Helper()
	msg, err := mc.UnmarshalPluginMessage(backend.read())
	if err != nil {
		backend.t.Fatal(err)
	}
	if msg.Channel != relay.RegisterChannel || string(msg.Data) != "minibit:main\x00" {
		backend.t.Errorf("unexpected register message: %s %q", msg.Channel, msg.Data)
	}
}

func (backend testBackend) readChat() (string, chat.Message) {
	backend.t.Helper()
	pk, err := mc.UnmarshalClientBoundChatMessage(backend.read())
	if err != nil {
		backend.t.Fatal(err)
	}
	var msg chat.Message
	if err := json.Unmarshal([]byte(pk.JSON), &msg); err != nil {
		backend.t.Fatal(err)
	}
	return string(pk.Player), msg
}

// join registers the player and waits until the relay knows about it.
func (env testEnv) join(t *testing.T, backend testBackend, name string) *proxy.Player {
	t.Helper()
	backend.send(mc.ServerBoundPlayerJoin{Name: mc.String(name)})
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if player, ok := env.players.Lookup(name); ok {
			return player
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%s never joined", name)
	return nil
}

func TestBridge_Redirect(t *testing.T) {
	env := newTestEnv(t)
	backend := env.connect(t, "lobby")
	backend.readRegister()
	player := env.join(t, backend, "Alice")

	backend.send(mc.PluginMessage{
		Channel: relay.DefaultChannel,
		Data:    mc.RestOfData(relay.EncodeRedirect("Alice", "bedwars")),
	})

	transfer, err := mc.UnmarshalClientBoundTransfer(backend.read())
	if err != nil {
		t.Fatal(err)
	}
	expected := mc.ClientBoundTransfer{Player: "Alice", Server: "bedwars", Address: "10.0.0.2:25565"}
	if diff := cmp.Diff(expected, transfer); diff != "" {
		t.Errorf("transfer mismatch (-want +got):\n%s", diff)
	}
	env.players.WaitSwitches()
	lobby, _ := env.servers.Lookup("lobby")
	if server, _ := player.Server(); server != lobby {
		t.Errorf("expected Alice on lobby until bedwars reports her but got %v", server)
	}

	target := env.connect(t, "bedwars")
	target.readRegister()
	env.join(t, target, "Alice")
	bedwars, _ := env.servers.Lookup("bedwars")
	deadline := time.Now().Add(time.Second)
	for {
		if server, _ := player.Server(); server == bedwars {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Alice never arrived on bedwars")
		}
		time.Sleep(time.Millisecond)
	}

	backend.send(mc.ServerBoundPlayerQuit{Name: "Alice"})
	backend.send(mc.PluginMessage{
		Channel: relay.DefaultChannel,
		Data:    mc.RestOfData(relay.EncodeRedirect("Alice", "bedwars")),
	})
	_, msg := target.readChat()
	if msg.Text != relay.AlreadyConnectedText {
		t.Errorf("expected Alice to still be on bedwars but got %q", msg.Text)
	}
}

func TestBridge_AlreadyConnected(t *testing.T) {
	env := newTestEnv(t)
	backend := env.connect(t, "lobby")
	backend.readRegister()
	env.join(t, backend, "Alice")

	backend.send(mc.PluginMessage{
		Channel: relay.DefaultChannel,
		Data:    mc.RestOfData(relay.EncodeRedirect("Alice", "lobby")),
	})

	player, msg := backend.readChat()
	if player != "Alice" || msg.Text != relay.AlreadyConnectedText {
		t.Errorf("unexpected chat for %q: %q", player, msg.Text)
	}
}

func TestBridge_Passthrough(t *testing.T) {
	env := newTestEnv(t)
	backend := env.connect(t, "lobby")
	backend.readRegister()

	payload := []byte("7\x00stats\x00Alice")
	backend.send(mc.PluginMessage{Channel: relay.DefaultChannel, Data: payload})

	echo, err := mc.UnmarshalPluginMessage(backend.read())
	if err != nil {
		t.Fatal(err)
	}
	if echo.Channel != relay.DefaultChannel || string(echo.Data) != string(payload) {
		t.Errorf("unexpected echo: %s %q", echo.Channel, echo.Data)
	}
}

func TestBridge_Commands(t *testing.T) {
	t.Run("console is refused", func(t *testing.T) {
		env := newTestEnv(t)
		backend := env.connect(t, "lobby")
		backend.readRegister()

		backend.send(mc.ServerBoundPlayerCommand{Line: "/lobby"})
		player, msg := backend.readChat()
		if player != "" || msg.Text != relay.PlayerOnlyText || msg.Color != "red" {
			t.Errorf("unexpected chat for %q: %q %q", player, msg.Text, msg.Color)
		}
	})

	t.Run("player is sent to the lobby", func(t *testing.T) {
		env := newTestEnv(t)
		backend := env.connect(t, "bedwars")
		backend.readRegister()
		env.join(t, backend, "Alice")

		backend.send(mc.ServerBoundPlayerCommand{Player: "Alice", Line: "/l"})
		transfer, err := mc.UnmarshalClientBoundTransfer(backend.read())
		if err != nil {
			t.Fatal(err)
		}
		if transfer.Player != "Alice" || transfer.Server != "lobby" {
			t.Errorf("unexpected transfer: %v", transfer)
		}
	})
}

func TestBridge_Handshake(t *testing.T) {
	t.Run("unknown server is disconnected", func(t *testing.T) {
		env := newTestEnv(t)
		backend := env.connect(t, "skywars")
		disconnect, err := mc.UnmarshalClientBoundDisconnect(backend.read())
		if err != nil {
			t.Fatal(err)
		}
		if disconnect.Reason != "Unknown server: skywars" {
			t.Errorf("unexpected reason: %s", disconnect.Reason)
		}
	})

	t.Run("quit and disconnect drop players", func(t *testing.T) {
		env := newTestEnv(t)
		backend := env.connect(t, "lobby")
		backend.readRegister()
		env.join(t, backend, "Alice")
		env.join(t, backend, "Bob")

		backend.send(mc.ServerBoundPlayerQuit{Name: "Alice"})
		backend.conn.Close()

		deadline := time.Now().Add(time.Second)
		for len(env.players.Players()) != 0 {
			if time.Now().After(deadline) {
				t.Fatalf("players left behind: %v", env.players.Players())
			}
			time.Sleep(time.Millisecond)
		}
	})
}

func TestBridge_SilentConnectionIsBanned(t *testing.T) {
	limiter := &testLimiter{}
	env := newTestEnv(t, func(cfg *bridge.Config) {
		cfg.IOTimeout = 50 * time.Millisecond
		cfg.Limiter = limiter
	})
	conn, err := net.Dial("tcp", env.addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("expected the relay to close the connection")
	}
	if diff := cmp.Diff([]string{"127.0.0.1"}, limiter.bans()); diff != "" {
		t.Errorf("bans mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_Sessions(t *testing.T) {
	env := newTestEnv(t)
	lobby := env.connect(t, "lobby")
	lobby.readRegister()
	bedwars := env.connect(t, "bedwars")
	bedwars.readRegister()

	var names []string
	for _, session := range env.bridge.Sessions() {
		names = append(names, session.Server().Name())
	}
	if diff := cmp.Diff([]string{"bedwars", "lobby"}, names); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
}
