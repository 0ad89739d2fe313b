package bridge

import (
	"encoding/json"
	"io"
	"net"
	"sync"

	"github.com/Tnze/go-mc/chat"
	"github.com/google/uuid"
	"github.com/minibit/relay"
	"github.com/minibit/relay/mc"
	"github.com/minibit/relay/proxy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrSessionClosed = errors.New("session closed")

func newSession(bridge *Bridge, conn *mc.StreamConn, server *proxy.Server) *Session {
	session := &Session{
		id:     uuid.NewString(),
		bridge: bridge,
		conn:   conn,
		server: server,
		closed: make(chan struct{}),
	}
	session.logger = log.With().
		Str("session", session.id).
		Str("server", server.Name()).
		Logger()
	return session
}

// Session is the connection with a single backend server.
type Session struct {
	id     string
	bridge *Bridge
	conn   *mc.StreamConn
	server *proxy.Server
	logger zerolog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func (session *Session) ID() string {
	return session.id
}

func (session *Session) Server() *proxy.Server {
	return session.server
}

func (session *Session) RemoteAddr() net.Addr {
	return session.conn.RemoteAddr()
}

func (session *Session) String() string {
	return session.server.Name()
}

func (session *Session) Close() {
	session.closeOnce.Do(func() {
		close(session.closed)
		session.conn.Close()
	})
}

func (session *Session) write(pk mc.McPacket) error {
	select {
	case <-session.closed:
		return ErrSessionClosed
	default:
	}
	return session.conn.WriteMcPacket(pk)
}

func (session *Session) SendPluginMessage(channel string, data []byte) error {
	return session.write(mc.PluginMessage{
		Channel: mc.String(channel),
		Data:    mc.RestOfData(data),
	})
}

// SendChat shows msg to player, an empty player means the console.
func (session *Session) SendChat(player string, msg chat.Message) error {
	bb, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encoding chat message")
	}
	return session.write(mc.ClientBoundChatMessage{
		Player: mc.String(player),
		JSON:   mc.String(bb),
	})
}

func (session *Session) SendTransfer(player string, server *proxy.Server) error {
	return session.write(mc.ClientBoundTransfer{
		Player:  mc.String(player),
		Server:  mc.String(server.Name()),
		Address: mc.String(server.Address()),
	})
}

func (session *Session) readLoop() {
	for {
		pk, err := session.conn.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				session.logger.Debug().Msg("backend closed the connection")
			} else {
				select {
				case <-session.closed:
				default:
					session.logger.Warn().Err(err).Msg("reading packet failed")
				}
			}
			return
		}
		if err := session.handlePacket(pk); err != nil {
			session.logger.Warn().Err(err).Uint8("packetID", pk.ID).Msg("could not handle packet")
		}
	}
}

func (session *Session) handlePacket(pk mc.Packet) error {
	switch pk.ID {
	case mc.PlayerJoinPacketID:
		join, err := mc.UnmarshalServerBoundPlayerJoin(pk)
		if err != nil {
			return err
		}
		session.bridge.players.Join(string(join.Name), session.server, session)
		session.logger.Debug().Str("player", string(join.Name)).Msg("player joined")
	case mc.PlayerQuitPacketID:
		quit, err := mc.UnmarshalServerBoundPlayerQuit(pk)
		if err != nil {
			return err
		}
		session.bridge.players.Quit(string(quit.Name), session)
		session.logger.Debug().Str("player", string(quit.Name)).Msg("player quit")
	case mc.PluginMessagePacketID:
		msg, err := mc.UnmarshalPluginMessage(pk)
		if err != nil {
			return err
		}
		session.bridge.enqueue(pluginJob{
			session: session,
			channel: string(msg.Channel),
			data:    []byte(msg.Data),
		})
	case mc.PlayerCommandPacketID:
		cmd, err := mc.UnmarshalServerBoundPlayerCommand(pk)
		if err != nil {
			return err
		}
		return session.executeCommand(string(cmd.Player), string(cmd.Line))
	default:
		session.logger.Debug().Uint8("packetID", pk.ID).Msg("skipping unknown packet")
	}
	return nil
}

func (session *Session) executeCommand(playerName, line string) error {
	var source relay.CommandSource = consoleSource{session: session}
	if playerName != "" {
		player, ok := session.bridge.players.Lookup(playerName)
		if !ok {
			return errors.Errorf("command from unknown player %s", playerName)
		}
		source = player
	}
	err := session.bridge.commands.Execute(source, line)
	if errors.Is(err, relay.ErrUnknownCommand) {
		session.logger.Debug().Str("line", line).Msg("unknown command")
		return nil
	}
	return err
}

// consoleSource answers commands typed on a backend console.
type consoleSource struct {
	session *Session
}

func (source consoleSource) SendMessage(msg chat.Message) error {
	return source.session.SendChat("", msg)
}
