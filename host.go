package relay

import (
	"fmt"

	"github.com/Tnze/go-mc/chat"
)

// Server is a registry handle for a backend server. Handles are compared
// by identity, so implementations have to be comparable (pointers).
type Server interface {
	Name() string
}

type ServerRegistry interface {
	ServerByName(name string) (Server, bool)
}

// CommandSource is anyone able to run a command and read the answer.
type CommandSource interface {
	SendMessage(msg chat.Message) error
}

type Player interface {
	CommandSource
	Name() string
	CurrentServer() (Server, bool)
	// RequestConnectionSwitch starts moving the player to server and
	// returns right away, the outcome is never reported back.
	RequestConnectionSwitch(server Server)
}

type PlayerRegistry interface {
	PlayerByName(name string) (Player, bool)
}

// MessageSource is whoever sent a plugin message.
type MessageSource interface {
	fmt.Stringer
}

// BackendConnection is the connection between the relay and one backend server.
type BackendConnection interface {
	MessageSource
	SendPluginMessage(channel string, data []byte) error
}

func sameServer(a, b Server) bool {
	return a != nil && b != nil && a == b
}
