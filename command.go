package relay

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrCommandExists  = errors.New("command already registered")
)

type Command interface {
	Execute(source CommandSource, args []string) error
}

type CommandFunc func(source CommandSource, args []string) error

func (f CommandFunc) Execute(source CommandSource, args []string) error {
	return f(source, args)
}

func NewCommandManager() *CommandManager {
	return &CommandManager{
		commands: make(map[string]Command),
	}
}

type CommandManager struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// RegisterWithAliases binds cmd to name and every alias. Nothing is
// registered when one of them is already taken.
func (manager *CommandManager) RegisterWithAliases(name string, cmd Command, aliases ...string) error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	labels := append([]string{name}, aliases...)
	for _, label := range labels {
		if _, ok := manager.commands[strings.ToLower(label)]; ok {
			return errors.Wrapf(ErrCommandExists, "%q", label)
		}
	}
	for _, label := range labels {
		manager.commands[strings.ToLower(label)] = cmd
	}
	return nil
}

func (manager *CommandManager) HasCommand(label string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	_, ok := manager.commands[strings.ToLower(label)]
	return ok
}

// Execute runs a command line like "/lobby" or "l".
func (manager *CommandManager) Execute(source CommandSource, line string) error {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return ErrUnknownCommand
	}
	manager.mu.RLock()
	cmd, ok := manager.commands[strings.ToLower(fields[0])]
	manager.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrUnknownCommand, "%q", fields[0])
	}
	return cmd.Execute(source, fields[1:])
}

func NewLobbyCommand(coordinator *Coordinator) LobbyCommand {
	return LobbyCommand{coordinator: coordinator}
}

// LobbyCommand sends the player who runs it to the lobby server.
type LobbyCommand struct {
	coordinator *Coordinator
}

func (cmd LobbyCommand) Execute(source CommandSource, args []string) error {
	player, ok := source.(Player)
	if !ok {
		return source.SendMessage(errorMessage(PlayerOnlyText))
	}
	cmd.coordinator.Lobby(player)
	return nil
}

// RegisterLobbyCommand binds the lobby command as "lobby" with alias "l".
func RegisterLobbyCommand(manager *CommandManager, coordinator *Coordinator) error {
	return manager.RegisterWithAliases("lobby", NewLobbyCommand(coordinator), "l")
}
