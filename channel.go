package relay

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	DefaultChannel = "minibit:main"
	// RegisterChannel announces the channels a side is willing to receive.
	RegisterChannel = "minecraft:register"
)

var ErrInvalidChannel = errors.New("invalid channel identifier")

// ChannelIdentifier is a namespaced plugin messaging channel, like minibit:main.
type ChannelIdentifier struct {
	Namespace string
	Name      string
}

func ParseChannelIdentifier(id string) (ChannelIdentifier, error) {
	parts := strings.SplitN(id, ":", 2)
	if len(parts) != 2 {
		return ChannelIdentifier{}, errors.Wrapf(ErrInvalidChannel, "%q has no namespace", id)
	}
	channel := ChannelIdentifier{Namespace: parts[0], Name: parts[1]}
	if !validChannelPart(channel.Namespace, false) || !validChannelPart(channel.Name, true) {
		return ChannelIdentifier{}, errors.Wrapf(ErrInvalidChannel, "%q", id)
	}
	return channel, nil
}

func MustChannelIdentifier(id string) ChannelIdentifier {
	channel, err := ParseChannelIdentifier(id)
	if err != nil {
		panic(err)
	}
	return channel
}

func validChannelPart(part string, allowSlash bool) bool {
	if part == "" {
		return false
	}
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		case r == '/' && allowSlash:
		default:
			return false
		}
	}
	return true
}

func (id ChannelIdentifier) String() string {
	return id.Namespace + ":" + id.Name
}

type ChannelRegistrar struct {
	mu       sync.RWMutex
	channels map[string]ChannelIdentifier
	order    []string
}

func NewChannelRegistrar() *ChannelRegistrar {
	return &ChannelRegistrar{
		channels: make(map[string]ChannelIdentifier),
	}
}

func (registrar *ChannelRegistrar) Register(ids ...ChannelIdentifier) {
	registrar.mu.Lock()
	defer registrar.mu.Unlock()
	for _, id := range ids {
		key := id.String()
		if _, ok := registrar.channels[key]; ok {
			continue
		}
		registrar.channels[key] = id
		registrar.order = append(registrar.order, key)
	}
}

func (registrar *ChannelRegistrar) IsRegistered(channel string) bool {
	registrar.mu.RLock()
	defer registrar.mu.RUnlock()
	_, ok := registrar.channels[channel]
	return ok
}

// RegisterPayload is the data of a minecraft:register message listing
// every registered channel, each one followed by a NUL byte.
func (registrar *ChannelRegistrar) RegisterPayload() []byte {
	registrar.mu.RLock()
	defer registrar.mu.RUnlock()
	var payload []byte
	for _, key := range registrar.order {
		payload = append(payload, key...)
		payload = append(payload, 0x00)
	}
	return payload
}
