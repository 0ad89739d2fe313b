package relay

import (
	"github.com/rs/zerolog/log"
)

// DispatchResult is what happened to a single plugin message.
type DispatchResult byte

const (
	DispatchIgnored DispatchResult = iota
	DispatchMalformed
	DispatchRedirect
	DispatchPassthrough
)

func (result DispatchResult) String() string {
	var text string
	switch result {
	case DispatchIgnored:
		text = "ignored"
	case DispatchMalformed:
		text = "malformed"
	case DispatchRedirect:
		text = "redirect"
	case DispatchPassthrough:
		text = "passthrough"
	}
	return text
}

func NewDispatcher(channel ChannelIdentifier, coordinator *Coordinator) *Dispatcher {
	return &Dispatcher{
		channel:     channel.String(),
		coordinator: coordinator,
	}
}

// Dispatcher turns plugin messages coming from backends into redirects,
// everything else it echoes back to where it came from.
type Dispatcher struct {
	channel     string
	coordinator *Coordinator
}

func (d *Dispatcher) HandlePluginMessage(source MessageSource, channel string, data []byte) DispatchResult {
	result := d.handle(source, channel, data)
	framesHandled.WithLabelValues(result.String()).Inc()
	return result
}

func (d *Dispatcher) handle(source MessageSource, channel string, data []byte) DispatchResult {
	backend, ok := source.(BackendConnection)
	if !ok || channel != d.channel {
		return DispatchIgnored
	}

	frame, err := Decode(data)
	if err != nil {
		log.Warn().Err(err).Stringer("backend", backend).Msg("dropping plugin message")
		return DispatchMalformed
	}

	switch cmd := frame.(type) {
	case RedirectCommand:
		d.coordinator.HandleRedirect(cmd.PlayerName, cmd.TargetServerName)
		return DispatchRedirect
	case PassthroughCommand:
		log.Info().
			Stringer("backend", backend).
			Uint8("type", cmd.Tag).
			Bytes("payload", cmd.Payload).
			Msg("echoing plugin message")
		if err := backend.SendPluginMessage(channel, cmd.Payload); err != nil {
			log.Warn().Err(err).Stringer("backend", backend).Msg("could not echo plugin message")
		}
		return DispatchPassthrough
	}
	return DispatchIgnored
}
