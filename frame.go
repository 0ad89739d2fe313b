package relay

import (
	"bytes"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var ErrMalformedFrame = errors.New("malformed frame")

const (
	RedirectType uint8 = 1

	FieldSeparator     = 0x00
	redirectFieldCount = 3
)

// Frame is one decoded message received on the relay channel.
type Frame interface {
	Type() uint8
}

// RedirectCommand asks the relay to move PlayerName to TargetServerName.
type RedirectCommand struct {
	PlayerName       string
	TargetServerName string
}

func (RedirectCommand) Type() uint8 {
	return RedirectType
}

// PassthroughCommand is every frame with a type tag the relay doesn't act
// on. Payload holds the bytes exactly as they were received.
type PassthroughCommand struct {
	Tag     uint8
	Payload []byte
}

func (cmd PassthroughCommand) Type() uint8 {
	return cmd.Tag
}

// Decode parses a single, complete frame. It never buffers: data has to
// contain exactly one message.
func Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrMalformedFrame, "empty frame")
	}

	fields := bytes.Split(trimLineEnd(data), []byte{FieldSeparator})
	tag, err := strconv.ParseUint(string(fields[0]), 10, 8)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedFrame, "type tag %q", fields[0])
	}

	switch uint8(tag) {
	case RedirectType:
		return decodeRedirect(fields)
	default:
		return PassthroughCommand{
			Tag:     uint8(tag),
			Payload: data,
		}, nil
	}
}

func decodeRedirect(fields [][]byte) (Frame, error) {
	if len(fields) != redirectFieldCount {
		return nil, errors.Wrapf(ErrMalformedFrame, "redirect needs %d fields, got %d", redirectFieldCount, len(fields))
	}
	player, server := fields[1], fields[2]
	if len(player) == 0 || len(server) == 0 {
		return nil, errors.Wrap(ErrMalformedFrame, "redirect with empty player or server name")
	}
	if !utf8.Valid(player) || !utf8.Valid(server) {
		return nil, errors.Wrap(ErrMalformedFrame, "redirect fields are not valid utf-8")
	}
	return RedirectCommand{
		PlayerName:       string(player),
		TargetServerName: string(server),
	}, nil
}

// Backends may write the frame as a text line, the terminator isn't part of the last field.
func trimLineEnd(data []byte) []byte {
	data = bytes.TrimSuffix(data, []byte("\n"))
	return bytes.TrimSuffix(data, []byte("\r"))
}

// EncodeRedirect builds the frame a backend sends to move a player.
func EncodeRedirect(playerName, targetServerName string) []byte {
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(int(RedirectType)))
	buf.WriteByte(FieldSeparator)
	buf.WriteString(playerName)
	buf.WriteByte(FieldSeparator)
	buf.WriteString(targetServerName)
	return buf.Bytes()
}
