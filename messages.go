package relay

import "github.com/Tnze/go-mc/chat"

const (
	AlreadyConnectedText = "You're already in that server!"
	ServerNotFoundText   = "That server was not found!"
	PlayerOnlyText       = "This is a player only command!"

	colorRed = "red"
)

// Answers to a typed command are red, answers to a backend request are plain.
func outcomeMessage(text string, origin Origin) chat.Message {
	msg := chat.Text(text)
	if origin == OriginCommand {
		msg.Color = colorRed
	}
	return msg
}

func errorMessage(text string) chat.Message {
	msg := chat.Text(text)
	msg.Color = colorRed
	return msg
}
