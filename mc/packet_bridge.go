package mc

const (
	HelloPacketID         byte = 0x00
	PlayerJoinPacketID    byte = 0x01
	PlayerQuitPacketID    byte = 0x02
	PluginMessagePacketID byte = 0x03
	PlayerCommandPacketID byte = 0x04
	ChatMessagePacketID   byte = 0x05
	TransferPacketID      byte = 0x06
	DisconnectPacketID    byte = 0x07
)

// ServerBoundHello is the first packet a backend sends, it names the
// registered server the backend is running as.
type ServerBoundHello struct {
	ServerName String
}

func (pk ServerBoundHello) MarshalPacket() Packet {
	return MarshalPacket(HelloPacketID, pk.ServerName)
}

func UnmarshalServerBoundHello(packet Packet) (ServerBoundHello, error) {
	var pk ServerBoundHello
	if packet.ID != HelloPacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.ServerName)
	return pk, err
}

type ServerBoundPlayerJoin struct {
	Name String
}

func (pk ServerBoundPlayerJoin) MarshalPacket() Packet {
	return MarshalPacket(PlayerJoinPacketID, pk.Name)
}

func UnmarshalServerBoundPlayerJoin(packet Packet) (ServerBoundPlayerJoin, error) {
	var pk ServerBoundPlayerJoin
	if packet.ID != PlayerJoinPacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Name)
	return pk, err
}

type ServerBoundPlayerQuit struct {
	Name String
}

func (pk ServerBoundPlayerQuit) MarshalPacket() Packet {
	return MarshalPacket(PlayerQuitPacketID, pk.Name)
}

func UnmarshalServerBoundPlayerQuit(packet Packet) (ServerBoundPlayerQuit, error) {
	var pk ServerBoundPlayerQuit
	if packet.ID != PlayerQuitPacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Name)
	return pk, err
}

// PluginMessage travels both ways. Data is not length prefixed, it runs
// until the end of the packet.
type PluginMessage struct {
	Channel String
	Data    RestOfData
}

func (pk PluginMessage) MarshalPacket() Packet {
	return MarshalPacket(PluginMessagePacketID, pk.Channel, pk.Data)
}

func UnmarshalPluginMessage(packet Packet) (PluginMessage, error) {
	var pk PluginMessage
	if packet.ID != PluginMessagePacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Channel, &pk.Data)
	return pk, err
}

// ServerBoundPlayerCommand carries a command line typed by Player. An
// empty Player means the backend console issued it.
type ServerBoundPlayerCommand struct {
	Player String
	Line   String
}

func (pk ServerBoundPlayerCommand) MarshalPacket() Packet {
	return MarshalPacket(PlayerCommandPacketID, pk.Player, pk.Line)
}

func UnmarshalServerBoundPlayerCommand(packet Packet) (ServerBoundPlayerCommand, error) {
	var pk ServerBoundPlayerCommand
	if packet.ID != PlayerCommandPacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Player, &pk.Line)
	return pk, err
}

// ClientBoundChatMessage asks the backend to show a chat component to
// Player, or to log it on its console when Player is empty.
type ClientBoundChatMessage struct {
	Player String
	JSON   String
}

func (pk ClientBoundChatMessage) MarshalPacket() Packet {
	return MarshalPacket(ChatMessagePacketID, pk.Player, pk.JSON)
}

func UnmarshalClientBoundChatMessage(packet Packet) (ClientBoundChatMessage, error) {
	var pk ClientBoundChatMessage
	if packet.ID != ChatMessagePacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Player, &pk.JSON)
	return pk, err
}

// ClientBoundTransfer tells the backend currently holding Player to send
// them over to Server at Address.
type ClientBoundTransfer struct {
	Player  String
	Server  String
	Address String
}

func (pk ClientBoundTransfer) MarshalPacket() Packet {
	return MarshalPacket(TransferPacketID, pk.Player, pk.Server, pk.Address)
}

func UnmarshalClientBoundTransfer(packet Packet) (ClientBoundTransfer, error) {
	var pk ClientBoundTransfer
	if packet.ID != TransferPacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Player, &pk.Server, &pk.Address)
	return pk, err
}

type ClientBoundDisconnect struct {
	Reason String
}

func (pk ClientBoundDisconnect) MarshalPacket() Packet {
	return MarshalPacket(DisconnectPacketID, pk.Reason)
}

func UnmarshalClientBoundDisconnect(packet Packet) (ClientBoundDisconnect, error) {
	var pk ClientBoundDisconnect
	if packet.ID != DisconnectPacketID {
		return pk, ErrInvalidPacketID
	}
	err := packet.Scan(&pk.Reason)
	return pk, err
}
