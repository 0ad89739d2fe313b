package mc

import (
	"bufio"
	"net"
	"sync"
	"time"
)

type McConn interface {
	ReadPacket() (Packet, error)
	WritePacket(p Packet) error
	WriteMcPacket(p McPacket) error
}

var _ McConn = (*StreamConn)(nil)

// NewMcConn wraps conn, writes are safe to call from multiple goroutines.
func NewMcConn(conn net.Conn) *StreamConn {
	return &StreamConn{
		netConn: conn,
		reader:  bufio.NewReader(conn),
	}
}

type StreamConn struct {
	netConn net.Conn
	reader  DecodeReader

	writeMu sync.Mutex
}

func (conn *StreamConn) ReadPacket() (Packet, error) {
	return ReadPacket(conn.reader)
}

// ReadPacketWithin sets a read deadline for a single packet and clears it afterwards.
func (conn *StreamConn) ReadPacketWithin(timeout time.Duration) (Packet, error) {
	if err := conn.netConn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Packet{}, err
	}
	defer conn.netConn.SetReadDeadline(time.Time{})
	return ReadPacket(conn.reader)
}

func (conn *StreamConn) WritePacket(p Packet) error {
	bb, err := p.Marshal()
	if err != nil {
		return err
	}
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	_, err = conn.netConn.Write(bb)
	return err
}

func (conn *StreamConn) WriteMcPacket(s McPacket) error {
	return conn.WritePacket(s.MarshalPacket())
}

func (conn *StreamConn) Close() error {
	return conn.netConn.Close()
}

func (conn *StreamConn) RemoteAddr() net.Addr {
	return conn.netConn.RemoteAddr()
}
