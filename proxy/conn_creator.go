package proxy

import (
	"net"

	"github.com/pires/go-proxyproto"
)

type ConnectionCreator interface {
	Conn() func() (net.Conn, error)
}

type ConnectionCreatorFunc func() (net.Conn, error)

func (creator ConnectionCreatorFunc) Conn() func() (net.Conn, error) {
	return creator
}

func BasicConnCreator(address string, dialer net.Dialer) ConnectionCreatorFunc {
	return func() (net.Conn, error) {
		return dialer.Dial("tcp", address)
	}
}

// ProxyProtocolConnCreator writes a PROXY protocol v2 header on every new
// connection, for backends sitting behind a proxy protocol listener.
func ProxyProtocolConnCreator(creator ConnectionCreator) ConnectionCreatorFunc {
	return func() (net.Conn, error) {
		serverConn, err := creator.Conn()()
		if err != nil {
			return serverConn, err
		}
		header := &proxyproto.Header{
			Version:           2,
			Command:           proxyproto.PROXY,
			TransportProtocol: transportProtocol(serverConn.LocalAddr()),
			SourceAddr:        serverConn.LocalAddr(),
			DestinationAddr:   serverConn.RemoteAddr(),
		}
		_, err = header.WriteTo(serverConn)
		if err != nil {
			serverConn.Close()
			return nil, err
		}
		return serverConn, nil
	}
}

func transportProtocol(addr net.Addr) proxyproto.AddressFamilyAndProtocol {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if ok && tcpAddr.IP.To4() == nil {
		return proxyproto.TCPv6
	}
	return proxyproto.TCPv4
}
