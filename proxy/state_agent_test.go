package proxy_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/minibit/relay/proxy"
)

var errEmptyConnCreator = errors.New("this is a test conn creator which doesnt provide connections")

func TestAlwaysOnlineState(t *testing.T) {
	stateAgent := proxy.AlwaysOnlineState{}

	if stateAgent.State() != proxy.Online {
		t.Errorf("expected to be online but got %v instead", stateAgent.State())
	}
}

func TestAlwaysOfflineState(t *testing.T) {
	stateAgent := proxy.AlwaysOfflineState{}

	if stateAgent.State() != proxy.Offline {
		t.Errorf("expected to be offline but got %v instead", stateAgent.State())
	}
}

type stateConnCreator struct {
	callAmount  int
	returnError bool
}

func (creator *stateConnCreator) Conn() func() (net.Conn, error) {
	creator.callAmount++
	if creator.returnError {
		return func() (net.Conn, error) {
			return nil, errEmptyConnCreator
		}
	}
	return func() (net.Conn, error) {
		c1, c2 := net.Pipe()
		c2.Close()
		return c1, nil
	}
}

func TestMcServerState(t *testing.T) {
	tt := []struct {
		returnError   bool
		expectedState proxy.ServerState
	}{
		{
			expectedState: proxy.Offline,
			returnError:   true,
		},
		{
			expectedState: proxy.Online,
			returnError:   false,
		},
	}
	t.Run("single run state", func(t *testing.T) {
		for _, tc := range tt {
			name := fmt.Sprintf("returnError:%v - expectedState:%v", tc.returnError, tc.expectedState)
			t.Run(name, func(t *testing.T) {
				connCreator := stateConnCreator{
					returnError: tc.returnError,
				}
				stateAgent := proxy.NewMcServerState(time.Minute, &connCreator)
				state := stateAgent.State()
				if state != tc.expectedState {
					t.Errorf("expected to be %v but got %v instead", tc.expectedState, state)
				}
				if connCreator.callAmount != 1 {
					t.Errorf("expected connCreator to be called %v times but was called %v time", 1, connCreator.callAmount)
				}
			})
		}
	})

	t.Run("doesnt call again while in cooldown", func(t *testing.T) {
		for _, tc := range tt {
			name := fmt.Sprintf("returnError:%v - expectedState:%v", tc.returnError, tc.expectedState)
			t.Run(name, func(t *testing.T) {
				connCreator := stateConnCreator{
					returnError: tc.returnError,
				}
				stateAgent := proxy.NewMcServerState(time.Minute, &connCreator)
				stateAgent.State()
				stateAgent.State()
				if connCreator.callAmount != 1 {
					t.Errorf("expected connCreator to be called %v times but was called %v time", 1, connCreator.callAmount)
				}
			})
		}
	})

	t.Run("does call again after cooldown", func(t *testing.T) {
		connCreator := stateConnCreator{}
		cooldown := time.Millisecond
		stateAgent := proxy.NewMcServerState(cooldown, &connCreator)
		stateAgent.State()
		time.Sleep(2 * cooldown)
		stateAgent.State()
		if connCreator.callAmount != 2 {
			t.Errorf("expected connCreator to be called %v times but was called %v time", 2, connCreator.callAmount)
		}
	})
}

func TestProxyProtocolConnCreator(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer conn.Close()
		bb := make([]byte, 12)
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _ := io.ReadFull(conn, bb)
		received <- bb[:n]
	}()

	dialer := net.Dialer{Timeout: time.Second}
	creator := proxy.ProxyProtocolConnCreator(proxy.BasicConnCreator(listener.Addr().String(), dialer))
	conn, err := creator.Conn()()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	signature := []byte("\r\n\r\n\x00\r\nQUIT\n")
	got := <-received
	if string(got) != string(signature) {
		t.Errorf("expected a proxy protocol v2 signature but got %q", got)
	}
}
