package relay_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/minibit/relay"
)

func TestDecode(t *testing.T) {
	tt := []struct {
		name     string
		data     []byte
		expected relay.Frame
	}{
		{
			name: "redirect",
			data: []byte("1\x00Alice\x00lobby"),
			expected: relay.RedirectCommand{
				PlayerName:       "Alice",
				TargetServerName: "lobby",
			},
		},
		{
			name: "redirect written as a line",
			data: []byte("1\x00Alice\x00bedwars\r\n"),
			expected: relay.RedirectCommand{
				PlayerName:       "Alice",
				TargetServerName: "bedwars",
			},
		},
		{
			name: "unknown type is passed through untouched",
			data: []byte("7\x00hello\n"),
			expected: relay.PassthroughCommand{
				Tag:     7,
				Payload: []byte("7\x00hello\n"),
			},
		},
		{
			name: "tag without fields",
			data: []byte("0"),
			expected: relay.PassthroughCommand{
				Tag:     0,
				Payload: []byte("0"),
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := relay.Decode(tc.data)
			if err != nil {
				t.Fatalf("didnt expect an error but got: %v", err)
			}
			if diff := cmp.Diff(tc.expected, frame); diff != "" {
				t.Errorf("frame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tt := []struct {
		name string
		data []byte
	}{
		{name: "empty buffer", data: []byte{}},
		{name: "nil buffer", data: nil},
		{name: "only a line end", data: []byte("\n")},
		{name: "missing second field", data: []byte("1\x00Alice")},
		{name: "non numeric tag", data: []byte("abc\x00Alice\x00lobby")},
		{name: "negative tag", data: []byte("-1\x00Alice\x00lobby")},
		{name: "tag too big", data: []byte("256\x00Alice\x00lobby")},
		{name: "too many fields", data: []byte("1\x00Alice\x00lobby\x00extra")},
		{name: "empty player name", data: []byte("1\x00\x00lobby")},
		{name: "empty server name", data: []byte("1\x00Alice\x00")},
		{name: "invalid utf-8", data: []byte("1\x00\xff\xfe\x00lobby")},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := relay.Decode(tc.data)
			if !errors.Is(err, relay.ErrMalformedFrame) {
				t.Errorf("expected ErrMalformedFrame but got %v (frame: %v)", err, frame)
			}
		})
	}
}

func TestEncodeRedirect(t *testing.T) {
	data := relay.EncodeRedirect("Alice", "lobby")
	if string(data) != "1\x00Alice\x00lobby" {
		t.Fatalf("got: %q", data)
	}

	frame, err := relay.Decode(data)
	if err != nil {
		t.Fatalf("didnt expect an error but got: %v", err)
	}
	if frame.Type() != relay.RedirectType {
		t.Errorf("expected redirect type but got %d", frame.Type())
	}
}
