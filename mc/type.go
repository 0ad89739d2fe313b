package mc

import (
	"errors"
	"io"
)

var ErrVarIntTooBig = errors.New("VarInt is too big")

// A Field is both FieldEncoder and FieldDecoder
type Field interface {
	FieldEncoder
	FieldDecoder
}

// A FieldEncoder can be encoded the way the bridge protocol uses it.
type FieldEncoder interface {
	Encode() []byte
}

// A FieldDecoder can Decode from the bridge protocol
type FieldDecoder interface {
	Decode(r DecodeReader) error
}

//DecodeReader is both io.Reader and io.ByteReader
type DecodeReader interface {
	io.ByteReader
	io.Reader
}

type (
	// String is sequence of Unicode scalar values, prefixed with its length
	String string
	// VarInt is variable-length data encoding a two's complement signed 32-bit integer
	VarInt int32
	// RestOfData takes every byte left in the packet, it has to be the last field
	RestOfData []byte
)

// ReadNBytes read N bytes from bytes.Reader
func ReadNBytes(r DecodeReader, n int) ([]byte, error) {
	bb := make([]byte, n)
	if _, err := io.ReadFull(r, bb); err != nil {
		return nil, err
	}
	return bb, nil
}

// Encode a String
func (s String) Encode() []byte {
	byteString := []byte(s)
	var bb []byte
	bb = append(bb, VarInt(len(byteString)).Encode()...) // len
	bb = append(bb, byteString...)                       // data
	return bb
}

// Decode a String
func (s *String) Decode(r DecodeReader) error {
	var l VarInt // String length
	if err := l.Decode(r); err != nil {
		return err
	}
	if l < 0 || int(l) > MaxPacketSize {
		return ErrPacketTooBig
	}

	bb, err := ReadNBytes(r, int(l))
	if err != nil {
		return err
	}

	*s = String(bb)
	return nil
}

// Encode a VarInt
func (v VarInt) Encode() []byte {
	num := uint32(v)
	var bb []byte
	for {
		b := num & 0x7F
		num >>= 7
		if num != 0 {
			b |= 0x80
		}
		bb = append(bb, byte(b))
		if num == 0 {
			break
		}
	}
	return bb
}

// Decode a VarInt
func (v *VarInt) Decode(r DecodeReader) error {
	var n uint32
	for i := 0; ; i++ {
		sec, err := r.ReadByte()
		if err != nil {
			return err
		}

		n |= uint32(sec&0x7F) << uint32(7*i)

		if i >= 5 {
			return ErrVarIntTooBig
		} else if sec&0x80 == 0 {
			break
		}
	}

	*v = VarInt(n)
	return nil
}

func (d RestOfData) Encode() []byte {
	return []byte(d)
}

func (d *RestOfData) Decode(r DecodeReader) error {
	bb, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	*d = bb
	return nil
}
