package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic   uint32 = 0x47524D31 // "GRM1"
	Version uint16 = 1

	fixedHeaderLen = 32

	MsgPublish  uint32 = 1
	MsgRequest  uint32 = 2
	MsgResponse uint32 = 3

	FlagIsError uint32 = 0x01
)

var (
	ErrShortHeader     = errors.New("wire: short fixed header")
	ErrBadMagic        = errors.New("wire: bad magic")
	ErrBadVersion      = errors.New("wire: unsupported version")
	ErrChannelTooLong  = errors.New("wire: channel too long")
	ErrPayloadTooLarge = errors.New("wire: payload too large")
)

// Header is the fixed wire header for one framed message.
type Header struct {
	Magic       uint32
	Version     uint16
	ChannelLen  uint16
	MessageID   uint64
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

// Frame is one complete wire message: header, channel name, payload.
type Frame struct {
	Header  Header
	Channel string
	Payload []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxChannelBytes uint16
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxChannelBytes: 1024,
		MaxPayloadBytes: 16 * 1024 * 1024,
	}
}

// WriteFrame writes one framed message to w.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	channel := []byte(f.Channel)
	if len(channel) > int(limits.MaxChannelBytes) {
		return ErrChannelTooLong
	}
	if uint64(len(f.Payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.ChannelLen = uint16(len(channel))
	h.PayloadLen = uint64(len(f.Payload))

	if _, err := w.Write(encodeHeader(h)); err != nil {
		return err
	}
	if len(channel) > 0 {
		if _, err := w.Write(channel); err != nil {
			return err
		}
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrame reads one framed message from r.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [fixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	h, err := decodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.ChannelLen > limits.MaxChannelBytes {
		return Frame{}, ErrChannelTooLong
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	channel := make([]byte, h.ChannelLen)
	if h.ChannelLen > 0 {
		if _, err := io.ReadFull(r, channel); err != nil {
			return Frame{}, err
		}
	}
	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Header: h, Channel: string(channel), Payload: payload}, nil
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, fixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.ChannelLen)
	binary.BigEndian.PutUint64(buf[8:16], h.MessageID)
	binary.BigEndian.PutUint32(buf[16:20], h.MessageType)
	binary.BigEndian.PutUint32(buf[20:24], h.Flags)
	binary.BigEndian.PutUint64(buf[24:32], h.PayloadLen)
	return buf
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) != fixedHeaderLen {
		return Header{}, fmt.Errorf("wire: invalid fixed header length: %d", len(b))
	}
	h := Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     binary.BigEndian.Uint16(b[4:6]),
		ChannelLen:  binary.BigEndian.Uint16(b[6:8]),
		MessageID:   binary.BigEndian.Uint64(b[8:16]),
		MessageType: binary.BigEndian.Uint32(b[16:20]),
		Flags:       binary.BigEndian.Uint32(b[20:24]),
		PayloadLen:  binary.BigEndian.Uint64(b[24:32]),
	}
	if h.Magic != Magic {
		return Header{}, ErrBadMagic
	}
	if h.Version != Version {
		return Header{}, ErrBadVersion
	}
	return h, nil
}
