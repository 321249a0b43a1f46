// protocol/connection.go
package protocol

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

var ErrPacketTooLarge = errors.New("packet payload exceeds 65535 bytes")

const headerSize = 4

type Packet struct {
	MsgID uint16
	Data  []byte
}

// NewPacket encodes v as the JSON payload of a packet. A nil v gives an
// empty payload.
func NewPacket(msgID uint16, v any) (*Packet, error) {
	if v == nil {
		return &Packet{MsgID: msgID}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", MsgName(msgID), err)
	}
	return &Packet{MsgID: msgID, Data: data}, nil
}

// Decode unmarshals the JSON payload into v.
func (p *Packet) Decode(v any) error {
	if err := json.Unmarshal(p.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", MsgName(p.MsgID), err)
	}
	return nil
}

// WritePacket frames a packet as 2 bytes message id, 2 bytes payload length
// (both big endian) and the payload.
func WritePacket(w io.Writer, p *Packet) error {
	if len(p.Data) > math.MaxUint16 {
		return ErrPacketTooLarge
	}
	buf := make([]byte, headerSize+len(p.Data))
	binary.BigEndian.PutUint16(buf[0:2], p.MsgID)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(p.Data)))
	copy(buf[headerSize:], p.Data)

	_, err := w.Write(buf)
	return err
}

// ReadPacket reads one framed packet. It returns io.EOF only when the stream
// ends on a packet boundary.
func ReadPacket(r io.Reader) (*Packet, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	msgID := binary.BigEndian.Uint16(header[0:2])
	length := binary.BigEndian.Uint16(header[2:4])

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Packet{MsgID: msgID, Data: data}, nil
}

type Connection interface {
	Send(msgID uint16, data []byte) error
	ReadPacket() (*Packet, error)
	Close() error
}

// StreamConnection carries packets over a byte stream such as a pipe,
// stdin/stdout or a TCP socket.
type StreamConnection struct {
	reader    *bufio.Reader
	writer    io.Writer
	closer    io.Closer
	sendMutex sync.Mutex
}

// NewStreamConnection reads from r and writes to w. Close closes w when it is
// an io.Closer.
func NewStreamConnection(r io.Reader, w io.Writer) *StreamConnection {
	c := &StreamConnection{reader: bufio.NewReader(r), writer: w}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

func (c *StreamConnection) Send(msgID uint16, data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return WritePacket(c.writer, &Packet{MsgID: msgID, Data: data})
}

func (c *StreamConnection) ReadPacket() (*Packet, error) {
	return ReadPacket(c.reader)
}

func (c *StreamConnection) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
