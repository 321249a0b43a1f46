package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/pebbles/game"
)

func TestWritePacket_Framing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{MsgID: MsgTypeTurn, Data: []byte(`{"amount":2}`)}))

	b := buf.Bytes()
	require.Len(t, b, 4+12)
	assert.Equal(t, []byte{0x00, 0xC9, 0x00, 0x0C}, b[:4])
	assert.Equal(t, `{"amount":2}`, string(b[4:]))
}

func TestReadPacket_RoundTripSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{MsgID: MsgTypeGiveUp}))
	require.NoError(t, WritePacket(&buf, &Packet{MsgID: MsgTypeQueryState, Data: []byte("{}")}))

	p, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeGiveUp), p.MsgID)
	assert.Empty(t, p.Data)

	p, err = ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeQueryState), p.MsgID)
	assert.Equal(t, "{}", string(p.Data))

	_, err = ReadPacket(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadPacket_Truncated(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0x00, 0xC9, 0x00, 0x05, '{'}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadPacket(bytes.NewReader([]byte{0x00}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWritePacket_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WritePacket(&buf, &Packet{MsgID: MsgTypeReply, Data: make([]byte, 1<<16)})
	assert.ErrorIs(t, err, ErrPacketTooLarge)
	assert.Zero(t, buf.Len())
}

func TestNewPacket_Decode(t *testing.T) {
	p, err := NewPacket(MsgTypeInitialize, GameParams{PebblesCount: 20, MaxPebblesPerTurn: 5, Difficulty: game.Hard})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pebbles_count":20,"max_pebbles_per_turn":5,"difficulty":"Hard"}`, string(p.Data))

	var params GameParams
	require.NoError(t, p.Decode(&params))
	assert.Equal(t, game.Hard, params.Difficulty)

	empty, err := NewPacket(MsgTypeGiveUp, nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Data)
}

func TestPacket_DecodeRejectsBadDifficulty(t *testing.T) {
	p := &Packet{MsgID: MsgTypeRestart, Data: []byte(`{"pebbles_count":9,"max_pebbles_per_turn":2,"difficulty":"impossible"}`)}
	var params GameParams
	err := p.Decode(&params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restart")
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestStreamConnection(t *testing.T) {
	out := &closeRecorder{}
	in := &bytes.Buffer{}
	require.NoError(t, WritePacket(in, &Packet{MsgID: MsgTypeTurn, Data: []byte(`{"amount":1}`)}))

	conn := NewStreamConnection(in, out)
	p, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeTurn), p.MsgID)

	require.NoError(t, conn.Send(MsgTypeReply, []byte(`{}`)))
	echoed, err := ReadPacket(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeReply), echoed.MsgID)

	require.NoError(t, conn.Close())
	assert.True(t, out.closed)
}

func TestStreamConnection_CloseWithoutCloser(t *testing.T) {
	conn := NewStreamConnection(strings.NewReader(""), io.Discard)
	assert.NoError(t, conn.Close())

	_, err := conn.ReadPacket()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestMsgName(t *testing.T) {
	assert.Equal(t, "turn", MsgName(MsgTypeTurn))
	assert.Equal(t, "unknown", MsgName(999))
}

func TestGameParams_RequiresEveryField(t *testing.T) {
	tests := map[string]string{
		"pebbles_count":        `{"max_pebbles_per_turn":3,"difficulty":"Easy"}`,
		"max_pebbles_per_turn": `{"pebbles_count":10,"difficulty":"Easy"}`,
		"difficulty":           `{"pebbles_count":10,"max_pebbles_per_turn":3}`,
	}
	for field, body := range tests {
		var params GameParams
		err := (&Packet{MsgID: MsgTypeInitialize, Data: []byte(body)}).Decode(&params)
		assert.ErrorIs(t, err, ErrMissingField, field)
		assert.Contains(t, err.Error(), field)
	}

	var params GameParams
	require.NoError(t, json.Unmarshal([]byte(`{"pebbles_count":10,"max_pebbles_per_turn":0,"difficulty":"hard"}`), &params))
	assert.Equal(t, GameParams{PebblesCount: 10, Difficulty: game.Hard}, params)
}
