package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/wfunc/pebbles/logger"
	"github.com/wfunc/pebbles/protocol"
	"github.com/wfunc/pebbles/session"
)

var ErrServerClosed = errors.New("server closed")

// GameServer answers protocol packets for a single game session.
type GameServer struct {
	session      *session.Session
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewGameServer(sess *session.Session) *GameServer {
	return &GameServer{
		session:      sess,
		shutdownChan: make(chan struct{}),
	}
}

type readResult struct {
	packet *protocol.Packet
	err    error
}

// Serve answers packets read from conn until the peer closes the stream, ctx
// is done or Shutdown is called. A clean end of stream returns nil. Reads run
// on their own goroutine; a read still blocked when Serve returns is
// abandoned.
func (s *GameServer) Serve(ctx context.Context, conn protocol.Connection) error {
	logger.Log.Infof("Serving game session %s", s.session.ID)
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Log.Warnf("Failed to close connection: %v", err)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	reads := make(chan readResult)
	go func() {
		for {
			packet, err := conn.ReadPacket()
			select {
			case reads <- readResult{packet: packet, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		if err := s.stopped(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownChan:
			return ErrServerClosed
		case r := <-reads:
			if errors.Is(r.err, io.EOF) {
				logger.Log.Info("Connection closed by peer")
				return nil
			}
			if r.err != nil {
				return fmt.Errorf("read packet: %w", r.err)
			}

			reply := s.HandlePacket(ctx, r.packet)
			if err := conn.Send(reply.MsgID, reply.Data); err != nil {
				return fmt.Errorf("send %s: %w", protocol.MsgName(reply.MsgID), err)
			}
		}
	}
}

// stopped reports why Serve must stop, taking precedence over pending reads.
func (s *GameServer) stopped(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.shutdownChan:
		return ErrServerClosed
	default:
		return nil
	}
}

func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}

// Exchange answers one packet in process.
func (s *GameServer) Exchange(ctx context.Context, packet *protocol.Packet) (*protocol.Packet, error) {
	return s.HandlePacket(ctx, packet), nil
}

// HandlePacket dispatches one request. Session failures travel inside a
// MsgTypeReply; undecodable or unknown requests get a MsgTypeError.
func (s *GameServer) HandlePacket(ctx context.Context, packet *protocol.Packet) *protocol.Packet {
	switch packet.MsgID {
	case protocol.MsgTypeInitialize:
		return s.handleInitialize(ctx, packet)
	case protocol.MsgTypeTurn:
		return s.handleTurn(ctx, packet)
	case protocol.MsgTypeGiveUp:
		reply, _ := s.session.GiveUp(ctx)
		return s.reply(packet, reply)
	case protocol.MsgTypeRestart:
		return s.handleRestart(ctx, packet)
	case protocol.MsgTypeQueryState:
		reply, _ := s.session.QueryState(ctx)
		return s.reply(packet, reply)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		return s.fail(packet, fmt.Errorf("unknown message type %d", packet.MsgID))
	}
}

func (s *GameServer) handleInitialize(ctx context.Context, packet *protocol.Packet) *protocol.Packet {
	var req protocol.GameParams
	if err := packet.Decode(&req); err != nil {
		return s.fail(packet, err)
	}
	reply, _ := s.session.Initialize(ctx, session.Params(req))
	return s.reply(packet, reply)
}

func (s *GameServer) handleTurn(ctx context.Context, packet *protocol.Packet) *protocol.Packet {
	var req protocol.TurnRequest
	if err := packet.Decode(&req); err != nil {
		return s.fail(packet, err)
	}
	reply, _ := s.session.Turn(ctx, req.Amount)
	return s.reply(packet, reply)
}

func (s *GameServer) handleRestart(ctx context.Context, packet *protocol.Packet) *protocol.Packet {
	var req protocol.GameParams
	if err := packet.Decode(&req); err != nil {
		return s.fail(packet, err)
	}
	reply, _ := s.session.Restart(ctx, session.Params(req))
	return s.reply(packet, reply)
}

func (s *GameServer) reply(req *protocol.Packet, reply session.Reply) *protocol.Packet {
	p, err := protocol.NewPacket(protocol.MsgTypeReply, reply)
	if err != nil {
		logger.Log.Errorf("Failed to encode reply to %s: %v", protocol.MsgName(req.MsgID), err)
		return s.fail(req, err)
	}
	return p
}

func (s *GameServer) fail(req *protocol.Packet, cause error) *protocol.Packet {
	logger.Log.Warnf("Rejecting %s request: %v", protocol.MsgName(req.MsgID), cause)
	p, err := protocol.NewPacket(protocol.MsgTypeError, protocol.ErrorReply{MsgID: req.MsgID, Error: cause.Error()})
	if err != nil {
		// ErrorReply always encodes.
		return &protocol.Packet{MsgID: protocol.MsgTypeError}
	}
	return p
}
