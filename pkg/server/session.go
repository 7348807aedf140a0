package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/retain/pkg/protocol"
)

// session is one WebSocket connection serving one runtime.
type session struct {
	conn    *websocket.Conn
	config  *Config
	logger  *slog.Logger
	binding *RemoteBinding
	obs     Observer

	mu     sync.Mutex // serializes writes
	closed atomic.Bool

	framesSent atomic.Uint64
	eventsIn   atomic.Uint64
}

func newSession(conn *websocket.Conn, config *Config, logger *slog.Logger, obs Observer) *session {
	return &session{conn: conn, config: config, logger: logger, obs: obs}
}

// write sends one frame.
func (s *session) write(ft protocol.FrameType, flags protocol.FrameFlags, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	frame := &protocol.Frame{Type: ft, Flags: flags, Payload: payload}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		return err
	}
	s.framesSent.Add(1)
	s.obs.FrameSent(ft)
	return nil
}

// sendOps is the RemoteBinding's SendFunc. Batches produced after the
// connection closed are dropped.
func (s *session) sendOps(batch *protocol.Ops, initial bool) error {
	var flags protocol.FrameFlags
	if initial {
		flags |= protocol.FlagInitial
	}
	err := s.write(protocol.FrameOps, flags, protocol.EncodeOps(batch))
	if errors.Is(err, ErrSessionClosed) {
		s.logger.Debug("ops dropped after close", "seq", batch.Seq, "count", len(batch.Ops))
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Debug("sent ops", "seq", batch.Seq, "count", len(batch.Ops))
	return nil
}

func (s *session) sendError(code protocol.ErrorCode, message string) {
	if err := s.write(protocol.FrameError, 0, protocol.EncodeErrorMessage(protocol.NewError(code, message))); err != nil {
		s.logger.Debug("error frame not sent", "error", err)
	}
}

// readLoop reads frames until the connection fails or the host closes it.
func (s *session) readLoop() {
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !s.closed.Load() {
				s.logger.Error("read error", "error", err)
				s.obs.WebSocketError(err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.obs.WebSocketError(err)
			s.sendError(protocol.ErrInvalidFrame, err.Error())
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEvent(frame.Payload)
		case protocol.FrameControl:
			if !s.handleControl(frame.Payload) {
				return
			}
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

func (s *session) handleEvent(payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Warn("event decode error", "error", err)
		s.sendError(protocol.ErrInvalidEvent, err.Error())
		return
	}
	s.eventsIn.Add(1)
	err = s.binding.Dispatch(ev)
	s.obs.EventReceived(err == nil)
	if err != nil {
		// Events racing a patch that removed their listener are expected
		s.logger.Debug("event not delivered", "target", ev.Target, "event", ev.Name, "error", err)
		s.sendError(protocol.ErrUnknownTarget, err.Error())
	}
}

// handleControl reports false when the host asked to close.
func (s *session) handleControl(payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		return true
	}
	switch c.Type {
	case protocol.ControlPing:
		if err := s.write(protocol.FrameControl, 0, protocol.EncodeControl(protocol.NewPong(c.Timestamp))); err != nil {
			s.logger.Debug("pong not sent", "error", err)
		}
	case protocol.ControlPong:
		s.logger.Debug("received pong")
	case protocol.ControlClose:
		s.logger.Info("host closing", "reason", c.Reason, "message", c.Message)
		return false
	}
	return true
}

// heartbeat pings the host until ctx is done.
func (s *session) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
			if err := s.write(protocol.FrameControl, 0, protocol.EncodeControl(ping)); err != nil {
				return
			}
		}
	}
}

// close sends a Close control frame and closes the connection.
func (s *session) close(reason protocol.CloseReason, message string) {
	if err := s.write(protocol.FrameControl, protocol.FlagFinal, protocol.EncodeControl(protocol.NewClose(reason, message))); err != nil {
		s.logger.Debug("close frame not sent", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return
	}
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.conn.Close()

	s.logger.Info("session closed",
		"reason", reason,
		"frames_sent", s.framesSent.Load(),
		"events_received", s.eventsIn.Load())
}
