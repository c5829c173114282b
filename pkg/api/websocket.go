package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-chainviz/pkg/api/middleware"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
	"github.com/dd0wney/cluso-chainviz/pkg/validation"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsMaxMessageSize = 64 << 10
	wsEventBuffer    = 64
)

var errSessionStopped = errors.New("session stopped")

// handleWebSocket streams frames and expansion events to one client and
// feeds its gestures back into the session. Frames are coalesced: a slow
// client only ever sees the newest one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	bus := s.session.Bus()
	frames, err := bus.Subscribe(ctx, pubsub.TopicFrames,
		pubsub.WithMode(pubsub.KeepLatest), pubsub.WithBuffer(1))
	if err != nil {
		s.closeWith(conn, websocket.CloseGoingAway, err.Error())
		return
	}
	events, err := bus.Subscribe(ctx, pubsub.TopicExpansion, pubsub.WithBuffer(wsEventBuffer))
	if err != nil {
		s.closeWith(conn, websocket.CloseGoingAway, err.Error())
		return
	}

	id := middleware.GetRequestID(r)
	client := "ws:" + uuid.NewString()
	logger := s.logger.With(logging.RequestID(id), logging.String("client", client))
	logger.Info("websocket client connected", logging.String("remote", s.clientID(r)))

	replies := make(chan ServerMessage, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		// unblocks readPump when the writer gives up first
		defer conn.Close()
		s.writePump(ctx, conn, frames, events, replies, logger)
	}()

	s.readPump(ctx, conn, client, replies, logger)
	cancel()
	wg.Wait()
	// drags the client never finished would otherwise stay pinned
	s.session.ReleaseClient(client)
	logger.Info("websocket client disconnected")
}

// readPump dispatches client messages until the connection fails
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client string, replies chan<- ServerMessage, logger logging.Logger) {
	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", logging.Error(err))
			}
			if isDecodeError(err) {
				s.reply(ctx, replies, ServerMessage{Type: MessageError, Error: "malformed message"})
				continue
			}
			return
		}

		if err := s.dispatch(msg, client); err != nil {
			s.reply(ctx, replies, ServerMessage{Type: MessageError, Error: err.Error()})
		}
	}
}

// dispatch validates msg and queues it on the session. Gestures and
// pointer events are attributed to client whatever the message says.
func (s *Server) dispatch(msg ClientMessage, client string) error {
	if err := validation.Struct(&msg); err != nil {
		return err
	}

	var ok bool
	switch msg.Type {
	case MessageGesture:
		if msg.Gesture == nil {
			return errors.New("gesture message without gesture")
		}
		if err := validation.Struct(msg.Gesture); err != nil {
			return err
		}
		g := *msg.Gesture
		g.Client = client
		ok = s.session.HandleGesture(g)
	case MessagePointer:
		if msg.Pointer == nil {
			return errors.New("pointer message without pointer")
		}
		if err := validation.Struct(msg.Pointer); err != nil {
			return err
		}
		p := *msg.Pointer
		p.Client = client
		ok = s.session.HandlePointer(p)
	case MessageExpand:
		if msg.Key == "" {
			return errors.New("expand message without key")
		}
		ok = s.session.Expand(msg.Key)
	}
	if !ok {
		return errSessionStopped
	}
	return nil
}

func (s *Server) reply(ctx context.Context, replies chan<- ServerMessage, msg ServerMessage) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}

// writePump owns every write to conn
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, frames, events *pubsub.Subscription, replies <-chan ServerMessage, logger logging.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	write := func(msg ServerMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("websocket write failed", logging.Error(err))
			return false
		}
		return true
	}

	latest := s.session.Latest()
	if !write(ServerMessage{Type: MessageFrame, Frame: &latest}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case m, ok := <-frames.Channel():
			if !ok {
				if ctx.Err() == nil {
					s.closeWith(conn, websocket.CloseGoingAway, errSessionStopped.Error())
				}
				return
			}
			f := m.(render.Frame)
			if !write(ServerMessage{Type: MessageFrame, Frame: &f}) {
				return
			}
		case m, ok := <-events.Channel():
			if !ok {
				return
			}
			ev := m.(session.ExpansionEvent)
			if !write(ServerMessage{Type: MessageExpansion, Expansion: &ev}) {
				return
			}
		case msg := <-replies:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isDecodeError reports whether err came from decoding a message rather
// than from the connection
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (s *Server) closeWith(conn *websocket.Conn, code int, text string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
}
