package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/conversation"
)

const (
	chatReadLimit = 16 << 10
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin admits clients without an Origin header (non-browser), the
// server's own host, and the configured origins. "*" admits every origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	s.logger.Warn("websocket origin rejected", zap.String("origin", origin))
	return false
}

// ChatMessage is an inbound websocket frame. Plain text frames are accepted
// as well and treated as the message text.
type ChatMessage struct {
	Text string `json:"text"`
}

// ChatReply is an outbound websocket frame
type ChatReply struct {
	ConversationID string                `json:"conversation_id"`
	Text           string                `json:"text"`
	Action         string                `json:"action"`
	Options        []conversation.Option `json:"options,omitempty"`
}

func parseChatFrame(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var m ChatMessage
		if err := json.Unmarshal(data, &m); err == nil {
			return m.Text
		}
	}
	return string(data)
}

// chat runs one conversation per websocket connection. Silent replies send
// nothing back.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	key := "ws:" + id
	logger := s.logger.With(zap.String("conversation_id", id))
	logger.Info("chat connected", zap.String("remote", r.RemoteAddr))
	defer func() {
		s.hub.Forget(key)
		logger.Info("chat disconnected")
	}()

	conn.SetReadLimit(chatReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// WriteControl may run concurrently with the other write methods
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				logger.Debug("read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := s.hub.Handle(ctx, key, parseChatFrame(data))
		if reply.Silent {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ChatReply{
			ConversationID: id,
			Text:           reply.Text,
			Action:         reply.Action.String(),
			Options:        reply.Options,
		}); err != nil {
			logger.Warn("write error", zap.Error(err))
			return
		}
	}
}
