package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/config"
	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/log"
	"github.com/larasedova/alpina-gpt-builder/internal/transport/apierror"
)

// Conversations is the part of the service the websocket server drives.
type Conversations interface {
	RunTurn(ctx context.Context, req domain.RunTurnRequest) (*domain.TurnOutcome, error)
	CompleteDirect(ctx context.Context, req domain.DirectChatRequest) (*domain.DirectChatResult, error)
}

const (
	// requestTimeout bounds a single turn or chat request started from a frame.
	requestTimeout = 2 * time.Minute

	// maxPendingRequests bounds the frames queued on one connection.
	maxPendingRequests = 16
)

// ErrorCodeBusy is sent when a connection has too many queued requests.
const ErrorCodeBusy = "busy"

// Server handles websocket connections.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	service  Conversations
	upgrader websocket.Upgrader
	logger   *zap.Logger

	workers sync.WaitGroup
}

// NewServer creates a new websocket server.
func NewServer(cfg *config.Config, h *Hub, service Conversations) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: log.Component("WSServer"),
	}
}

// HandleWebSocket upgrades the request and binds the connection to the
// bot_id and user_session query parameters.
func (s *Server) HandleWebSocket(c echo.Context) error {
	botID, err := strconv.ParseInt(c.QueryParam("bot_id"), 10, 64)
	if err != nil || botID <= 0 {
		return c.JSON(http.StatusBadRequest, apierror.Body{
			Error: "bot_id must be a positive integer", Code: apierror.CodeInvalidRequest, Field: "bot_id",
		})
	}
	userSession := strings.TrimSpace(c.QueryParam("user_session"))
	if userSession == "" {
		userSession = domain.DefaultUserSession
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade websocket", zap.Error(err))
		return nil
	}

	conn := s.hub.NewConnection(ws, botID, userSession)
	if !s.hub.Register(conn) {
		_ = ws.Close()
		return nil
	}

	ws.SetReadLimit(s.cfg.WSMaxMessageSize)

	queue := make(chan InboundFrame, maxPendingRequests)
	s.workers.Add(1)
	go s.processRequests(conn, queue)
	go s.writePump(conn)
	go s.readPump(conn, queue)

	return nil
}

// Wait blocks until every connection's request worker has exited or ctx is done.
// Workers exit once their connection is closed, which happens for all of them
// when the hub stops.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump reads frames from the websocket connection and queues requests.
func (s *Server) readPump(conn *Connection, queue chan<- InboundFrame) {
	defer func() {
		close(queue)
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}

		s.handleMessage(conn, queue, message)
	}
}

// writePump writes queued frames and keepalive pings to the connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("Failed to write frame", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage validates an inbound frame and queues it for the connection's
// worker. A full queue rejects the frame instead of blocking the read loop.
func (s *Server) handleMessage(conn *Connection, queue chan<- InboundFrame, data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON frame")
		return
	}

	switch frame.Type {
	case TypeTurn:
	case TypeChat:
		if frame.Message == nil {
			s.sendError(conn, frame.RequestID, ErrorCodeInvalidMessage, "message is required")
			return
		}
	default:
		s.sendError(conn, frame.RequestID, ErrorCodeInvalidMessage, "unknown frame type: "+frame.Type)
		return
	}

	select {
	case queue <- frame:
	default:
		s.sendError(conn, frame.RequestID, ErrorCodeBusy, "too many pending requests")
	}
}

// processRequests runs a connection's requests one at a time, in the order its
// frames arrived. Results go to every connection of the conversation.
func (s *Server) processRequests(conn *Connection, queue <-chan InboundFrame) {
	defer s.workers.Done()

	for frame := range queue {
		switch frame.Type {
		case TypeTurn:
			s.runTurn(conn, frame)
		case TypeChat:
			s.chat(conn, frame)
		}
	}
}

func (s *Server) runTurn(conn *Connection, frame InboundFrame) {
	ctx, cancel := context.WithTimeout(s.hub.Context(), requestTimeout)
	defer cancel()

	outcome, err := s.service.RunTurn(ctx, domain.RunTurnRequest{
		BotID:       conn.BotID,
		ScenarioID:  frame.ScenarioID,
		UserSession: conn.UserSession,
		Message:     frame.Message,
	})
	if err != nil {
		s.broadcastError(conn, frame.RequestID, err)
		return
	}

	s.broadcast(conn, TurnResultFrame{
		BaseFrame:    s.base(conn, TypeTurnResult, frame.RequestID),
		Response:     outcome.Response,
		Completed:    outcome.Completed,
		WaitForInput: outcome.WaitForInput,
		ExecutionID:  outcome.ExecutionID,
	})
}

func (s *Server) chat(conn *Connection, frame InboundFrame) {
	ctx, cancel := context.WithTimeout(s.hub.Context(), requestTimeout)
	defer cancel()

	result, err := s.service.CompleteDirect(ctx, domain.DirectChatRequest{
		BotID:       conn.BotID,
		Message:     *frame.Message,
		UserSession: conn.UserSession,
	})
	if err != nil {
		s.broadcastError(conn, frame.RequestID, err)
		return
	}

	s.broadcast(conn, ChatResultFrame{
		BaseFrame:   s.base(conn, TypeChatResult, frame.RequestID),
		Response:    result.Response,
		ExecutionID: result.ExecutionID,
		TokensUsed:  result.TokensUsed,
	})
}

func (s *Server) base(conn *Connection, frameType, requestID string) BaseFrame {
	return BaseFrame{
		Type:        frameType,
		Ts:          time.Now().UnixMilli(),
		RequestID:   requestID,
		BotID:       conn.BotID,
		UserSession: conn.UserSession,
	}
}

func (s *Server) broadcast(conn *Connection, v any) {
	if err := s.hub.BroadcastJSON(conn.BotID, conn.UserSession, v); err != nil {
		s.logger.Error("Failed to broadcast frame", zap.String("conn_id", conn.ID), zap.Error(err))
	}
}

func (s *Server) broadcastError(conn *Connection, requestID string, err error) {
	status, body := apierror.Classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Websocket request failed", zap.String("conn_id", conn.ID), zap.Error(err))
	}
	s.broadcast(conn, ErrorFrame{
		BaseFrame: s.base(conn, TypeError, requestID),
		Code:      body.Code,
		Message:   body.Error,
	})
}

// sendError replies to the sending connection only.
func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	frame := ErrorFrame{
		BaseFrame: s.base(conn, TypeError, requestID),
		Code:      code,
		Message:   message,
	}
	if err := s.hub.SendJSONToConnection(conn, frame); err != nil {
		s.logger.Warn("Failed to send error frame", zap.String("conn_id", conn.ID), zap.Error(err))
	}
}
