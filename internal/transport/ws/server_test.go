package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larasedova/alpina-gpt-builder/internal/config"
	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
)

type fakeConversations struct {
	mu    sync.Mutex
	turns []domain.RunTurnRequest
	err   error
	block bool
}

func (f *fakeConversations) RunTurn(ctx context.Context, req domain.RunTurnRequest) (*domain.TurnOutcome, error) {
	f.mu.Lock()
	f.turns = append(f.turns, req)
	block, err := f.block, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	response := "advanced"
	if req.Message != nil {
		response = "You said " + *req.Message
	}
	return &domain.TurnOutcome{Response: response, ExecutionID: "exec_1"}, nil
}

func (f *fakeConversations) CompleteDirect(_ context.Context, req domain.DirectChatRequest) (*domain.DirectChatResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	tokens := 7
	return &domain.DirectChatResult{Response: "echo: " + req.Message, ExecutionID: "exec_1", TokensUsed: &tokens}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		WSReadTimeout:    5 * time.Second,
		WSWriteTimeout:   time.Second,
		WSPingInterval:   time.Second,
		WSMaxMessageSize: 4096,
	}
}

type testServer struct {
	*httptest.Server
	hub     *Hub
	ws      *Server
	stopHub context.CancelFunc
}

func newTestServer(t *testing.T, svc Conversations) (*httptest.Server, *Hub) {
	t.Helper()
	ts := startTestServer(t, svc)
	return ts.Server, ts.hub
}

func startTestServer(t *testing.T, svc Conversations) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	wsServer := NewServer(testConfig(), hub, svc)
	e := echo.New()
	e.GET("/v1/ws", wsServer.HandleWebSocket)
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &testServer{Server: server, hub: hub, ws: wsServer, stopHub: cancel}
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestTurnResultReachesEveryConnectionOfSession(t *testing.T) {
	svc := &fakeConversations{}
	server, hub := newTestServer(t, svc)

	first := dial(t, server, "bot_id=3&user_session=alice")
	second := dial(t, server, "bot_id=3&user_session=alice")
	other := dial(t, server, "bot_id=3&user_session=bob")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.ConversationCount())

	require.NoError(t, first.WriteJSON(map[string]any{"type": "turn", "request_id": "r1", "message": "blue"}))

	for _, conn := range []*websocket.Conn{first, second} {
		var frame TurnResultFrame
		readFrame(t, conn, &frame)
		assert.Equal(t, TypeTurnResult, frame.Type)
		assert.Equal(t, "r1", frame.RequestID)
		assert.Equal(t, "You said blue", frame.Response)
		assert.Equal(t, int64(3), frame.BotID)
		assert.Equal(t, "alice", frame.UserSession)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other sessions must not receive the frame")

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.turns, 1)
	assert.Equal(t, int64(3), svc.turns[0].BotID)
	assert.Equal(t, "alice", svc.turns[0].UserSession)
}

func TestTurnWithoutMessage(t *testing.T) {
	server, _ := newTestServer(t, &fakeConversations{})
	conn := dial(t, server, "bot_id=1")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "turn"}))

	var frame TurnResultFrame
	readFrame(t, conn, &frame)
	assert.Equal(t, "advanced", frame.Response)
	assert.Equal(t, domain.DefaultUserSession, frame.UserSession)
}

func TestChatFrame(t *testing.T) {
	server, _ := newTestServer(t, &fakeConversations{})
	conn := dial(t, server, "bot_id=1&user_session=s")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat", "message": "hello"}))

	var frame ChatResultFrame
	readFrame(t, conn, &frame)
	assert.Equal(t, TypeChatResult, frame.Type)
	assert.Equal(t, "echo: hello", frame.Response)
	require.NotNil(t, frame.TokensUsed)
	assert.Equal(t, 7, *frame.TokensUsed)
}

func TestErrorFrames(t *testing.T) {
	svc := &fakeConversations{err: lock.ErrLockTimeout}
	server, _ := newTestServer(t, svc)
	conn := dial(t, server, "bot_id=1&user_session=s")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var frame ErrorFrame
	readFrame(t, conn, &frame)
	assert.Equal(t, ErrorCodeInvalidMessage, frame.Code)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	readFrame(t, conn, &frame)
	assert.Contains(t, frame.Message, "unknown frame type")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat"}))
	readFrame(t, conn, &frame)
	assert.Equal(t, "message is required", frame.Message)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "turn", "request_id": "r9"}))
	readFrame(t, conn, &frame)
	assert.Equal(t, "conflict", frame.Code)
	assert.Equal(t, "r9", frame.RequestID)
}

func TestHandshakeRequiresBotID(t *testing.T) {
	server, _ := newTestServer(t, &fakeConversations{})

	resp, err := http.Get(server.URL + "/v1/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	server, hub := newTestServer(t, &fakeConversations{})
	conn := dial(t, server, "bot_id=1")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ConversationCount())
}

func TestHubStopRejectsRegistration(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Register(hub.NewConnection(nil, 1, "s")))
	hub.Unregister(&Connection{ID: "x"})
	assert.NoError(t, hub.BroadcastJSON(1, "s", map[string]string{"type": "noop"}))
}

func TestFramesOfConnectionRunInSendOrder(t *testing.T) {
	svc := &fakeConversations{}
	server, hub := newTestServer(t, svc)

	conn := dial(t, server, "bot_id=1&user_session=s")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	const frames = maxPendingRequests
	for i := 0; i < frames; i++ {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "turn", "request_id": fmt.Sprint(i), "message": fmt.Sprint(i)}))
	}

	for i := 0; i < frames; i++ {
		var frame TurnResultFrame
		readFrame(t, conn, &frame)
		assert.Equal(t, fmt.Sprint(i), frame.RequestID)
		assert.Equal(t, "You said "+fmt.Sprint(i), frame.Response)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.turns, frames)
	for i, turn := range svc.turns {
		assert.Equal(t, fmt.Sprint(i), *turn.Message)
	}
}

func TestFullQueueRejectsFrame(t *testing.T) {
	svc := &fakeConversations{block: true}
	server, hub := newTestServer(t, svc)

	conn := dial(t, server, "bot_id=1&user_session=s")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	for i := 0; i < maxPendingRequests+2; i++ {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "turn", "request_id": fmt.Sprint(i)}))
	}

	var frame ErrorFrame
	readFrame(t, conn, &frame)
	assert.Equal(t, TypeError, frame.Type)
	assert.Equal(t, ErrorCodeBusy, frame.Code)
}

func TestStoppingHubCancelsRequestsAndDrainsWorkers(t *testing.T) {
	svc := &fakeConversations{block: true}
	ts := startTestServer(t, svc)

	conn := dial(t, ts.Server, "bot_id=1&user_session=s")
	require.Eventually(t, func() bool { return ts.hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "turn", "message": "hi"}))
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.turns) == 1
	}, time.Second, 10*time.Millisecond)

	ts.stopHub()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, ts.ws.Wait(ctx))
	assert.Error(t, ts.hub.Context().Err())
}
