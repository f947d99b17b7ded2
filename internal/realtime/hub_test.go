package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-ops-api/internal/models"
)

func startHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimPrefix(r.URL.Path, "/ws/")
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Serve(userID, socket)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubPingPongAndEventDelivery(t *testing.T) {
	metrics := &countingMetrics{}
	hub := NewHub(ConnConfig{ReadTimeout: 2 * time.Second}, nil, metrics)
	server := startHubServer(t, hub)

	client := dial(t, server, "s1")
	require.Eventually(t, func() bool { return hub.Registry().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MessageTypePong, readMessage(t, client).Type)

	report, err := hub.Dispatch(context.Background(), models.NewEvent(models.EventTaskAssigned, map[string]string{"id": "t1"}, "s1"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)

	msg := readMessage(t, client)
	assert.Equal(t, string(models.EventTaskAssigned), msg.Type)
	assert.Equal(t, int64(1), metrics.opened.Load())
}

func TestHubTwoSessionsReceiveSameEvent(t *testing.T) {
	hub := NewHub(ConnConfig{}, nil, nil)
	server := startHubServer(t, hub)

	first := dial(t, server, "s1")
	second := dial(t, server, "s1")
	require.Eventually(t, func() bool { return len(hub.Registry().Connections("s1")) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), models.NewEvent(models.EventGrantUpdated, map[string]int64{"remaining_balance": 7500}, "s1")))

	a := readMessage(t, first)
	b := readMessage(t, second)
	assert.Equal(t, a, b)
	assert.Equal(t, string(models.EventGrantUpdated), a.Type)
}

func TestHubTearsDownSilentConnection(t *testing.T) {
	hub := NewHub(ConnConfig{ReadTimeout: 150 * time.Millisecond}, nil, nil)
	server := startHubServer(t, hub)

	client := dial(t, server, "s1")
	require.Eventually(t, func() bool { return hub.Registry().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return hub.Registry().Count() == 0 }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestHubClientCloseUnregisters(t *testing.T) {
	metrics := &countingMetrics{}
	hub := NewHub(ConnConfig{}, nil, metrics)
	server := startHubServer(t, hub)

	client := dial(t, server, "s1")
	require.Eventually(t, func() bool { return hub.Registry().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return hub.Registry().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return metrics.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub := NewHub(ConnConfig{}, nil, nil)
	server := startHubServer(t, hub)

	dial(t, server, "s1")
	dial(t, server, "s2")
	require.Eventually(t, func() bool { return hub.Registry().Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.Registry().Count())

	assert.ErrorIs(t, hub.Serve("s3", &closedSocket{}), ErrHubClosed)
}

type closedSocket struct{}

func (closedSocket) ReadMessage() (int, []byte, error) { return 0, nil, websocket.ErrCloseSent }
func (closedSocket) WriteMessage(int, []byte) error    { return websocket.ErrCloseSent }
func (closedSocket) SetReadDeadline(time.Time) error   { return nil }
func (closedSocket) SetWriteDeadline(time.Time) error  { return nil }
func (closedSocket) SetReadLimit(int64)                {}
func (closedSocket) Close() error                      { return nil }
