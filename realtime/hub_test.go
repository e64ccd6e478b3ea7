package realtime

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		restaurantID, _ := strconv.Atoi(r.URL.Query().Get("restaurant"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, uint(restaurantID), 1)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, restaurantID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?restaurant=" + strconv.Itoa(restaurantID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubPublishesToRestaurantOnly(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)

	mine := dial(t, srv, 1)
	other := dial(t, srv, 2)
	require.Eventually(t, func() bool {
		return hub.Clients(1) == 1 && hub.Clients(2) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(2, "access_code_issued", map[string]string{"code": "2222"})
	hub.Publish(1, "access_code_issued", map[string]string{"code": "1111"})

	var msg Message
	require.NoError(t, mine.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, mine.ReadJSON(&msg))
	assert.Equal(t, "access_code_issued", msg.Event)
	assert.Equal(t, "1111", msg.Data.(map[string]interface{})["code"])

	require.NoError(t, other.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, other.ReadJSON(&msg))
	assert.Equal(t, "2222", msg.Data.(map[string]interface{})["code"])
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)

	conn := dial(t, srv, 7)
	require.Eventually(t, func() bool { return hub.Clients(7) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients(7) == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() { hub.Publish(7, "access_code_validated", nil) })
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() { hub.Publish(1, "access_code_issued", struct{}{}) })
	assert.Zero(t, hub.Clients(1))
}
