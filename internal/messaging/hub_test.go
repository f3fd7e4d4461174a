package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/marketplace"
	"github.com/sudo-init-do/skillswap/internal/models"
)

type fakeExchanges map[string]*models.Exchange

func (f fakeExchanges) Get(_ context.Context, exchangeID, callerID string) (*models.Exchange, error) {
	ex, ok := f[exchangeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if marketplace.RoleOf(ex, callerID) == marketplace.RoleOutsider {
		return nil, domain.ErrForbidden
	}
	return ex, nil
}

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	exchanges := fakeExchanges{"ex-1": {ID: "ex-1", RequesterID: "alice", ProviderID: "bob"}}

	e := echo.New()
	// stands in for the JWT middleware
	auth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.QueryParam("as"); uid != "" {
				c.Set("user_id", uid)
			}
			return next(c)
		}
	}
	e.GET("/exchanges/:id/ws", hub.ExchangeWS(exchanges), auth)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, exchangeID, user string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/exchanges/" + exchangeID + "/ws?as=" + user
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) marketplace.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev marketplace.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubDeliversEventsToParticipants(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	conn, _, err := dial(t, srv, "ex-1", "alice")
	require.NoError(t, err)
	defer conn.Close()

	join := readEvent(t, conn)
	assert.Equal(t, EventPresenceJoin, join.Type)
	assert.Equal(t, 1, hub.Watchers("ex-1"))

	hub.Publish(marketplace.Event{Type: marketplace.EventMessageNew, ExchangeID: "ex-1", Data: echo.Map{"text": "hi"}})
	hub.Publish(marketplace.Event{Type: marketplace.EventMessageNew, ExchangeID: "ex-2", Data: echo.Map{"text": "elsewhere"}})
	hub.Publish(marketplace.Event{Type: marketplace.EventStatusChanged, ExchangeID: "ex-1"})

	ev := readEvent(t, conn)
	assert.Equal(t, marketplace.EventMessageNew, ev.Type)
	assert.Equal(t, "ex-1", ev.ExchangeID)
	assert.Equal(t, marketplace.EventStatusChanged, readEvent(t, conn).Type)
}

func TestHubPresenceLeave(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	alice, _, err := dial(t, srv, "ex-1", "alice")
	require.NoError(t, err)
	defer alice.Close()
	assert.Equal(t, EventPresenceJoin, readEvent(t, alice).Type)

	bob, _, err := dial(t, srv, "ex-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, EventPresenceJoin, readEvent(t, alice).Type)
	assert.Equal(t, EventPresenceJoin, readEvent(t, bob).Type)

	require.NoError(t, bob.Close())
	leave := readEvent(t, alice)
	assert.Equal(t, EventPresenceLeave, leave.Type)
	assert.Equal(t, map[string]any{"user_id": "bob"}, leave.Data)
	assert.Eventually(t, func() bool { return hub.Watchers("ex-1") == 1 }, time.Second, 10*time.Millisecond)
}

func TestExchangeWSRejectsOutsiders(t *testing.T) {
	srv := newServer(t, NewHub())

	tests := []struct {
		exchange string
		user     string
		want     int
	}{
		{"ex-1", "mallory", http.StatusForbidden},
		{"ex-9", "alice", http.StatusNotFound},
		{"ex-1", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		_, resp, err := dial(t, srv, tt.exchange, tt.user)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, tt.want, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestPublishDropsStalledClient(t *testing.T) {
	old := writeWait
	writeWait = 200 * time.Millisecond
	t.Cleanup(func() { writeWait = old })

	hub := NewHub()
	srv := newServer(t, hub)

	// never reads, so the server side fills its socket buffers
	stalled, _, err := dial(t, srv, "ex-1", "bob")
	require.NoError(t, err)
	defer stalled.Close()
	require.Eventually(t, func() bool { return hub.Watchers("ex-1") == 1 }, time.Second, 10*time.Millisecond)

	big := strings.Repeat("x", 1<<20)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			hub.Publish(marketplace.Event{Type: marketplace.EventMessageNew, ExchangeID: "ex-1", Data: echo.Map{"text": big}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a client that stopped reading")
	}
	assert.Eventually(t, func() bool { return hub.Watchers("ex-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
