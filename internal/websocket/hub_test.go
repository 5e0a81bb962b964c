package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"retail-backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan []byte) (Notice, bool) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			return Notice{}, false
		}
		var n Notice
		require.NoError(t, json.Unmarshal(msg, &n))
		return n, true
	case <-time.After(200 * time.Millisecond):
		return Notice{}, false
	}
}

func TestHubFiltersByStore(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	storeA, storeB := uuid.New(), uuid.New()
	owner := &Client{Hub: hub, Send: make(chan []byte, 4)}
	manager := &Client{Hub: hub, Send: make(chan []byte, 4), store: &storeA}
	hub.register <- owner
	hub.register <- manager

	hub.Notify("sale.created", &storeB)

	n, ok := receive(t, owner.Send)
	require.True(t, ok)
	assert.Equal(t, "sale.created", n.Event)
	require.NotNil(t, n.StoreID)
	assert.Equal(t, storeB, *n.StoreID)

	_, ok = receive(t, manager.Send)
	assert.False(t, ok, "store A terminal must not hear about store B")

	hub.Notify("sync.pushed", nil)
	_, ok = receive(t, manager.Send)
	assert.True(t, ok, "global notices reach every terminal")
}

func TestServeWsRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func(string) (model.Scope, error) { return model.Scope{}, errors.New("bad token") })
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws?token=nope", nil))
	assert.Equal(t, 401, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, 401, w.Code)
}

func TestServeWsDeliversNotices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	store := uuid.New()
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func(string) (model.Scope, error) {
			return model.Scope{UserID: uuid.New(), Role: model.RoleStoreManager, StoreID: &store}, nil
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=ok"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The upgrade completes before the hub registers the client, so keep
	// announcing until the first notice arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				hub.Notify("stock.appended", &store)
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var n Notice
	require.NoError(t, json.Unmarshal(msg, &n))
	assert.Equal(t, "stock.appended", n.Event)
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{Hub: hub, Send: make(chan []byte, 1)}
	require.True(t, hub.join(client))
	cancel()
	<-stopped

	_, open := <-client.Send
	assert.False(t, open, "shutdown closes every send channel")

	left := make(chan struct{})
	go func() {
		hub.leave(client)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked on a stopped hub")
	}

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func(string) (model.Scope, error) {
			return model.Scope{UserID: uuid.New(), Role: model.RoleOwner}, nil
		})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=ok"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}
