package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebSocketAfterShutdown(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	srv := NewServer("localhost:0", svc, NewNoopValidator(), log.New(io.Discard))

	// Cancelled before any upgrade: the connection loop never runs, so
	// nothing drains the register channel.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.handleWebSocket(ctx, w, r)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	start := time.Now()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server should close the connection")
	assert.Less(t, time.Since(start), 2*time.Second,
		"close should be prompt, not a stuck handler timing out the read")
}
