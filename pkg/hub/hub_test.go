package hub

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Hub, addr string) {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", fws.New(func(c *fws.Conn) {
		NewClient(h, c).Run()
	}))

	go app.Listen(addr)
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)
}

func TestBroadcastDropsWhenQueueFull(t *testing.T) {
	h := New("test", nil)

	for i := 0; i < cap(h.broadcast)+3; i++ {
		h.Broadcast(NewJSONMessage([]byte("{}")))
	}

	assert.Equal(t, uint64(3), h.Dropped())
	assert.False(t, h.IsRunning())
	assert.Equal(t, 0, h.ClientCount())
}

func TestBroadcastJSONRejectsUnencodable(t *testing.T) {
	h := New("test", nil)
	assert.Error(t, h.BroadcastJSON(make(chan int)))
}

func TestHubDeliversToClients(t *testing.T) {
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	serve(t, h, ":18190")

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18190/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"tick": 7}))
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.JSONEq(t, `{"tick":7}`, string(data))

	h.BroadcastBinary([]byte{0xff, 0xd8})
	typ, data, err = ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	serve(t, h, ":18191")

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18191/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.ClientCount())

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err)

	// A hub that has stopped turns new connections away.
	late, _, err := websocket.DefaultDialer.Dial("ws://localhost:18191/ws", nil)
	require.NoError(t, err)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}
