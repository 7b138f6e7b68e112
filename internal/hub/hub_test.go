package hub

import (
	"context"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/hub/types"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/pkg/proto"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errClosed = errors.New("connection closed")

// pipeConn delivers frames pushed with send and records frames written to it.
type pipeConn struct {
	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	mu       sync.Mutex
	received []proto.ServerToClientMessage
}

func newPipeConn() *pipeConn {
	return &pipeConn{inbound: make(chan []byte, 8), done: make(chan struct{})}
}

func (c *pipeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var msg proto.ServerToClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	c.received = append(c.received, msg)
	c.mu.Unlock()
	return nil
}

func (c *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.inbound:
		return websocket.TextMessage, data, nil
	case <-c.done:
		return 0, nil, errClosed
	}
}

func (c *pipeConn) SetReadDeadline(time.Time) error { return nil }
func (c *pipeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *pipeConn) SetPongHandler(func(appData string) error) {}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *pipeConn) send(raw string) { c.inbound <- []byte(raw) }

func (c *pipeConn) messages() []proto.ServerToClientMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proto.ServerToClientMessage(nil), c.received...)
}

func (c *pipeConn) roleOf() game.Role {
	for _, m := range c.messages() {
		if m.Type == proto.TypeRole {
			return m.Role
		}
	}
	return ""
}

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	h := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func register(t *testing.T, h *Hub, id, roomID string) (*pipeConn, error) {
	t.Helper()
	conn := newPipeConn()
	result := make(chan error, 1)
	h.Register() <- &types.RegistrationRequest{
		Player: player.NewPlayer(id, "", conn),
		RoomID: roomID,
		Ctx:    context.Background(),
		Result: result,
	}
	select {
	case err := <-result:
		return conn, err
	case <-time.After(2 * time.Second):
		t.Fatal("registration timed out")
		return nil, nil
	}
}

func TestHub_RoutesToDefaultRoom(t *testing.T) {
	h := startHub(t, Options{DefaultRoom: "main"})

	c1, err := register(t, h, "p1", "")
	require.NoError(t, err)
	c2, err := register(t, h, "p2", "main")
	require.NoError(t, err)

	assert.Equal(t, game.RoleWhite, c1.roleOf())
	assert.Equal(t, game.RoleBlack, c2.roleOf())
	assert.Equal(t, []string{"main"}, h.RoomIDs())
	assert.Equal(t, "main", h.DefaultRoom())
}

func TestHub_RoomsAreIndependent(t *testing.T) {
	h := startHub(t, Options{})

	a, err := register(t, h, "a", "alpha")
	require.NoError(t, err)
	b, err := register(t, h, "b", "beta")
	require.NoError(t, err)

	assert.Equal(t, game.RoleWhite, a.roleOf())
	assert.Equal(t, game.RoleWhite, b.roleOf())
	assert.Equal(t, []string{"alpha", "beta"}, h.RoomIDs())
}

func TestHub_FramesReachTheRoom(t *testing.T) {
	h := startHub(t, Options{})
	white, err := register(t, h, "w", "")
	require.NoError(t, err)
	black, err := register(t, h, "b", "")
	require.NoError(t, err)

	white.send(`{"type":"move","move":{"from":"e2","to":"e4"}}`)

	assert.Eventually(t, func() bool {
		for _, m := range black.messages() {
			if m.Type == proto.TypeMove && m.SAN == "e4" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_ClosesEmptyRoomsButKeepsDefault(t *testing.T) {
	h := startHub(t, Options{DefaultRoom: "lobby"})

	lobby, err := register(t, h, "p1", "")
	require.NoError(t, err)
	side, err := register(t, h, "p2", "side")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"lobby", "side"}, h.RoomIDs())

	side.Close()
	assert.Eventually(t, func() bool {
		_, ok := h.Room("side")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	lobby.Close()
	assert.Eventually(t, func() bool {
		rm, ok := h.Room("lobby")
		return ok && rm.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"lobby"}, h.RoomIDs())
}

func TestHub_SeatFreedOnDisconnect(t *testing.T) {
	h := startHub(t, Options{})
	white, err := register(t, h, "w", "")
	require.NoError(t, err)
	_, err = register(t, h, "b", "")
	require.NoError(t, err)

	white.Close()
	rm, ok := h.Room(h.DefaultRoom())
	require.True(t, ok)
	assert.Eventually(t, func() bool { return rm.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	next, err := register(t, h, "n", "")
	require.NoError(t, err)
	assert.Equal(t, game.RoleWhite, next.roleOf())
}

func TestHub_MaxRooms(t *testing.T) {
	h := startHub(t, Options{DefaultRoom: "lobby", MaxRooms: 1})

	_, err := register(t, h, "p1", "")
	require.NoError(t, err)
	_, err = register(t, h, "p2", "elsewhere")
	assert.ErrorIs(t, err, ErrTooManyRooms)
	_, err = register(t, h, "p3", "lobby")
	assert.NoError(t, err, "existing rooms still accept connections")
}
