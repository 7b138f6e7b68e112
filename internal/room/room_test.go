package room

import (
	"context"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/player"
	"ctchen222/Chess-Room/pkg/proto"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn keeps every text frame written to it.
type recordingConn struct {
	mu     sync.Mutex
	frames []proto.ServerToClientMessage
	pings  int
	closed bool
}

func (c *recordingConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if messageType == websocket.PingMessage {
		c.pings++
		return nil
	}
	var msg proto.ServerToClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.frames = append(c.frames, msg)
	return nil
}

func (c *recordingConn) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }

func (c *recordingConn) SetReadDeadline(time.Time) error { return nil }
func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }
func (c *recordingConn) SetPongHandler(func(appData string) error) {}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) messages() []proto.ServerToClientMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proto.ServerToClientMessage(nil), c.frames...)
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func (c *recordingConn) types() []string {
	var out []string
	for _, m := range c.messages() {
		out = append(out, m.Type)
	}
	return out
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r := NewRoom("test-room", Options{})
	t.Cleanup(r.Close)
	return r
}

func join(t *testing.T, r *Room, id string) (*player.Player, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	p := player.NewPlayer(id, "", conn)
	r.Connect(context.Background(), p)
	return p, conn
}

func mustMove(t *testing.T, uci string) game.Move {
	t.Helper()
	mv, err := game.ParseUCI(uci)
	require.NoError(t, err)
	return mv
}

func resetAll(conns ...*recordingConn) {
	for _, c := range conns {
		c.reset()
	}
}

// A fresh room seats White, then Black, then spectators.
func TestRoleAssignmentOrder(t *testing.T) {
	r := newTestRoom(t)

	_, c1 := join(t, r, "p1")
	_, c2 := join(t, r, "p2")
	_, c3 := join(t, r, "p3")

	for conn, want := range map[*recordingConn]game.Role{c1: game.RoleWhite, c2: game.RoleBlack, c3: game.RoleSpectator} {
		msgs := conn.messages()
		require.Len(t, msgs, 2, "role and state only, nothing about other joins")
		assert.Equal(t, proto.TypeRole, msgs[0].Type)
		assert.Equal(t, want, msgs[0].Role)
		assert.Equal(t, proto.TypeState, msgs[1].Type)
		assert.Equal(t, game.InitialPosition, msgs[1].Position)
		assert.Equal(t, uint64(0), msgs[1].Seq)
	}
}

// White's first move reaches every connection and hands the turn to Black.
func TestFirstMoveBroadcast(t *testing.T) {
	r := newTestRoom(t)
	white, c1 := join(t, r, "p1")
	_, c2 := join(t, r, "p2")
	_, c3 := join(t, r, "p3")
	resetAll(c1, c2, c3)

	res, err := r.ProposeMove(context.Background(), white, mustMove(t, "e2e4"))
	require.NoError(t, err)
	assert.Equal(t, "White moved e4", res.Applied.Description())

	for _, conn := range []*recordingConn{c1, c2, c3} {
		msgs := conn.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, proto.TypeMove, msgs[0].Type)
		assert.Equal(t, "e2e4", msgs[0].Move.UCI())
		assert.Equal(t, "e4", msgs[0].SAN)
		assert.Equal(t, game.White, msgs[0].Color)
		assert.Equal(t, uint64(1), msgs[0].Seq)
	}

	snap := r.Snapshot()
	assert.Equal(t, game.Black, snap.SideToMove)
	assert.Equal(t, res.Position, snap.Position)
	assert.Len(t, snap.History, 1)
}

// An out of turn proposal is answered to the proposer alone.
func TestOutOfTurnRejectedPrivately(t *testing.T) {
	r := newTestRoom(t)
	_, c1 := join(t, r, "p1")
	black, c2 := join(t, r, "p2")
	_, c3 := join(t, r, "p3")
	resetAll(c1, c2, c3)
	before := r.Snapshot()

	_, err := r.ProposeMove(context.Background(), black, mustMove(t, "e7e5"))
	assert.ErrorIs(t, err, game.ErrOutOfTurn)

	msgs := c2.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.TypeInvalidMove, msgs[0].Type)
	assert.Equal(t, "e7e5", msgs[0].Move.UCI())
	assert.NotEmpty(t, msgs[0].Reason)

	assert.Empty(t, c1.messages())
	assert.Empty(t, c3.messages())
	assert.Equal(t, before, r.Snapshot())
}

// A departed White seat goes to the next connection.
func TestFreedSeatIsReassigned(t *testing.T) {
	r := newTestRoom(t)
	white, _ := join(t, r, "p1")
	join(t, r, "p2")
	join(t, r, "p3")

	assert.True(t, r.Disconnect(context.Background(), white))
	assert.False(t, r.Disconnect(context.Background(), white), "second disconnect is a no-op")

	snap := r.Snapshot()
	assert.Nil(t, snap.White)
	require.NotNil(t, snap.Black)

	_, c4 := join(t, r, "p4")
	msgs := c4.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, game.RoleWhite, msgs[0].Role)

	snap = r.Snapshot()
	require.NotNil(t, snap.White)
	assert.Equal(t, "p4", snap.White.PlayerID)
	assert.Equal(t, 1, snap.Spectators)
}

// Anyone, spectators included, may reset, and everyone hears about it.
func TestNewGameFromSpectator(t *testing.T) {
	r := newTestRoom(t)
	white, c1 := join(t, r, "p1")
	black, c2 := join(t, r, "p2")
	spectator, c3 := join(t, r, "p3")

	ctx := context.Background()
	_, err := r.ProposeMove(ctx, white, mustMove(t, "e2e4"))
	require.NoError(t, err)
	_, err = r.ProposeMove(ctx, black, mustMove(t, "c7c5"))
	require.NoError(t, err)
	gameID := r.Snapshot().GameID
	resetAll(c1, c2, c3)

	require.NoError(t, r.NewGame(ctx, spectator))

	for _, conn := range []*recordingConn{c1, c2, c3} {
		msgs := conn.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, proto.TypeNewGame, msgs[0].Type)
		assert.Equal(t, game.InitialPosition, msgs[0].Position)
		assert.Equal(t, uint64(3), msgs[0].Seq, "sequence keeps counting across resets")
	}

	snap := r.Snapshot()
	assert.Equal(t, game.InitialPosition, snap.Position)
	assert.Empty(t, snap.History)
	assert.NotEqual(t, gameID, snap.GameID)
	assert.Equal(t, game.White, snap.SideToMove)
	require.NotNil(t, snap.White)
	assert.Equal(t, "p1", snap.White.PlayerID, "seats survive a reset")
}

func TestIllegalMoveRejected(t *testing.T) {
	r := newTestRoom(t)
	white, c1 := join(t, r, "p1")
	_, c2 := join(t, r, "p2")
	resetAll(c1, c2)

	_, err := r.ProposeMove(context.Background(), white, mustMove(t, "e2e5"))
	assert.ErrorIs(t, err, game.ErrInvalidMove)
	assert.Equal(t, []string{proto.TypeInvalidMove}, c1.types())
	assert.Empty(t, c2.messages())
	assert.Equal(t, game.InitialPosition, r.Snapshot().Position)
}

func TestSpectatorCannotMove(t *testing.T) {
	r := newTestRoom(t)
	join(t, r, "p1")
	join(t, r, "p2")
	spectator, c3 := join(t, r, "p3")
	c3.reset()

	_, err := r.ProposeMove(context.Background(), spectator, mustMove(t, "e2e4"))
	assert.ErrorIs(t, err, game.ErrOutOfTurn)
	assert.Equal(t, []string{proto.TypeInvalidMove}, c3.types())
}

func TestOperationsFromStrangerAreRefused(t *testing.T) {
	r := newTestRoom(t)
	join(t, r, "p1")
	stranger := player.NewPlayer("x", "", &recordingConn{})

	_, err := r.ProposeMove(context.Background(), stranger, mustMove(t, "e2e4"))
	assert.ErrorIs(t, err, ErrNotInRoom)
	assert.ErrorIs(t, r.NewGame(context.Background(), stranger), ErrNotInRoom)
	assert.ErrorIs(t, r.Resync(context.Background(), stranger), ErrNotInRoom)
}

func TestHandleMessageIgnoresStranger(t *testing.T) {
	r := newTestRoom(t)
	_, c1 := join(t, r, "p1")
	strangerConn := &recordingConn{}
	stranger := player.NewPlayer("x", "", strangerConn)
	c1.reset()

	r.HandleMessage(stranger, []byte(`{"type":"move","move":{"from":"e2","to":"e4"}}`))
	r.HandleMessage(stranger, []byte(`{"type":"newGame"}`))
	r.HandleMessage(stranger, []byte(`{"type":"sync"}`))

	assert.Empty(t, c1.messages())
	assert.Empty(t, strangerConn.messages())
	assert.Equal(t, uint64(0), r.Snapshot().Seq)
}

func TestResyncResendsRoleAndState(t *testing.T) {
	r := newTestRoom(t)
	white, c1 := join(t, r, "p1")
	black, c2 := join(t, r, "p2")
	_, err := r.ProposeMove(context.Background(), white, mustMove(t, "d2d4"))
	require.NoError(t, err)
	resetAll(c1, c2)

	require.NoError(t, r.Resync(context.Background(), black))

	msgs := c2.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, game.RoleBlack, msgs[0].Role)
	assert.Equal(t, r.Snapshot().Position, msgs[1].Position)
	assert.Equal(t, uint64(1), msgs[1].Seq)
	assert.Empty(t, c1.messages())
}

func TestHandleMessageDispatch(t *testing.T) {
	r := newTestRoom(t)
	white, c1 := join(t, r, "p1")
	_, c2 := join(t, r, "p2")
	resetAll(c1, c2)

	r.HandleMessage(white, []byte(`{"type":"move","move":{"from":"g1","to":"f3"}}`))
	assert.Equal(t, []string{proto.TypeMove}, c2.types())

	r.HandleMessage(white, []byte(`{"type":"sync"}`))
	assert.Equal(t, []string{proto.TypeMove, proto.TypeRole, proto.TypeState}, c1.types())

	r.HandleMessage(white, []byte(`{"type":"newGame"}`))
	assert.Equal(t, []string{proto.TypeMove, proto.TypeNewGame}, c2.types())
}

func TestHandleMessageDropsMalformedFrames(t *testing.T) {
	r := newTestRoom(t)
	white, c1 := join(t, r, "p1")
	_, c2 := join(t, r, "p2")
	resetAll(c1, c2)

	for _, raw := range []string{
		`not json`,
		`{}`,
		`{"type":"resign"}`,
		`{"type":"move"}`,
		`{"type":"move","move":{"from":"z9","to":"e4"}}`,
		`{"type":"move","move":{"from":"e7","to":"e8","promotion":"k"}}`,
	} {
		r.HandleMessage(white, []byte(raw))
	}

	assert.Empty(t, c1.messages())
	assert.Empty(t, c2.messages())
	assert.Equal(t, uint64(0), r.Snapshot().Seq)
}

func TestReadPumpDisconnectsOnClose(t *testing.T) {
	r := newTestRoom(t)
	white, conn := join(t, r, "p1")

	done := make(chan struct{})
	go func() {
		r.ReadPump(white, nil)
		close(done)
	}()
	<-done

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, player.StatusDisconnected, white.Status)
	assert.True(t, conn.closed)
	assert.Nil(t, r.Snapshot().White)
}
