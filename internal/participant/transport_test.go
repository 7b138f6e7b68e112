package participant

import (
	"context"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/pkg/proto"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn_RoundTrip(t *testing.T) {
	received := make(chan proto.ClientToServerMessage, 1)
	release := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(proto.RoleMessage(game.RoleWhite))
		_ = conn.WriteJSON(proto.StateMessage(game.InitialPosition, 0))

		var msg proto.ClientToServerMessage
		if err := conn.ReadJSON(&msg); err == nil {
			received <- msg
		}
		<-release
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)

	p := New(Options{Sender: conn})
	done := make(chan error, 1)
	go func() { done <- conn.Listen(ctx, p) }()

	require.Eventually(t, func() bool {
		_, _, ok := p.Position()
		return ok && p.Role() == game.RoleWhite
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.ProposeLocalMove(ctx, "e2", "e4"))

	select {
	case msg := <-received:
		assert.Equal(t, proto.TypeMove, msg.Type)
		require.NotNil(t, msg.Move)
		assert.Equal(t, "e2e4", msg.Move.UCI())
	case <-ctx.Done():
		t.Fatal("server never received the move")
	}

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("listen did not return after close")
	}
	assert.Equal(t, "Connection lost", p.Frame().Status)
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	assert.Error(t, err)
}
