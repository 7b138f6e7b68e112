package participant

import (
	"context"
	"ctchen222/Chess-Room/pkg/proto"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 64 * 1024
)

// Conn is the client end of a room connection.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// Dial opens a websocket to the server's /ws endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ws.SetReadLimit(readLimit)
	return &Conn{ws: ws}, nil
}

// Send writes one message. Writes are serialized; wsjson.Write is not safe
// for concurrent use.
func (c *Conn) Send(ctx context.Context, msg proto.ClientToServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, msg)
}

// Listen feeds every server frame to p until the connection closes or ctx is
// done. A normal closure returns nil.
func (c *Conn) Listen(ctx context.Context, p *Participant) error {
	p.OnConnected()
	defer p.OnDisconnected()

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := p.Dispatch(ctx, data); err != nil {
			slog.WarnContext(ctx, "Failed to handle server message", "error", err)
		}
	}
}

// Close ends the connection with a normal closure.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
