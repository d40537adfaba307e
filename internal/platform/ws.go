package platform

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

// Socket is one WebSocket subscription to real-time indexing results.
// The first frame after the upgrade carries our connection id; pipelines
// are attached to it by that id.
type Socket struct {
	conn *websocket.Conn
	id   string
}

func (c *Connection) ConnectWebSocket(ctx context.Context) (ports.Socket, error) {
	header := http.Header{}
	header.Set("x-access-token", c.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.socketURL(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws dial: http %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	var hello models.SocketMessage
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ws handshake read: %w", err)
	}
	if hello.Channel != models.ChannelConnection || hello.Data.ConnectionID == "" {
		conn.Close()
		return nil, fmt.Errorf("ws handshake: unexpected first frame on channel %q", hello.Channel)
	}

	return &Socket{conn: conn, id: hello.Data.ConnectionID}, nil
}

func (c *Connection) socketURL() string {
	url := c.baseURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return url + "/ws"
}

func (s *Socket) ConnectionID() string { return s.id }

func (s *Socket) Receive() (*models.SocketMessage, error) {
	var msg models.SocketMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Socket) Close() error { return s.conn.Close() }
