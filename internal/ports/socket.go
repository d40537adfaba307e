package ports

import (
	"context"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

// Socket is one live subscription to real-time indexing results.
type Socket interface {
	ConnectionID() string
	Receive() (*models.SocketMessage, error)
	Close() error
}

type SocketDialer interface {
	ConnectWebSocket(ctx context.Context) (Socket, error)
}
