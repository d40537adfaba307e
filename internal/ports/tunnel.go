package ports

import "context"

// Tunnel exposes the local server under a public URL for webhooks.
type Tunnel interface {
	// Start returns the public webhook URL, or an error if the tunnel
	// could not come up.
	Start(ctx context.Context) (string, error)
	Stop()
	Running() bool
	PublicURL() string
}
