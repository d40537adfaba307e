package listener

import (
	"sync"

	"go.uber.org/zap"
)

// Registry tracks live listeners per capture session so they can be torn
// down together when the session stops.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]*Handle
	log      *zap.SugaredLogger
}

func NewRegistry(log *zap.SugaredLogger) *Registry {
	return &Registry{
		sessions: make(map[string][]*Handle),
		log:      log,
	}
}

func (r *Registry) Register(sessionID string, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = append(r.sessions[sessionID], h)
	r.log.Infof("[registry] register session=%s listeners=%d", sessionID, len(r.sessions[sessionID]))
}

// CloseSession closes every listener of a session and forgets it.
func (r *Registry) CloseSession(sessionID string) {
	r.mu.Lock()
	handles, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, h := range handles {
		h.Close()
	}
	r.log.Infof("[registry] closed session=%s listeners=%d", sessionID, len(handles))
}

func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID])
}
