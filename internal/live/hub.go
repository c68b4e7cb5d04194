package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/Avenger11764/duo-learning/internal/feed"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/profile"
)

// Frame is one push to a connected client. Every frame carries a full
// snapshot of one collection; clients replace, never patch.
type Frame struct {
	Type     string           `json:"type"` // "profiles" or "logs"
	Profiles []model.Profile  `json:"profiles,omitempty"`
	Logs     []model.LogEntry `json:"logs,omitempty"`
}

// Hub fans collection snapshots out to websocket clients. Each client has a
// small buffered queue; a slow client is dropped rather than allowed to
// stall the others.
type Hub struct {
	profiles *profile.Repo
	logs     *feed.Repo
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	// latest frames, replayed to newly connected clients
	lastProfiles []byte
	lastLogs     []byte
}

func NewHub(profiles *profile.Repo, logs *feed.Repo, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		profiles: profiles,
		logs:     logs,
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
}

// Run blocks, pumping store subscriptions into connected clients until ctx
// is cancelled. Call it once from the server's startup path.
func (h *Hub) Run(ctx context.Context) {
	profileCh, stopProfiles := h.profiles.Watch(ctx)
	defer stopProfiles()
	logCh, stopLogs := h.logs.Watch(ctx)
	defer stopLogs()

	for {
		select {
		case <-ctx.Done():
			return
		case ps, ok := <-profileCh:
			if !ok {
				return
			}
			h.broadcast(Frame{Type: "profiles", Profiles: ps}, &h.lastProfiles)
		case ls, ok := <-logCh:
			if !ok {
				return
			}
			h.broadcast(Frame{Type: "logs", Logs: ls}, &h.lastLogs)
		}
	}
}

func (h *Hub) broadcast(f Frame, last *[]byte) {
	b, err := json.Marshal(f)
	if err != nil {
		h.logger.Printf("live frame marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	*last = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// Queue full: the client is not keeping up. Close it out.
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.lastProfiles != nil {
		c.send <- h.lastProfiles
	}
	if h.lastLogs != nil {
		c.send <- h.lastLogs
	}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
