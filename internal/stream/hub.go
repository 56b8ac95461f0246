package stream

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans appended location updates out to live viewers of a session. With
// a Redis client it publishes through pub/sub so viewers connected to other
// instances see the update too; without one it delivers in-process only.
type Hub struct {
	redis   *redis.Client
	viewers map[string]map[*Viewer]struct{}
	mu      sync.RWMutex
}

type Viewer struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		viewers: map[string]map[*Viewer]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(sessionID string) *Viewer {
	viewer := &Viewer{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[sessionID] == nil {
		h.viewers[sessionID] = map[*Viewer]struct{}{}
	}
	h.viewers[sessionID][viewer] = struct{}{}
	return viewer
}

func (h *Hub) Unregister(viewer *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionViewers, ok := h.viewers[viewer.SessionID]; ok {
		delete(sessionViewers, viewer)
		if len(sessionViewers) == 0 {
			delete(h.viewers, viewer.SessionID)
		}
	}
	close(viewer.Send)
}

// Broadcast routes the payload through Redis when configured so every
// instance's viewers receive it exactly once; local delivery is the
// fallback when publish fails or no Redis is wired.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), locationChannel(sessionID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
			h.deliver(sessionID, payload)
		}
		return
	}
	h.deliver(sessionID, payload)
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	viewers := h.viewers[sessionID]
	h.mu.RUnlock()

	for viewer := range viewers {
		select {
		case viewer.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	pubsub := h.redis.PSubscribe(context.Background(), "safetrack:*:locations")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		if sessionID := sessionIDFromChannel(msg.Channel); sessionID != "" {
			h.deliver(sessionID, []byte(msg.Payload))
		}
	}
}

func locationChannel(sessionID string) string {
	return "safetrack:" + sessionID + ":locations"
}

func sessionIDFromChannel(ch string) string {
	const prefix = "safetrack:"
	const suffix = ":locations"
	if !strings.HasPrefix(ch, prefix) || !strings.HasSuffix(ch, suffix) || len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
