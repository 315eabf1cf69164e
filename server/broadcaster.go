package server

import (
	"sync"

	"folio/feed"
	"folio/models"

	log "github.com/sirupsen/logrus"
)

// Broadcaster fans feed events out to every connected SSE client
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan models.FeedEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan models.FeedEvent),
	}
}

func (b *Broadcaster) broadcast(event models.FeedEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping %s event for client: %v", event.Kind, id)
		}
	}
}

// Append implements feed.Sink
func (b *Broadcaster) Append(category feed.Category, entries []models.Entry) {
	b.broadcast(models.FeedEvent{Kind: "append", Category: string(category), Entries: entries})
}

// Clear implements feed.Sink
func (b *Broadcaster) Clear(category feed.Category) {
	b.broadcast(models.FeedEvent{Kind: "clear", Category: string(category)})
}

func (b *Broadcaster) AddClient(key string, client chan models.FeedEvent) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	client, ok := b.clients[key]
	if !ok {
		return
	}
	close(client)
	delete(b.clients, key)

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}

var _ feed.Sink = (*Broadcaster)(nil)
