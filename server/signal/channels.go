package signal

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/socialmux/socialmux/model"
)

// channelBuffer is per connection. A slow consumer loses signals instead of
// blocking the relay; a lost signal only delays the next refetch until the
// staleness fallback clears it.
const channelBuffer = 8

// Channels tracks every user's open signal connections. All internal state is
// managed through its receivers, never by hand.
type Channels struct {
	// connectionMap maps from user id to the user's active signal channels,
	// keyed by a per-connection id so deletion is O(1). A user's top-level
	// entry is removed once all of their connections are gone. Devices cannot
	// share a channel, each connection registers its own.
	connectionMap map[string]map[string]chan *model.Signal

	// Adding/removing a connection grabs the write lock, pushing grabs the
	// read lock. A per-user lock is possible but a shared one is enough here.
	mu sync.RWMutex
}

func NewChannels() *Channels {
	return &Channels{
		connectionMap: make(map[string]map[string]chan *model.Signal),
	}
}

// cleanUp a single connection when its context terminates.
func (sc *Channels) cleanUp(ctx context.Context, chID string, userID string) {
	<-ctx.Done()

	sc.mu.Lock()
	defer sc.mu.Unlock()

	delete(sc.connectionMap[userID], chID)
	if len(sc.connectionMap[userID]) == 0 {
		delete(sc.connectionMap, userID)
	}
}

// AddConnection registers a signal channel for the user and returns it with
// its connection id. The channel is deregistered when ctx terminates.
func (sc *Channels) AddConnection(ctx context.Context, userID string) (chan *model.Signal, string) {
	chID := "signal_channel_" + uuid.New().String()
	ch := make(chan *model.Signal, channelBuffer)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, ok := sc.connectionMap[userID]; !ok {
		sc.connectionMap[userID] = make(map[string]chan *model.Signal)
	}
	sc.connectionMap[userID][chID] = ch

	go sc.cleanUp(ctx, chID, userID)

	return ch, chID
}

// ActiveConnectionsCount is thread-safe.
func (sc *Channels) ActiveConnectionsCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	count := 0
	for _, mp := range sc.connectionMap {
		count += len(mp)
	}
	return count
}

// Push delivers the signal to all of a user's connections without ever
// blocking: full channels drop the signal.
func (sc *Channels) Push(signal *model.Signal, userID string) error {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	userChannels, ok := sc.connectionMap[userID]
	if !ok {
		return errors.New("no active connection for user: " + userID)
	}
	for _, ch := range userChannels {
		select {
		case ch <- signal:
		default:
		}
	}
	return nil
}

// Broadcast delivers the signal to every connected user, used for
// entry-scoped signals where viewers are not tracked per entry. Non-blocking
// like Push.
func (sc *Channels) Broadcast(signal *model.Signal) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	for _, userChannels := range sc.connectionMap {
		for _, ch := range userChannels {
			select {
			case ch <- signal:
			default:
			}
		}
	}
}
