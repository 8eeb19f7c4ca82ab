package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Notifier receives a profile after a committed change.
type Notifier interface {
	ProfileChanged(ctx context.Context, profile models.LoyaltyProfile)
}

// Notifiers fans a change out to several notifiers.
type Notifiers []Notifier

// ProfileChanged implements Notifier.
func (n Notifiers) ProfileChanged(ctx context.Context, profile models.LoyaltyProfile) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.ProfileChanged(ctx, profile)
		}
	}
}

// feedBuffer is the per-subscriber queue depth; slow subscribers drop updates.
const feedBuffer = 8

// Feed is an in-process subscription hub keyed by user.
type Feed struct {
	mu   sync.RWMutex
	subs map[uint64]map[chan models.LoyaltyProfile]struct{}
}

// NewFeed constructs an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]map[chan models.LoyaltyProfile]struct{})}
}

// Subscribe registers interest in userID. The returned cancel func must be called
// once; it closes the channel.
func (f *Feed) Subscribe(userID uint64) (<-chan models.LoyaltyProfile, func()) {
	ch := make(chan models.LoyaltyProfile, feedBuffer)
	f.mu.Lock()
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[chan models.LoyaltyProfile]struct{})
	}
	f.subs[userID][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[userID], ch)
			if len(f.subs[userID]) == 0 {
				delete(f.subs, userID)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// ProfileChanged implements Notifier.
func (f *Feed) ProfileChanged(_ context.Context, profile models.LoyaltyProfile) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs[profile.UserID] {
		select {
		case ch <- profile:
		default:
		}
	}
}

// RedisPublisher publishes profile changes to a per-user redis channel.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPublisher returns nil when client is nil so callers can wire it unconditionally.
func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "loyalty:profile:"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel name for userID.
func (p *RedisPublisher) Channel(userID uint64) string {
	return p.prefix + strconv.FormatUint(userID, 10)
}

// ProfileChanged implements Notifier. Publish failures are logged, never returned.
func (p *RedisPublisher) ProfileChanged(ctx context.Context, profile models.LoyaltyProfile) {
	if p == nil {
		return
	}
	payload, errMarshal := json.Marshal(ProfileView(profile))
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("ledger: marshal profile change failed")
		return
	}
	if errPublish := p.client.Publish(ctx, p.Channel(profile.UserID), payload).Err(); errPublish != nil {
		log.WithError(errPublish).WithField("user_id", profile.UserID).Warn("ledger: publish profile change failed")
	}
}
