package playback

import (
	"sync"
	"time"

	"github.com/sipeed/picotune/pkg/logger"
)

// Registry tracks the active call of each guild.
type Registry struct {
	mu      sync.RWMutex
	calls   map[string]*Call
	onLeave []func(guildID string)
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		calls: make(map[string]*Call),
		now:   time.Now,
	}
}

// Join returns the guild's call, creating it if needed. An existing call
// keeps its channels.
func (r *Registry) Join(guildID, voiceChannelID, textChannelID string) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[guildID]; ok {
		return c, false
	}
	c := newCall(guildID, voiceChannelID, textChannelID, r.now)
	r.calls[guildID] = c
	logger.InfoCF("playback", "Call started", map[string]interface{}{
		"guild_id":         guildID,
		"voice_channel_id": voiceChannelID,
	})
	return c, true
}

// Lookup returns the guild's active call.
func (r *Registry) Lookup(guildID string) (*Call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[guildID]
	return c, ok
}

// Leave ends the guild's call and notifies OnLeave subscribers.
func (r *Registry) Leave(guildID string) bool {
	r.mu.Lock()
	c, ok := r.calls[guildID]
	delete(r.calls, guildID)
	hooks := append([]func(string){}, r.onLeave...)
	r.mu.Unlock()
	if !ok {
		return false
	}

	if err := c.disconnect(); err != nil {
		logger.WarnCF("playback", "Voice disconnect failed", map[string]interface{}{
			"guild_id": guildID,
			"error":    err.Error(),
		})
	}
	for _, h := range hooks {
		h(guildID)
	}
	logger.InfoCF("playback", "Call ended", map[string]interface{}{"guild_id": guildID})
	return true
}

// OnLeave registers a callback run after a call ends.
func (r *Registry) OnLeave(fn func(guildID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLeave = append(r.onLeave, fn)
}

// Count returns the number of active calls.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}

// Guilds lists the guilds with an active call, in no particular order.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.calls))
	for id := range r.calls {
		ids = append(ids, id)
	}
	return ids
}
