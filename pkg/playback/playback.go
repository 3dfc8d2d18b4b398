// Package playback holds per-guild call state: the queue of tracks, who
// requested each one and which channels the call is bound to. Audio itself
// is handled by the voice connection; this package only tracks state.
package playback

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// Track is queued media metadata.
type Track struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Author       string        `json:"author,omitempty"`
	URL          string        `json:"url,omitempty"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// NewTrack assigns a fresh id to track metadata.
func NewTrack(title, author, url string, duration time.Duration) Track {
	return Track{
		ID:       uuid.NewString(),
		Title:    title,
		Author:   author,
		URL:      url,
		Duration: duration,
	}
}

// Playing is a snapshot of the queue head.
type Playing struct {
	Track       Track
	Position    time.Duration
	RequestedAt time.Time
	Upcoming    int
}

type entry struct {
	track       Track
	requester   string
	requestedAt time.Time
}

// Call is the playback state of one guild's voice session.
type Call struct {
	GuildID        string
	VoiceChannelID string

	mu            sync.RWMutex
	textChannelID string
	queue         []entry
	requesters    map[string]string // track id -> user id
	startedAt     time.Time
	voice         *discordgo.VoiceConnection
	now           func() time.Time
}

func newCall(guildID, voiceChannelID, textChannelID string, now func() time.Time) *Call {
	return &Call{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		textChannelID:  textChannelID,
		requesters:     make(map[string]string),
		now:            now,
	}
}

// TextChannelID is where status messages for this call go.
func (c *Call) TextChannelID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.textChannelID
}

func (c *Call) SetTextChannel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textChannelID = id
}

// AttachVoice binds the voice connection that plays this call's audio.
func (c *Call) AttachVoice(vc *discordgo.VoiceConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = vc
}

// Enqueue appends a track and returns its queue position (0 = playing now).
func (c *Call) Enqueue(t Track, requesterID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := c.now()
	c.advance(now)
	c.queue = append(c.queue, entry{track: t, requester: requesterID, requestedAt: now})
	if requesterID != "" {
		c.requesters[t.ID] = requesterID
	}
	if len(c.queue) == 1 {
		c.startedAt = now
	}
	return len(c.queue) - 1
}

// Skip drops the queue head and returns it.
func (c *Call) Skip() (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance(c.now())
	if len(c.queue) == 0 {
		return Track{}, false
	}
	head := c.queue[0]
	c.queue = c.queue[1:]
	delete(c.requesters, head.track.ID)
	c.startedAt = c.now()
	return head.track, true
}

// Clear empties the queue.
func (c *Call) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = nil
	c.requesters = make(map[string]string)
}

// Queue returns a copy of the queued tracks, head first.
func (c *Call) Queue() []Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance(c.now())
	out := make([]Track, len(c.queue))
	for i, e := range c.queue {
		out[i] = e.track
	}
	return out
}

// CurrentTrack returns the queue head. Tracks whose duration has elapsed
// are dropped first, so a call that played through its queue reports none.
func (c *Call) CurrentTrack() (Playing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.advance(now)
	if len(c.queue) == 0 {
		return Playing{}, false
	}
	head := c.queue[0]
	pos := now.Sub(c.startedAt)
	return Playing{
		Track:       head.track,
		Position:    pos,
		RequestedAt: head.requestedAt,
		Upcoming:    len(c.queue) - 1,
	}, true
}

// advance pops every head that has played for its full duration. A head
// with unknown duration (0) stays until skipped. Caller holds c.mu.
func (c *Call) advance(now time.Time) {
	for len(c.queue) > 0 {
		d := c.queue[0].track.Duration
		if d <= 0 || now.Sub(c.startedAt) < d {
			return
		}
		delete(c.requesters, c.queue[0].track.ID)
		c.queue = c.queue[1:]
		c.startedAt = c.startedAt.Add(d)
	}
}

// RequesterOf returns the user who queued a track.
func (c *Call) RequesterOf(trackID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.requesters[trackID]
	return id, ok
}

func (c *Call) disconnect() error {
	c.mu.Lock()
	vc := c.voice
	c.voice = nil
	c.mu.Unlock()
	if vc == nil {
		return nil
	}
	return vc.Disconnect()
}
