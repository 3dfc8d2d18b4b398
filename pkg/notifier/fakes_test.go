package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/playback"
)

// fakeChannels models channels as ordered message id lists.
type fakeChannels struct {
	mu       sync.Mutex
	next     int
	channels map[string][]string
	content  map[string]message.Content

	sends, edits, deletes int

	editErr   error
	deleteErr error
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{
		channels: make(map[string][]string),
		content:  make(map[string]message.Content),
	}
}

func (f *fakeChannels) Send(ctx context.Context, channelID string, c message.Content) (message.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	id := f.post(channelID)
	f.content[id] = c
	return message.Handle{ChannelID: channelID, ID: id}, nil
}

func (f *fakeChannels) Edit(ctx context.Context, h message.Handle, c message.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits++
	f.content[h.ID] = c
	return nil
}

func (f *fakeChannels) Delete(ctx context.Context, h message.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	f.remove(h)
	return nil
}

func (f *fakeChannels) Fetch(ctx context.Context, channelID, messageID string) (message.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.channels[channelID] {
		if id == messageID {
			return message.Handle{ChannelID: channelID, ID: id}, nil
		}
	}
	return message.Handle{}, message.ErrNotFound
}

func (f *fakeChannels) IsMostRecent(ctx context.Context, h message.Handle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.channels[h.ChannelID]
	return len(ids) > 0 && ids[len(ids)-1] == h.ID, nil
}

// chatter simulates another user posting in the channel.
func (f *fakeChannels) chatter(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.post(channelID)
}

// vanish removes a message behind the notifier's back.
func (f *fakeChannels) vanish(h message.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remove(h)
}

func (f *fakeChannels) post(channelID string) string {
	f.next++
	id := fmt.Sprintf("M%d", f.next)
	f.channels[channelID] = append(f.channels[channelID], id)
	return id
}

func (f *fakeChannels) remove(h message.Handle) {
	ids := f.channels[h.ChannelID]
	for i, id := range ids {
		if id == h.ID {
			f.channels[h.ChannelID] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

func (f *fakeChannels) counts() (sends, edits, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends, f.edits, f.deletes
}

func (f *fakeChannels) title(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.content[id]
	if !ok || len(c.Embeds) == 0 {
		return ""
	}
	return c.Embeds[0].Title
}

type fakeCall struct {
	mu         sync.Mutex
	channelID  string
	playing    *playback.Playing
	requesters map[string]string
}

func (c *fakeCall) CurrentTrack() (playback.Playing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing == nil {
		return playback.Playing{}, false
	}
	return *c.playing, true
}

func (c *fakeCall) RequesterOf(trackID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.requesters[trackID]
	return id, ok
}

func (c *fakeCall) TextChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *fakeCall) play(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = &playback.Playing{Track: playback.Track{ID: title, Title: title}}
}

func (c *fakeCall) empty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = nil
}

type fakeCalls struct {
	mu    sync.Mutex
	calls map[string]*fakeCall
}

func (f *fakeCalls) Lookup(roomID string) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok {
		return nil, false
	}
	return c, true
}

func (f *fakeCalls) end(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.calls, roomID)
}

type fakeUsers map[string]*discordgo.User

func (f fakeUsers) User(ctx context.Context, id string) (*discordgo.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", id)
	}
	return u, nil
}
