package interactive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sipeed/picotune/pkg/message"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []message.Content
	edits   []message.Content
	deleted []message.Handle
	sendErr error
}

func (f *fakeTransport) Send(ctx context.Context, channelID string, c message.Content) (message.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return message.Handle{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return message.Handle{ChannelID: channelID, ID: fmt.Sprintf("m%d", len(f.sent))}, nil
}

func (f *fakeTransport) Edit(ctx context.Context, h message.Handle, c message.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, c)
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, h message.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, h)
	return nil
}

func (f *fakeTransport) Fetch(ctx context.Context, channelID, id string) (message.Handle, error) {
	return message.Handle{}, errors.New("not used")
}

func (f *fakeTransport) IsMostRecent(ctx context.Context, h message.Handle) (bool, error) {
	return true, nil
}

func (f *fakeTransport) counts() (sent, edits, deleted int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent), len(f.edits), len(f.deleted)
}

// fakeSource forwards queued events until the subscription context ends.
type fakeSource struct {
	in         chan Event
	scope      Scope
	subscribed chan struct{}
	once       sync.Once
}

func newFakeSource(events ...Event) *fakeSource {
	f := &fakeSource{in: make(chan Event, 64), subscribed: make(chan struct{})}
	for _, ev := range events {
		f.in <- ev
	}
	return f
}

func (f *fakeSource) Subscribe(ctx context.Context, scope Scope) (<-chan Event, error) {
	f.scope = scope
	f.once.Do(func() { close(f.subscribed) })
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-f.in:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type fakeResponder struct {
	mu      sync.Mutex
	acked   []string
	updated []string
	ackErr  error
}

func (f *fakeResponder) Acknowledge(ctx context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ev.ControlID)
	return f.ackErr
}

func (f *fakeResponder) UpdateResponse(ctx context.Context, ev Event, c message.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, ev.ControlID)
	return nil
}

func click(id string) Event {
	return Event{InteractionID: "i-" + id, ControlID: id, UserID: "u1"}
}
