package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/events"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/render"
)

var outcomeEvents = map[Outcome]string{
	OutcomeSent:     events.NotifierSent,
	OutcomeEdited:   events.NotifierEdited,
	OutcomeReplaced: events.NotifierReplaced,
}

const componentName = "notifier"

const errCallEnded = notifierError("call ended")

type notifierError string

func (e notifierError) Error() string { return string(e) }

// Options tune a Manager. Zero values use the defaults.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Bus          *bus.MessageBus
	Now          func() time.Time
}

// room is the status record of one guild.
type room struct {
	mu       sync.Mutex // held for a whole reconciliation
	last     message.Handle
	lastIdle bool

	// guarded by Manager.mu
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs one notifier task per active guild.
type Manager struct {
	calls     Calls
	transport message.Transport
	users     UserLookup
	bus       *bus.MessageBus
	delay     time.Duration
	interval  time.Duration
	now       func() time.Time

	mu    sync.Mutex
	rooms map[string]*room
}

func NewManager(calls Calls, transport message.Transport, users UserLookup, opts Options) *Manager {
	m := &Manager{
		calls:     calls,
		transport: transport,
		users:     users,
		bus:       opts.Bus,
		delay:     opts.InitialDelay,
		interval:  opts.Interval,
		now:       opts.Now,
		rooms:     make(map[string]*room),
	}
	if m.delay <= 0 {
		m.delay = DefaultInitialDelay
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Start spawns the guild's task unless one is already running. The task
// lives until Stop, Shutdown, ctx cancellation, or the call going away.
func (m *Manager) Start(ctx context.Context, roomID string) bool {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if ok && r.done != nil {
		m.mu.Unlock()
		return false
	}
	if !ok {
		r = &room{}
		m.rooms[roomID] = r
	}
	taskCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	m.mu.Unlock()

	logger.InfoCF(componentName, "Status updates started", map[string]interface{}{
		"room_id":  roomID,
		"interval": m.interval.String(),
	})
	go m.run(taskCtx, roomID, r)
	return true
}

func (m *Manager) run(ctx context.Context, roomID string, r *room) {
	defer close(r.done)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-gctx.Done():
			return nil
		case <-timer.C:
			return m.tick(gctx, roomID, r)
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := m.tick(gctx, roomID, r); err != nil {
					return err
				}
			}
		}
	})
	err := g.Wait()

	m.forget(roomID, r)
	reason := "stopped"
	if err != nil {
		reason = err.Error()
	}
	logger.InfoCF(componentName, "Status updates stopped", map[string]interface{}{
		"room_id": roomID,
		"reason":  reason,
	})
	m.bus.PublishSystem(events.New(events.NotifierStopped, events.Notifier{RoomID: roomID, Reason: reason}))
}

func (m *Manager) tick(ctx context.Context, roomID string, r *room) error {
	if m.reconcile(ctx, roomID, r) == OutcomeCallEnded {
		return errCallEnded
	}
	return nil
}

// Stop cancels the guild's task and drops its record.
func (m *Manager) Stop(roomID string) {
	m.mu.Lock()
	var cancel context.CancelFunc
	var done chan struct{}
	if r, ok := m.rooms[roomID]; ok {
		cancel, done = r.cancel, r.done
		delete(m.rooms, roomID)
	}
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Shutdown stops every guild.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Stop(id)
	}
}

// Active reports whether the guild's task is running.
func (m *Manager) Active(roomID string) bool {
	m.mu.Lock()
	var done chan struct{}
	if r, ok := m.rooms[roomID]; ok {
		done = r.done
	}
	m.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Rooms lists the guilds with a running task.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, r := range m.rooms {
		if r.done != nil {
			out = append(out, id)
		}
	}
	return out
}

func (m *Manager) forget(roomID string, r *room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[roomID] == r {
		delete(m.rooms, roomID)
	}
}

func (m *Manager) record(roomID string) *room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = &room{}
		m.rooms[roomID] = r
	}
	return r
}

// Reconcile runs one reconciliation for the guild. It is what both triggers
// call and is safe to call concurrently with them.
func (m *Manager) Reconcile(ctx context.Context, roomID string) Outcome {
	r := m.record(roomID)
	out := m.reconcile(ctx, roomID, r)
	if out == OutcomeCallEnded {
		m.mu.Lock()
		if m.rooms[roomID] == r && r.done == nil {
			delete(m.rooms, roomID)
		}
		m.mu.Unlock()
	}
	return out
}

func (m *Manager) reconcile(ctx context.Context, roomID string, r *room) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := m.calls.Lookup(roomID)
	if !ok {
		logger.DebugCF(componentName, "No active call", map[string]interface{}{"room_id": roomID})
		return OutcomeCallEnded
	}

	var content message.Content
	idle := false
	if playing, ok := call.CurrentTrack(); ok {
		requester := m.requester(ctx, call, playing.Track.ID)
		content = message.Embed(render.NowPlaying(playing, requester, m.now()))
	} else {
		if r.lastIdle {
			m.publish(events.NotifierSkipped, roomID, r.last)
			return OutcomeSkipped
		}
		content = message.Embed(render.Idle())
		idle = true
	}

	prev := r.last
	out, err := m.deliver(ctx, r, call.TextChannelID(), content)
	if err != nil {
		logger.WarnCF(componentName, "Status update failed, forgetting message", map[string]interface{}{
			"room_id":    roomID,
			"message_id": prev.ID,
			"error":      err.Error(),
		})
		r.last = message.Handle{}
		r.lastIdle = false
		m.publish(events.NotifierFailed, roomID, prev)
		return OutcomeFailed
	}
	r.lastIdle = idle

	logger.DebugCF(componentName, "Status reconciled", map[string]interface{}{
		"room_id":    roomID,
		"outcome":    out.String(),
		"message_id": r.last.ID,
		"idle":       idle,
	})
	m.publish(outcomeEvents[out], roomID, r.last)
	return out
}

// deliver puts content on screen and updates r.last.
func (m *Manager) deliver(ctx context.Context, r *room, channelID string, content message.Content) (Outcome, error) {
	if !r.last.IsZero() && r.last.ChannelID != channelID {
		// Status channel changed; the old message is not worth keeping.
		if err := m.transport.Delete(ctx, r.last); err != nil {
			logger.DebugCF(componentName, "Old status message not deleted", map[string]interface{}{
				"message_id": r.last.ID,
				"error":      err.Error(),
			})
		}
		r.last = message.Handle{}
	}

	if !r.last.IsZero() {
		h, err := m.transport.Fetch(ctx, channelID, r.last.ID)
		if err == nil {
			fresh, err := m.transport.IsMostRecent(ctx, h)
			if err != nil {
				return OutcomeFailed, fmt.Errorf("check freshness: %w", err)
			}
			if fresh {
				if err := m.transport.Edit(ctx, h, content); err != nil {
					return OutcomeFailed, fmt.Errorf("edit status message: %w", err)
				}
				return OutcomeEdited, nil
			}
			if err := m.transport.Delete(ctx, h); err != nil {
				return OutcomeFailed, fmt.Errorf("delete buried status message: %w", err)
			}
			r.last = message.Handle{}
			if err := m.send(ctx, r, channelID, content); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeReplaced, nil
		}
		logger.DebugCF(componentName, "Status message gone, sending a new one", map[string]interface{}{
			"message_id": r.last.ID,
			"error":      err.Error(),
		})
		r.last = message.Handle{}
	}

	if err := m.send(ctx, r, channelID, content); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeSent, nil
}

func (m *Manager) send(ctx context.Context, r *room, channelID string, content message.Content) error {
	h, err := m.transport.Send(ctx, channelID, content)
	if err != nil {
		return fmt.Errorf("send status message: %w", err)
	}
	r.last = h
	return nil
}

func (m *Manager) requester(ctx context.Context, call Call, trackID string) *discordgo.User {
	userID, ok := call.RequesterOf(trackID)
	if !ok || m.users == nil {
		return nil
	}
	u, err := m.users.User(ctx, userID)
	if err != nil {
		logger.DebugCF(componentName, "Requester lookup failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}
	return u
}

func (m *Manager) publish(eventType, roomID string, h message.Handle) {
	m.bus.PublishSystem(events.New(eventType, events.Notifier{
		RoomID:    roomID,
		ChannelID: h.ChannelID,
		MessageID: h.ID,
	}))
}
