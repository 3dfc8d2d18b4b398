// Package interactive runs message-bound interactive sessions: a message with
// attached buttons and selects, a bounded stream of interactions routed to the
// control that owns them, and cleanup when the session ends.
//
// Lifecycle: Starting → Running → Stopped | TimedOut | Errored.
//
//   - Stopped: a handler called Stop. The message is deleted, the post hook
//     runs and Run returns nil.
//   - TimedOut: the timeout window closed. Same cleanup, Run returns nil.
//     The window starts once the session is running and is not extended by
//     incoming events.
//   - Errored: an event named no control (ErrUnknownInteraction) or a handler
//     failed (*HandlerError). The post hook runs and the error is returned.
//     The message stays in place so the failure remains visible.
//
// Interactions on disabled controls are acknowledged and ignored.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/sipeed/picotune/pkg/events"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/message"
)

// DefaultTimeout bounds a session unless the builder overrides it.
const DefaultTimeout = 3 * time.Minute

// Platform limits for components on one message.
const (
	maxRows     = 5
	maxRowWidth = 5
)

// Hook runs once at session start (pre) or end (post).
type Hook[T any] func(ctx context.Context, s *Session[T]) error

// Renderer produces the session's initial content. Controls are attached by
// the session.
type Renderer[T any] func(s *Session[T]) message.Content

// Session is one run of an interactive message. Data is owned by the session
// loop; handlers are the only writers while it runs.
type Session[T any] struct {
	Data T

	id       string
	rows     []Row[T]
	timeout  time.Duration
	preHook  Hook[T]
	postHook Hook[T]

	running atomic.Bool
	env     Env
	msg     message.Handle

	// interaction already answered through UpdateResponse
	responded string
}

// Builder assembles a session's controls and options.
type Builder[T any] struct {
	s *Session[T]
}

// Row appends a row of controls.
func (b *Builder[T]) Row(controls ...Control[T]) *Builder[T] {
	b.s.rows = append(b.s.rows, Row[T](controls))
	return b
}

func (b *Builder[T]) Timeout(d time.Duration) *Builder[T] {
	if d > 0 {
		b.s.timeout = d
	}
	return b
}

func (b *Builder[T]) PreHook(h Hook[T]) *Builder[T] {
	b.s.preHook = h
	return b
}

func (b *Builder[T]) PostHook(h Hook[T]) *Builder[T] {
	b.s.postHook = h
	return b
}

// New creates a session around data. configure may be nil.
func New[T any](data T, configure func(b *Builder[T])) *Session[T] {
	s := &Session[T]{
		Data:    data,
		id:      uuid.NewString(),
		timeout: DefaultTimeout,
	}
	if configure != nil {
		configure(&Builder[T]{s: s})
	}
	return s
}

func (s *Session[T]) ID() string              { return s.id }
func (s *Session[T]) Timeout() time.Duration  { return s.timeout }
func (s *Session[T]) Message() message.Handle { return s.msg }
func (s *Session[T]) Running() bool           { return s.running.Load() }
func (s *Session[T]) Rows() []Row[T]          { return s.rows }

// Stop ends the loop once the current handler returns. Calling it more than
// once has no further effect.
func (s *Session[T]) Stop() {
	s.running.Store(false)
}

// Reconfigure replaces the session's rows. Meant for handlers that change
// which controls are shown; follow it with Edit or UpdateResponse.
func (s *Session[T]) Reconfigure(configure func(b *Builder[T])) {
	s.rows = nil
	configure(&Builder[T]{s: s})
}

// Run renders the session message and drives the interaction loop until the
// session stops, times out or fails.
func (s *Session[T]) Run(ctx context.Context, env Env, target Target, render Renderer[T]) error {
	if env.Transport == nil || env.Events == nil {
		return ErrIncompleteEnv
	}
	if err := s.validate(); err != nil {
		return err
	}
	s.env = env

	var content message.Content
	if render != nil {
		content = render(s)
	}
	content.Components = s.components()

	h, err := env.Transport.Send(ctx, target.ChannelID, content)
	if err != nil {
		return fmt.Errorf("send session message: %w", err)
	}
	s.msg = h
	s.running.Store(true)
	s.publish(events.SessionStarted, nil)

	logger.DebugCF("session", "Session started", map[string]interface{}{
		"session_id": s.id,
		"message_id": h.ID,
		"timeout":    s.timeout.String(),
	})

	// Subscribe before the pre hook so clicks made while it runs are queued.
	subCtx, unsubscribe := context.WithCancel(ctx)
	defer unsubscribe()
	stream, err := env.Events.Subscribe(subCtx, Scope{
		ChannelID: h.ChannelID,
		MessageID: h.ID,
		AuthorID:  target.AuthorID,
	})
	if err != nil {
		return s.fail(ctx, fmt.Errorf("subscribe to interactions: %w", err))
	}

	if s.preHook != nil {
		if err := s.preHook(ctx, s); err != nil {
			s.running.Store(false)
			herr := &HookError{Stage: "pre", Err: err}
			s.publish(events.SessionErrored, herr)
			return herr
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for s.running.Load() {
		select {
		case ev, ok := <-stream:
			if !ok {
				return s.end(ctx)
			}
			if err := s.dispatch(ctx, ev); err != nil {
				return s.fail(ctx, err)
			}
		case <-waitCtx.Done():
			return s.end(ctx)
		}
	}

	return s.finish(ctx, events.SessionStopped)
}

// dispatch routes one event to its control. Handlers run to completion
// before the next event is read.
func (s *Session[T]) dispatch(ctx context.Context, ev Event) error {
	ctrl := s.lookup(ev.ControlID)
	if ctrl == nil {
		return fmt.Errorf("%w: %q", ErrUnknownInteraction, ev.ControlID)
	}

	if ctrl.Disabled() {
		logger.WarnCF("session", "Ignoring interaction on disabled control", map[string]interface{}{
			"session_id": s.id,
			"control_id": ev.ControlID,
			"user_id":    ev.UserID,
		})
		s.acknowledge(ctx, ev)
		return nil
	}

	if err := ctrl.Handle(ctx, s, ev); err != nil {
		return &HandlerError{ControlID: ev.ControlID, Err: err}
	}

	s.acknowledge(ctx, ev)
	return nil
}

func (s *Session[T]) lookup(id string) Control[T] {
	for _, row := range s.rows {
		for _, c := range row {
			if c.ID() == id {
				return c
			}
		}
	}
	return nil
}

// acknowledge answers the interaction unless UpdateResponse already did.
// Failures are logged only.
func (s *Session[T]) acknowledge(ctx context.Context, ev Event) {
	if s.env.Responder == nil {
		return
	}
	if ev.InteractionID != "" && s.responded == ev.InteractionID {
		return
	}
	if err := s.env.Responder.Acknowledge(ctx, ev); err != nil {
		logger.DebugCF("session", "Acknowledge failed", map[string]interface{}{
			"session_id": s.id,
			"control_id": ev.ControlID,
			"error":      err.Error(),
		})
	}
}

// end handles the event stream closing: a timeout, or the caller's context
// ending.
func (s *Session[T]) end(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if ferr := s.finish(ctx, events.SessionStopped); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	return s.finish(ctx, events.SessionTimedOut)
}

// finish is the clean termination path: delete the message, run the post
// hook.
func (s *Session[T]) finish(ctx context.Context, reason string) error {
	s.running.Store(false)
	cleanupCtx := context.WithoutCancel(ctx)

	if err := s.env.Transport.Delete(cleanupCtx, s.msg); err != nil {
		logger.WarnCF("session", "Failed to delete session message", map[string]interface{}{
			"session_id": s.id,
			"message_id": s.msg.ID,
			"error":      err.Error(),
		})
	}

	var hookErr error
	if s.postHook != nil {
		if err := s.postHook(cleanupCtx, s); err != nil {
			hookErr = &HookError{Stage: "post", Err: err}
		}
	}

	s.publish(reason, hookErr)
	logger.DebugCF("session", "Session ended", map[string]interface{}{
		"session_id": s.id,
		"reason":     reason,
	})
	return hookErr
}

// fail is the error path. The message is left as is.
func (s *Session[T]) fail(ctx context.Context, cause error) error {
	s.running.Store(false)

	if s.postHook != nil {
		if err := s.postHook(context.WithoutCancel(ctx), s); err != nil {
			logger.WarnCF("session", "Post hook failed after session error", map[string]interface{}{
				"session_id": s.id,
				"error":      err.Error(),
			})
		}
	}

	s.publish(events.SessionErrored, cause)
	logger.WarnCF("session", "Session failed", map[string]interface{}{
		"session_id": s.id,
		"error":      cause.Error(),
	})
	return cause
}

// Edit replaces the session message content. Nil components are filled with
// the current controls.
func (s *Session[T]) Edit(ctx context.Context, content message.Content) error {
	if s.msg.IsZero() {
		return ErrNotRendered
	}
	if content.Components == nil {
		content.Components = s.components()
	}
	return s.env.Transport.Edit(ctx, s.msg, content)
}

// UpdateResponse edits the session message as the response to ev, which
// also acknowledges it. Nil components are filled with the current controls.
func (s *Session[T]) UpdateResponse(ctx context.Context, ev Event, content message.Content) error {
	if s.env.Responder == nil {
		return s.Edit(ctx, content)
	}
	if content.Components == nil {
		content.Components = s.components()
	}
	if err := s.env.Responder.UpdateResponse(ctx, ev, content); err != nil {
		return fmt.Errorf("update interaction response: %w", err)
	}
	s.responded = ev.InteractionID
	return nil
}

func (s *Session[T]) components() []discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(s.rows))
	for _, row := range s.rows {
		if len(row) == 0 {
			continue
		}
		components = append(components, row.component())
	}
	return components
}

func (s *Session[T]) validate() error {
	if len(s.rows) > maxRows {
		return fmt.Errorf("%w: %d > %d", ErrTooManyRows, len(s.rows), maxRows)
	}
	seen := make(map[string]struct{})
	for i, row := range s.rows {
		width := 0
		for _, c := range row {
			if _, ok := c.(*Select[T]); ok {
				width += maxRowWidth
			} else {
				width++
			}
			id := c.ID()
			if id == "" {
				return fmt.Errorf("%w (row %d)", ErrEmptyControlID, i)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateControl, id)
			}
			seen[id] = struct{}{}
		}
		if width > maxRowWidth {
			return fmt.Errorf("%w (row %d)", ErrRowTooWide, i)
		}
	}
	return nil
}

func (s *Session[T]) publish(eventType string, err error) {
	if s.env.Bus == nil {
		return
	}
	data := events.Session{
		SessionID: s.id,
		ChannelID: s.msg.ChannelID,
		MessageID: s.msg.ID,
	}
	if err != nil {
		data.Error = err.Error()
	}
	s.env.Bus.PublishSystem(events.New(eventType, data))
}
