// Package events defines the system events published on the bus. Every
// SystemEvent carries one of these types and the matching payload struct.
package events

import (
	"strings"

	"github.com/sipeed/picotune/pkg/bus"
)

// --- Event Type Constants ---

const (
	// Interactive session lifecycle
	SessionStarted  = "session.started"
	SessionStopped  = "session.stopped"
	SessionTimedOut = "session.timed_out"
	SessionErrored  = "session.errored"

	// Live status notifier
	NotifierSent     = "notifier.sent"
	NotifierEdited   = "notifier.edited"
	NotifierReplaced = "notifier.replaced"
	NotifierSkipped  = "notifier.skipped"
	NotifierFailed   = "notifier.failed"
	NotifierStopped  = "notifier.stopped"
)

// --- Typed Payloads ---

// Session is the payload of session.* events.
type Session struct {
	SessionID string `json:"session_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Notifier is the payload of notifier.* events.
type Notifier struct {
	RoomID    string `json:"room_id"`
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Source returns the component part of an event type, "notifier" for
// "notifier.sent".
func Source(eventType string) string {
	src, _, _ := strings.Cut(eventType, ".")
	return src
}

// New builds a bus event with its source derived from the type.
func New(eventType string, data interface{}) bus.SystemEvent {
	return bus.SystemEvent{
		Type:   eventType,
		Source: Source(eventType),
		Data:   data,
	}
}
