package interactive

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/message"
)

// Event is an inbound interaction addressed to a session's message.
type Event struct {
	InteractionID string
	ControlID     string
	Values        []string
	UserID        string

	// Interaction is the raw platform payload; nil in tests.
	Interaction *discordgo.Interaction
}

// Scope narrows a subscription to one message and, optionally, one author.
type Scope struct {
	ChannelID string
	MessageID string
	AuthorID  string // empty accepts everyone
}

// EventSource yields interaction events for a scope. The channel is closed
// once ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context, scope Scope) (<-chan Event, error)
}

// Responder answers interactions.
type Responder interface {
	// Acknowledge tells the platform the interaction was handled.
	Acknowledge(ctx context.Context, ev Event) error
	// UpdateResponse replaces the interacted message as the response.
	UpdateResponse(ctx context.Context, ev Event, content message.Content) error
}

// Env carries a session's collaborators.
type Env struct {
	Transport message.Transport
	Events    EventSource
	Responder Responder
	Bus       *bus.MessageBus
}

// Target is where a session renders and whose interactions it accepts.
type Target struct {
	ChannelID string
	AuthorID  string
}
