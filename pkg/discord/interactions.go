package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/message"
)

// ToInteraction flattens a component interaction for the bus. It returns
// false for any other interaction type.
func ToInteraction(i *discordgo.Interaction) (bus.Interaction, bool) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return bus.Interaction{}, false
	}
	data := i.MessageComponentData()
	in := bus.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		UserID:    UserID(i),
		CustomID:  data.CustomID,
		Values:    data.Values,
		Raw:       i,
	}
	if i.Message != nil {
		in.MessageID = i.Message.ID
	}
	return in, true
}

// UserID returns the invoking user in guilds and DMs alike.
func UserID(i *discordgo.Interaction) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	default:
		return ""
	}
}

// ScopeFilter accepts interactions on the scope's message, from its author
// when one is set.
func ScopeFilter(scope interactive.Scope) bus.InteractionFilter {
	return func(in bus.Interaction) bool {
		if in.MessageID != scope.MessageID {
			return false
		}
		if scope.ChannelID != "" && in.ChannelID != scope.ChannelID {
			return false
		}
		return scope.AuthorID == "" || in.UserID == scope.AuthorID
	}
}

// EventSource feeds sessions from the bus.
type EventSource struct {
	bus *bus.MessageBus
}

func NewEventSource(b *bus.MessageBus) *EventSource {
	return &EventSource{bus: b}
}

func (e *EventSource) Subscribe(ctx context.Context, scope interactive.Scope) (<-chan interactive.Event, error) {
	in := e.bus.SubscribeInteractions(ctx, "session:"+scope.MessageID, ScopeFilter(scope))
	out := make(chan interactive.Event)
	go func() {
		defer close(out)
		for i := range in {
			select {
			case out <- toEvent(i):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toEvent(in bus.Interaction) interactive.Event {
	return interactive.Event{
		InteractionID: in.ID,
		ControlID:     in.CustomID,
		Values:        in.Values,
		UserID:        in.UserID,
		Interaction:   in.Raw,
	}
}

var errNoInteraction = errors.New("event carries no interaction")

// Responder answers component interactions.
type Responder struct {
	session *discordgo.Session
}

func NewResponder(s *discordgo.Session) *Responder {
	return &Responder{session: s}
}

// Acknowledge defers the update so the client stops waiting.
func (r *Responder) Acknowledge(ctx context.Context, ev interactive.Event) error {
	if ev.Interaction == nil {
		return errNoInteraction
	}
	return r.session.InteractionRespond(ev.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
}

func (r *Responder) UpdateResponse(ctx context.Context, ev interactive.Event, c message.Content) error {
	if ev.Interaction == nil {
		return errNoInteraction
	}
	return r.session.InteractionRespond(ev.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    c.Text,
			Embeds:     c.Embeds,
			Components: c.Components,
		},
	}, discordgo.WithContext(ctx))
}

// Notice replies to an interaction with a message only the user sees.
func (r *Responder) Notice(i *discordgo.Interaction, text string) error {
	return r.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

var errNoSession = errors.New("discord session not set")

// Reply answers an application command.
func (r *Responder) Reply(ctx context.Context, i *discordgo.Interaction, c message.Content, ephemeral bool) error {
	if r.session == nil {
		return errNoSession
	}
	data := &discordgo.InteractionResponseData{
		Content:    c.Text,
		Embeds:     c.Embeds,
		Components: c.Components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

// Followup posts a further message on an answered interaction.
func (r *Responder) Followup(ctx context.Context, i *discordgo.Interaction, c message.Content, ephemeral bool) error {
	if r.session == nil {
		return errNoSession
	}
	params := &discordgo.WebhookParams{
		Content:    c.Text,
		Embeds:     c.Embeds,
		Components: c.Components,
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.session.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx))
	return err
}

var (
	_ interactive.EventSource = (*EventSource)(nil)
	_ interactive.Responder   = (*Responder)(nil)
)
