// Package message holds the message contracts shared by interactive sessions
// and the status notifier.
package message

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Handle identifies a sent message.
type Handle struct {
	ChannelID string `json:"channel_id"`
	ID        string `json:"id"`
}

// IsZero reports whether the handle points at nothing.
func (h Handle) IsZero() bool { return h.ID == "" }

// Content is a displayable content block.
type Content struct {
	Text       string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// Embed wraps a single embed into a content block.
func Embed(e *discordgo.MessageEmbed) Content {
	return Content{Embeds: []*discordgo.MessageEmbed{e}}
}

// Transport sends and mutates channel messages.
type Transport interface {
	Send(ctx context.Context, channelID string, content Content) (Handle, error)
	Edit(ctx context.Context, h Handle, content Content) error
	Delete(ctx context.Context, h Handle) error
	// Fetch resolves a message from cache first, then the network.
	// It returns ErrNotFound when the message no longer exists.
	Fetch(ctx context.Context, channelID, messageID string) (Handle, error)
	// IsMostRecent reports whether h is the newest message in its channel.
	IsMostRecent(ctx context.Context, h Handle) (bool, error)
}

type Error string

func (e Error) Error() string { return string(e) }

const ErrNotFound Error = "message not found"
