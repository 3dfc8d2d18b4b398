// Package discord adapts a discordgo session to the message, interactive and
// notifier contracts and routes gateway events into the bot.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/message"
)

// Transport implements message.Transport over the Discord REST API, reading
// from the gateway state cache where it can.
type Transport struct {
	session *discordgo.Session
}

func NewTransport(s *discordgo.Session) *Transport {
	return &Transport{session: s}
}

func (t *Transport) Send(ctx context.Context, channelID string, c message.Content) (message.Handle, error) {
	m, err := t.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    c.Text,
		Embeds:     c.Embeds,
		Components: c.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return message.Handle{}, fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return message.Handle{ChannelID: m.ChannelID, ID: m.ID}, nil
}

func (t *Transport) Edit(ctx context.Context, h message.Handle, c message.Content) error {
	edit := discordgo.NewMessageEdit(h.ChannelID, h.ID).
		SetContent(c.Text).
		SetEmbeds(c.Embeds)
	components := c.Components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	edit.Components = &components

	if _, err := t.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", h.ID, notFound(err))
	}
	return nil
}

func (t *Transport) Delete(ctx context.Context, h message.Handle) error {
	if err := t.session.ChannelMessageDelete(h.ChannelID, h.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s: %w", h.ID, notFound(err))
	}
	return nil
}

// Fetch looks in the state cache first and falls back to REST.
func (t *Transport) Fetch(ctx context.Context, channelID, messageID string) (message.Handle, error) {
	if t.session.State != nil {
		if m, err := t.session.State.Message(channelID, messageID); err == nil {
			return message.Handle{ChannelID: m.ChannelID, ID: m.ID}, nil
		}
	}
	m, err := t.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return message.Handle{}, fmt.Errorf("fetch message %s: %w", messageID, notFound(err))
	}
	return message.Handle{ChannelID: m.ChannelID, ID: m.ID}, nil
}

// IsMostRecent compares against the newest message in the state's channel
// cache and asks REST when the cache holds none. The cached channel's
// LastMessageID is not used: the state never advances it on MessageCreate.
func (t *Transport) IsMostRecent(ctx context.Context, h message.Handle) (bool, error) {
	if newest, ok := t.newestCached(h.ChannelID); ok {
		return newest == h.ID, nil
	}
	msgs, err := t.session.ChannelMessages(h.ChannelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("read latest message in %s: %w", h.ChannelID, err)
	}
	return len(msgs) > 0 && msgs[0].ID == h.ID, nil
}

func (t *Transport) newestCached(channelID string) (string, bool) {
	st := t.session.State
	if st == nil || st.MaxMessageCount <= 0 {
		return "", false
	}
	ch, err := st.Channel(channelID)
	if err != nil {
		return "", false
	}
	st.RLock()
	defer st.RUnlock()
	if len(ch.Messages) == 0 {
		return "", false
	}
	return ch.Messages[len(ch.Messages)-1].ID, true
}

// notFound maps REST 404s to message.ErrNotFound.
func notFound(err error) error {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound {
		return message.ErrNotFound
	}
	return err
}

var _ message.Transport = (*Transport)(nil)
