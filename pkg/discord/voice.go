package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Voice locates users in voice channels and joins the bot to them.
type Voice struct {
	session *discordgo.Session
}

func NewVoice(s *discordgo.Session) *Voice {
	return &Voice{session: s}
}

// UserChannel returns the voice channel the user is connected to.
func (v *Voice) UserChannel(guildID, userID string) (string, error) {
	vs, err := v.session.State.VoiceState(guildID, userID)
	if err != nil {
		return "", fmt.Errorf("voice state of %s: %w", userID, err)
	}
	return vs.ChannelID, nil
}

// Join connects deafened; the bot only needs to send audio.
func (v *Voice) Join(ctx context.Context, guildID, channelID string) (*discordgo.VoiceConnection, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan result, 1)
	go func() {
		vc, err := v.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- result{vc, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("join voice channel %s: %w", channelID, r.err)
		}
		return r.vc, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}
