package commands

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/playback"
	"github.com/sipeed/picotune/pkg/render"
)

const (
	errNotInVoice  UserError = "Join a voice channel first."
	errNotPlaying  UserError = "Nothing is playing here."
	errBadDuration UserError = "Duration must look like 3m20s."
	errVoiceJoin   UserError = "Could not join your voice channel."
)

// Play queues a track and joins the caller's voice channel if needed.
type Play struct{ deps *Deps }

func (c *Play) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "play",
		Description: "Queue a track",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "track",
				Description: "Title or URL",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "duration",
				Description: "Length, e.g. 3m20s",
			},
		},
	}
}

func (c *Play) Run(ctx context.Context, req *Request) error {
	track, err := trackFromQuery(req.String("track"), req.String("duration"))
	if err != nil {
		return err
	}

	voiceID, err := c.deps.Voice.UserChannel(req.GuildID, req.UserID)
	if err != nil || voiceID == "" {
		return errNotInVoice
	}

	prefs, err := c.deps.Settings.Get(ctx, req.GuildID)
	if err != nil {
		return err
	}
	textID := req.ChannelID
	if prefs.StatusChannelID != "" {
		textID = prefs.StatusChannelID
	}

	call, created := c.deps.Calls.Join(req.GuildID, voiceID, textID)
	if created {
		vc, err := c.deps.Voice.Join(ctx, req.GuildID, voiceID)
		if err != nil {
			c.deps.Calls.Leave(req.GuildID)
			logger.WarnCF("commands", "Voice join failed", map[string]interface{}{
				"guild_id": req.GuildID,
				"error":    err.Error(),
			})
			return errVoiceJoin
		}
		call.AttachVoice(vc)
	} else if prefs.StatusChannelID != "" {
		call.SetTextChannel(prefs.StatusChannelID)
	}

	pos := call.Enqueue(track, req.UserID)
	if prefs.NotifierEnabled {
		c.deps.Status.Start(ctx, req.GuildID)
	}

	text := fmt.Sprintf("Queued **%s** at position %d.", track.Title, pos)
	if pos == 0 {
		text = fmt.Sprintf("Now playing **%s**.", track.Title)
	}
	return req.Reply(ctx, message.Content{Text: text})
}

// trackFromQuery builds track metadata from the user's input. URLs keep
// their last path segment as the title.
func trackFromQuery(query, duration string) (playback.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return playback.Track{}, UserError("Tell me what to play.")
	}
	var length time.Duration
	if duration != "" {
		d, err := time.ParseDuration(duration)
		if err != nil || d < 0 {
			return playback.Track{}, errBadDuration
		}
		length = d
	}

	title, link := query, ""
	if u, err := url.Parse(query); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		link = query
		title = u.Host
		if base := path.Base(u.Path); base != "/" && base != "." {
			title = base
		}
	}
	return playback.NewTrack(title, "", link, length), nil
}

// Leave ends the guild's call.
type Leave struct{ deps *Deps }

func (c *Leave) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "leave",
		Description: "Stop playback and leave the voice channel",
	}
}

func (c *Leave) Run(ctx context.Context, req *Request) error {
	if !c.deps.Calls.Leave(req.GuildID) {
		return errNotPlaying
	}
	return req.Reply(ctx, message.Embed(render.Idle()))
}
