package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/render"
	"github.com/sipeed/picotune/pkg/settings"
)

var manageGuild int64 = discordgo.PermissionManageGuild

type settingsView struct {
	guildID   string
	channelID string
	prefs     settings.Guild
}

// Settings edits the guild's settings through buttons.
type Settings struct{ deps *Deps }

func (c *Settings) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "settings",
		Description:              "Configure the bot for this server",
		DefaultMemberPermissions: &manageGuild,
	}
}

func (c *Settings) Run(ctx context.Context, req *Request) error {
	prefs, err := c.deps.Settings.Get(ctx, req.GuildID)
	if err != nil {
		return err
	}
	if err := req.Notice(ctx, "Opening settings."); err != nil {
		return err
	}

	view := &settingsView{guildID: req.GuildID, channelID: req.ChannelID, prefs: prefs}
	sess := interactive.New(view, func(b *interactive.Builder[*settingsView]) {
		b.Timeout(c.deps.SessionTimeout)
		b.PostHook(func(ctx context.Context, s *interactive.Session[*settingsView]) error {
			logger.InfoCF("commands", "Settings panel closed", map[string]interface{}{
				"guild_id":         s.Data.guildID,
				"notifier_enabled": s.Data.prefs.NotifierEnabled,
				"status_channel":   s.Data.prefs.StatusChannelID,
			})
			return nil
		})
		c.controls(b, view)
	})
	return sess.Run(ctx, c.deps.Env, interactive.Target{
		ChannelID: req.ChannelID,
		AuthorID:  req.UserID,
	}, func(s *interactive.Session[*settingsView]) message.Content {
		return message.Embed(render.GuildSettings(s.Data.prefs))
	})
}

func (c *Settings) controls(b *interactive.Builder[*settingsView], v *settingsView) {
	toggle := &interactive.Button[*settingsView]{
		CustomID: "settings:notifier",
		Label:    "Turn updates off",
		Style:    discordgo.SecondaryButton,
		OnClick:  c.toggleNotifier,
	}
	if !v.prefs.NotifierEnabled {
		toggle.Label = "Turn updates on"
		toggle.Style = discordgo.SuccessButton
	}
	b.Row(
		toggle,
		&interactive.Button[*settingsView]{
			CustomID: "settings:here",
			Label:    "Post status here",
			Disable:  v.prefs.StatusChannelID == v.channelID,
			OnClick:  c.useChannel(func(v *settingsView) string { return v.channelID }),
		},
		&interactive.Button[*settingsView]{
			CustomID: "settings:reset",
			Label:    "Reset channel",
			Disable:  v.prefs.StatusChannelID == "",
			OnClick:  c.useChannel(func(*settingsView) string { return "" }),
		},
		&interactive.Button[*settingsView]{
			CustomID: "settings:close",
			Label:    "Done",
			Style:    discordgo.PrimaryButton,
			OnClick:  closeSession[*settingsView],
		},
	)
}

func (c *Settings) toggleNotifier(ctx context.Context, s *interactive.Session[*settingsView], ev interactive.Event) error {
	v := s.Data
	enabled := !v.prefs.NotifierEnabled
	if err := c.deps.Settings.SetNotifierEnabled(ctx, v.guildID, enabled); err != nil {
		return err
	}
	if !enabled {
		c.deps.Status.Stop(v.guildID)
	} else if _, ok := c.deps.Calls.Lookup(v.guildID); ok {
		c.deps.Status.Start(ctx, v.guildID)
	}
	return c.refresh(ctx, s, ev)
}

func (c *Settings) useChannel(target func(v *settingsView) string) interactive.HandlerFunc[*settingsView] {
	return func(ctx context.Context, s *interactive.Session[*settingsView], ev interactive.Event) error {
		v := s.Data
		channelID := target(v)
		if err := c.deps.Settings.SetStatusChannel(ctx, v.guildID, channelID); err != nil {
			return err
		}
		if call, ok := c.deps.Calls.Lookup(v.guildID); ok && channelID != "" {
			call.SetTextChannel(channelID)
		}
		return c.refresh(ctx, s, ev)
	}
}

func (c *Settings) refresh(ctx context.Context, s *interactive.Session[*settingsView], ev interactive.Event) error {
	prefs, err := c.deps.Settings.Get(ctx, s.Data.guildID)
	if err != nil {
		return err
	}
	s.Data.prefs = prefs
	s.Reconfigure(func(b *interactive.Builder[*settingsView]) { c.controls(b, s.Data) })
	return s.UpdateResponse(ctx, ev, message.Embed(render.GuildSettings(prefs)))
}
