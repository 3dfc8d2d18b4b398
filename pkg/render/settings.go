package render

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/settings"
)

// GuildSettings renders a guild's settings panel.
func GuildSettings(g settings.Guild) *discordgo.MessageEmbed {
	updates := "off"
	if g.NotifierEnabled {
		updates = "on"
	}
	channel := "where /play is used"
	if g.StatusChannelID != "" {
		channel = "<#" + g.StatusChannelID + ">"
	}
	return &discordgo.MessageEmbed{
		Title: "Settings",
		Color: ColorIdle,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Now playing updates", Value: updates, Inline: true},
			{Name: "Status channel", Value: channel, Inline: true},
		},
	}
}
