package commands

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/config"
	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/mensa"
	"github.com/sipeed/picotune/pkg/playback"
	"github.com/sipeed/picotune/pkg/settings"
)

// SettingsStore reads and writes per-guild settings.
type SettingsStore interface {
	Get(ctx context.Context, guildID string) (settings.Guild, error)
	SetStatusChannel(ctx context.Context, guildID, channelID string) error
	SetNotifierEnabled(ctx context.Context, guildID string, enabled bool) error
}

// StatusUpdates controls the per-guild now-playing notifier.
type StatusUpdates interface {
	Start(ctx context.Context, roomID string) bool
	Stop(roomID string)
	Active(roomID string) bool
}

// MealPlans serves canteen plans and can warm its cache.
type MealPlans interface {
	mensa.Source
	Prime(ctx context.Context, canteenIDs []int, days []time.Time) error
}

// Voice finds users in voice channels and joins the bot to them.
type Voice interface {
	UserChannel(guildID, userID string) (string, error)
	Join(ctx context.Context, guildID, channelID string) (*discordgo.VoiceConnection, error)
}

// Deps are the collaborators shared by all commands.
type Deps struct {
	Calls    *playback.Registry
	Status   StatusUpdates
	Settings SettingsStore
	Voice    Voice
	Meals    MealPlans
	Canteens []config.Canteen

	Env            interactive.Env
	SessionTimeout time.Duration
	Now            func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// All returns every command.
func All(d *Deps) []Command {
	return []Command{
		&Play{deps: d},
		&Leave{deps: d},
		&Queue{deps: d},
		&Mensa{deps: d},
		&Settings{deps: d},
	}
}
