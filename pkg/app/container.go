// Package app is the composition root: it builds every component from the
// configuration and owns their start and shutdown order.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/api"
	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/commands"
	"github.com/sipeed/picotune/pkg/config"
	"github.com/sipeed/picotune/pkg/discord"
	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/mensa"
	"github.com/sipeed/picotune/pkg/notifier"
	"github.com/sipeed/picotune/pkg/playback"
	"github.com/sipeed/picotune/pkg/settings"
)

// messageCacheSize lets the transport answer most-recent checks from the
// state cache.
const messageCacheSize = 50

// Container holds the wired application.
type Container struct {
	cfg *config.Config

	Bus      *bus.MessageBus
	Session  *discordgo.Session
	Calls    *playback.Registry
	Settings *settings.Store
	Notifier *notifier.Manager
	Meals    *mensa.PlanCache
	Router   *commands.Router
	Gateway  *discord.Gateway
	API      *api.Server
}

// New builds the container. Nothing connects to the network until Run.
func New(cfg *config.Config) (*Container, error) {
	store, err := settings.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages
	session.State.MaxMessageCount = messageCacheSize

	c := &Container{
		cfg:      cfg,
		Bus:      bus.NewMessageBus(),
		Session:  session,
		Calls:    playback.NewRegistry(),
		Settings: store,
	}

	transport := discord.NewTransport(session)
	responder := discord.NewResponder(session)

	c.Notifier = notifier.NewManager(notifier.RegistryCalls(c.Calls), transport, discord.NewUsers(session), notifier.Options{
		InitialDelay: cfg.Notifier.InitialDelay,
		Interval:     cfg.Notifier.Interval,
		Bus:          c.Bus,
	})
	c.Calls.OnLeave(c.Notifier.Stop)

	c.Meals = mensa.NewPlanCache(mensa.NewClient(cfg.Mensa.BaseURL), cfg.Mensa.CacheTTL)

	c.Router = commands.NewRouter(responder)
	c.Router.Register(commands.All(&commands.Deps{
		Calls:    c.Calls,
		Status:   c.Notifier,
		Settings: store,
		Voice:    discord.NewVoice(session),
		Meals:    c.Meals,
		Canteens: cfg.Mensa.Canteens,
		Env: interactive.Env{
			Transport: transport,
			Events:    discord.NewEventSource(c.Bus),
			Responder: responder,
			Bus:       c.Bus,
		},
		SessionTimeout: cfg.Interactive.Timeout,
	})...)

	c.Gateway = discord.NewGateway(session, c.Bus, c.Calls, c.Router)

	if cfg.Dashboard.Addr != "" {
		c.API = api.NewServer(cfg.Dashboard, c.Bus, api.Deps{
			Calls:  c.Calls,
			Rooms:  c.Notifier,
			Guilds: store,
		})
	}
	return c, nil
}

// Run connects to Discord, registers commands and serves until ctx is done.
// It then shuts everything down in reverse order.
func (c *Container) Run(ctx context.Context) error {
	c.Gateway.Register(ctx)
	if err := c.Session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}

	appID := c.cfg.Discord.AppID
	if appID == "" && c.Session.State.User != nil {
		appID = c.Session.State.User.ID
	}
	if err := c.Router.Sync(c.Session, appID, c.cfg.Discord.DevGuildID); err != nil {
		c.Session.Close()
		return err
	}

	if c.API != nil {
		if err := c.API.Start(ctx); err != nil {
			c.Session.Close()
			return err
		}
	}

	logger.InfoCF("app", "picotune running", map[string]interface{}{
		"dashboard": c.cfg.Dashboard.Addr,
		"canteens":  len(c.cfg.Mensa.Canteens),
	})
	<-ctx.Done()
	logger.InfoC("app", "Shutting down")
	return c.shutdown()
}

func (c *Container) shutdown() error {
	var errs []error
	if c.API != nil {
		errs = append(errs, c.API.Stop())
	}
	c.Notifier.Shutdown()
	c.Gateway.Wait()
	for _, guildID := range c.Calls.Guilds() {
		c.Calls.Leave(guildID)
	}
	errs = append(errs, c.Session.Close())
	c.Bus.Close()
	errs = append(errs, c.Settings.Close())
	return errors.Join(errs...)
}
