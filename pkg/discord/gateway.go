package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/playback"
)

// CommandHandler serves application (slash) commands.
type CommandHandler interface {
	HandleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate)
}

// Gateway wires discordgo events into the bot.
type Gateway struct {
	session   *discordgo.Session
	bus       *bus.MessageBus
	calls     *playback.Registry
	commands  CommandHandler
	responder *Responder

	ctx context.Context
	wg  sync.WaitGroup
}

func NewGateway(s *discordgo.Session, b *bus.MessageBus, calls *playback.Registry, commands CommandHandler) *Gateway {
	return &Gateway{
		session:   s,
		bus:       b,
		calls:     calls,
		commands:  commands,
		responder: NewResponder(s),
		ctx:       context.Background(),
	}
}

// Register installs the gateway handlers. Command handlers run with ctx and
// are awaited by Wait.
func (g *Gateway) Register(ctx context.Context) {
	g.ctx = ctx
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onInteraction)
	g.session.AddHandler(g.onVoiceState)
}

// Wait blocks until running command handlers return.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.InfoCF("discord", "Connected", map[string]interface{}{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	})
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if g.commands == nil {
			return
		}
		// Commands may run long interactive sessions; keep the gateway
		// goroutine free.
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.commands.HandleCommand(g.ctx, s, i)
		}()

	case discordgo.InteractionMessageComponent:
		in, ok := ToInteraction(i.Interaction)
		if !ok {
			return
		}
		if g.bus.PublishInteraction(in) > 0 {
			return
		}
		logger.DebugCF("discord", "Interaction matched no session", map[string]interface{}{
			"custom_id":  in.CustomID,
			"message_id": in.MessageID,
			"user_id":    in.UserID,
		})
		if err := g.responder.Notice(i.Interaction, "These controls have expired or belong to someone else."); err != nil {
			logger.DebugCF("discord", "Notice failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// onVoiceState ends the guild's call when the bot is disconnected from voice.
func (g *Gateway) onVoiceState(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID != "" {
		return
	}
	if g.calls.Leave(v.GuildID) {
		logger.InfoCF("discord", "Disconnected from voice", map[string]interface{}{"guild_id": v.GuildID})
	}
}
