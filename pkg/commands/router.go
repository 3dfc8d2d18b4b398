// Package commands implements the slash commands and routes application
// command interactions to them.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/render"
)

// Command is one slash command.
type Command interface {
	Definition() *discordgo.ApplicationCommand
	Run(ctx context.Context, req *Request) error
}

// Replier answers application command interactions.
type Replier interface {
	Reply(ctx context.Context, i *discordgo.Interaction, c message.Content, ephemeral bool) error
	Followup(ctx context.Context, i *discordgo.Interaction, c message.Content, ephemeral bool) error
}

// Request is an invocation of a command.
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
	Options   map[string]*discordgo.ApplicationCommandInteractionDataOption

	Interaction *discordgo.Interaction

	replier Replier
	replied bool
}

// Reply answers the interaction. A second reply is sent as a followup.
func (r *Request) Reply(ctx context.Context, c message.Content) error {
	return r.respond(ctx, c, false)
}

// Notice replies with text only the invoking user sees.
func (r *Request) Notice(ctx context.Context, text string) error {
	return r.respond(ctx, message.Content{Text: text}, true)
}

func (r *Request) respond(ctx context.Context, c message.Content, ephemeral bool) error {
	if r.replied {
		return r.replier.Followup(ctx, r.Interaction, c, ephemeral)
	}
	r.replied = true
	return r.replier.Reply(ctx, r.Interaction, c, ephemeral)
}

// String returns a string option, or "".
func (r *Request) String(name string) string {
	if o, ok := r.Options[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

// Int returns an integer option, or def.
func (r *Request) Int(name string, def int64) int64 {
	if o, ok := r.Options[name]; ok && o.Type == discordgo.ApplicationCommandOptionInteger {
		return o.IntValue()
	}
	return def
}

// Router dispatches application commands by name.
type Router struct {
	replier Replier

	mu       sync.RWMutex
	commands map[string]Command
}

func NewRouter(replier Replier) *Router {
	return &Router{replier: replier, commands: make(map[string]Command)}
}

func (r *Router) Register(cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		r.commands[c.Definition().Name] = c
	}
}

// Definitions lists the registered commands sorted by name.
func (r *Router) Definitions() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		defs = append(defs, c.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Sync overwrites the application's commands, on one guild when guildID is
// set and globally otherwise.
func (r *Router) Sync(s *discordgo.Session, appID, guildID string) error {
	defs := r.Definitions()
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	logger.InfoCF("commands", "Commands registered", map[string]interface{}{
		"count":    len(defs),
		"guild_id": guildID,
	})
	return nil
}

// HandleCommand serves one application command interaction.
func (r *Router) HandleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	r.Dispatch(ctx, NewRequest(i.Interaction, r.replier))
}

// NewRequest reads the invocation out of an application command interaction.
func NewRequest(i *discordgo.Interaction, replier Replier) *Request {
	data := i.ApplicationCommandData()
	req := &Request{
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Options:     make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
		Interaction: i,
		replier:     replier,
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		req.UserID = i.Member.User.ID
	case i.User != nil:
		req.UserID = i.User.ID
	}
	for _, o := range data.Options {
		req.Options[o.Name] = o
	}
	return req
}

// Dispatch runs the named command and reports failures to the user.
func (r *Router) Dispatch(ctx context.Context, req *Request) {
	name := req.Interaction.ApplicationCommandData().Name

	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		logger.WarnCF("commands", "Unknown command", map[string]interface{}{"command": name})
		_ = req.Notice(ctx, "Unknown command.")
		return
	}

	logger.DebugCF("commands", "Running command", map[string]interface{}{
		"command":  name,
		"guild_id": req.GuildID,
		"user_id":  req.UserID,
	})
	if err := cmd.Run(ctx, req); err != nil {
		logger.ErrorCF("commands", "Command failed", map[string]interface{}{
			"command":  name,
			"guild_id": req.GuildID,
			"error":    err.Error(),
		})
		c := message.Embed(render.Error(userMessage(err)))
		if rerr := req.respond(ctx, c, true); rerr != nil {
			logger.DebugCF("commands", "Error reply failed", map[string]interface{}{"error": rerr.Error()})
		}
	}
}

// UserError is an error whose text is meant for the user.
type UserError string

func (e UserError) Error() string { return string(e) }

func userMessage(err error) string {
	var ue UserError
	if errors.As(err, &ue) {
		return string(ue)
	}
	return "The command failed. Try again in a moment."
}
