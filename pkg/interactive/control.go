package interactive

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc reacts to an interaction on a control. It runs with exclusive
// access to the session and may mutate s.Data, edit the message or call
// s.Stop.
type HandlerFunc[T any] func(ctx context.Context, s *Session[T], ev Event) error

// Control is a single interactive element attached to the session message.
type Control[T any] interface {
	// ID is the correlation key; unique within one session.
	ID() string
	Disabled() bool
	Component() discordgo.MessageComponent
	Handle(ctx context.Context, s *Session[T], ev Event) error
}

// Row is an ordered group of controls rendered together.
type Row[T any] []Control[T]

func (r Row[T]) component() discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(r))
	for _, c := range r {
		components = append(components, c.Component())
	}
	return discordgo.ActionsRow{Components: components}
}

// Button is a clickable control.
type Button[T any] struct {
	CustomID string
	Label    string
	Emoji    string
	Style    discordgo.ButtonStyle
	Disable  bool
	OnClick  HandlerFunc[T]
}

func (b *Button[T]) ID() string     { return b.CustomID }
func (b *Button[T]) Disabled() bool { return b.Disable }

func (b *Button[T]) Component() discordgo.MessageComponent {
	style := b.Style
	if style == 0 {
		style = discordgo.SecondaryButton
	}
	btn := discordgo.Button{
		CustomID: b.CustomID,
		Label:    b.Label,
		Style:    style,
		Disabled: b.Disable,
	}
	if b.Emoji != "" {
		btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
	}
	return btn
}

func (b *Button[T]) Handle(ctx context.Context, s *Session[T], ev Event) error {
	if b.OnClick == nil {
		return nil
	}
	return b.OnClick(ctx, s, ev)
}

// Option is one entry of a Select.
type Option struct {
	Label       string
	Value       string
	Description string
	Default     bool
}

// Select is an option-list control. The chosen values arrive in Event.Values.
type Select[T any] struct {
	CustomID    string
	Placeholder string
	Options     []Option
	MinValues   int
	MaxValues   int
	Disable     bool
	OnSelect    HandlerFunc[T]
}

func (sel *Select[T]) ID() string     { return sel.CustomID }
func (sel *Select[T]) Disabled() bool { return sel.Disable }

func (sel *Select[T]) Component() discordgo.MessageComponent {
	opts := make([]discordgo.SelectMenuOption, 0, len(sel.Options))
	for _, o := range sel.Options {
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       o.Label,
			Value:       o.Value,
			Description: o.Description,
			Default:     o.Default,
		})
	}
	minValues := sel.MinValues
	maxValues := sel.MaxValues
	if maxValues == 0 {
		maxValues = 1
	}
	return discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    sel.CustomID,
		Placeholder: sel.Placeholder,
		Options:     opts,
		MinValues:   &minValues,
		MaxValues:   maxValues,
		Disabled:    sel.Disable,
	}
}

func (sel *Select[T]) Handle(ctx context.Context, s *Session[T], ev Event) error {
	if sel.OnSelect == nil {
		return nil
	}
	return sel.OnSelect(ctx, s, ev)
}

var (
	_ Control[struct{}] = (*Button[struct{}])(nil)
	_ Control[struct{}] = (*Select[struct{}])(nil)
)
