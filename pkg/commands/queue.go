package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/playback"
	"github.com/sipeed/picotune/pkg/render"
)

const queuePageSize = 10

type queueView struct {
	call *playback.Call
	page int
}

func (v *queueView) content() message.Content {
	e, pages := render.QueuePage(v.call.Queue(), v.page, queuePageSize)
	v.page = render.Clamp(v.page, 0, pages-1)
	return message.Embed(e)
}

func (v *queueView) pages() int {
	_, pages := render.QueuePage(v.call.Queue(), 0, queuePageSize)
	return pages
}

// Queue shows the guild's queue with paging and skip controls.
type Queue struct{ deps *Deps }

func (c *Queue) Definition() *discordgo.ApplicationCommand {
	minPage := 1.0
	return &discordgo.ApplicationCommand{
		Name:        "queue",
		Description: "Show the queue",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page",
				Description: "Page to open",
				MinValue:    &minPage,
			},
		},
	}
}

func (c *Queue) Run(ctx context.Context, req *Request) error {
	call, ok := c.deps.Calls.Lookup(req.GuildID)
	if !ok {
		return errNotPlaying
	}
	if err := req.Notice(ctx, "Opening the queue."); err != nil {
		return err
	}

	view := &queueView{call: call, page: int(req.Int("page", 1)) - 1}
	view.content()
	sess := interactive.New(view, func(b *interactive.Builder[*queueView]) {
		b.Timeout(c.deps.SessionTimeout)
		queueControls(b, view)
	})
	return sess.Run(ctx, c.deps.Env, interactive.Target{
		ChannelID: req.ChannelID,
		AuthorID:  req.UserID,
	}, func(s *interactive.Session[*queueView]) message.Content {
		return s.Data.content()
	})
}

func queueControls(b *interactive.Builder[*queueView], v *queueView) {
	pages := v.pages()
	b.Row(
		&interactive.Button[*queueView]{
			CustomID: "queue:prev",
			Emoji:    "◀️",
			Disable:  v.page == 0,
			OnClick:  turnPage(-1),
		},
		&interactive.Button[*queueView]{
			CustomID: "queue:next",
			Emoji:    "▶️",
			Disable:  v.page >= pages-1,
			OnClick:  turnPage(1),
		},
		&interactive.Button[*queueView]{
			CustomID: "queue:skip",
			Label:    "Skip",
			Style:    discordgo.PrimaryButton,
			Disable:  len(v.call.Queue()) == 0,
			OnClick:  skipTrack,
		},
		&interactive.Button[*queueView]{
			CustomID: "queue:close",
			Label:    "Close",
			Style:    discordgo.DangerButton,
			OnClick:  closeSession[*queueView],
		},
	)
}

func turnPage(delta int) interactive.HandlerFunc[*queueView] {
	return func(ctx context.Context, s *interactive.Session[*queueView], ev interactive.Event) error {
		s.Data.page += delta
		return refreshQueue(ctx, s, ev)
	}
}

func skipTrack(ctx context.Context, s *interactive.Session[*queueView], ev interactive.Event) error {
	s.Data.call.Skip()
	return refreshQueue(ctx, s, ev)
}

func refreshQueue(ctx context.Context, s *interactive.Session[*queueView], ev interactive.Event) error {
	content := s.Data.content()
	s.Reconfigure(func(b *interactive.Builder[*queueView]) { queueControls(b, s.Data) })
	return s.UpdateResponse(ctx, ev, content)
}

func closeSession[T any](ctx context.Context, s *interactive.Session[T], ev interactive.Event) error {
	s.Stop()
	return nil
}
