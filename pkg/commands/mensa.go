package commands

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/config"
	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/mensa"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/render"
)

const mensaDays = 5

type mensaView struct {
	canteens []config.Canteen
	days     []time.Time
	canteen  int // index into canteens
	day      int // index into days
}

func (v *mensaView) ids() []int {
	ids := make([]int, len(v.canteens))
	for i, c := range v.canteens {
		ids[i] = c.ID
	}
	return ids
}

// Mensa browses canteen plans for the coming days.
type Mensa struct{ deps *Deps }

func (c *Mensa) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "mensa",
		Description: "What's for lunch",
	}
}

func (c *Mensa) Run(ctx context.Context, req *Request) error {
	if len(c.deps.Canteens) == 0 || c.deps.Meals == nil {
		return UserError("No canteens are configured.")
	}
	if err := req.Notice(ctx, "Fetching meal plans."); err != nil {
		return err
	}

	view := &mensaView{canteens: c.deps.Canteens, days: upcomingDays(c.deps.now(), mensaDays)}
	sess := interactive.New(view, func(b *interactive.Builder[*mensaView]) {
		b.Timeout(c.deps.SessionTimeout)
		b.PreHook(c.prime)
		mensaControls(b, view, c.deps.Meals)
	})
	return sess.Run(ctx, c.deps.Env, interactive.Target{
		ChannelID: req.ChannelID,
		AuthorID:  req.UserID,
	}, func(s *interactive.Session[*mensaView]) message.Content {
		return message.Embed(&discordgo.MessageEmbed{
			Title: "Loading meal plans…",
			Color: render.ColorInfo,
		})
	})
}

// prime warms the plan cache for every canteen and day shown, then replaces
// the loading notice with the first plan.
func (c *Mensa) prime(ctx context.Context, s *interactive.Session[*mensaView]) error {
	if err := c.deps.Meals.Prime(ctx, s.Data.ids(), s.Data.days); err != nil {
		return err
	}
	return s.Edit(ctx, planContent(ctx, c.deps.Meals, s.Data))
}

func mensaControls(b *interactive.Builder[*mensaView], v *mensaView, plans mensa.Source) {
	canteens := make([]interactive.Option, len(v.canteens))
	for i, ct := range v.canteens {
		canteens[i] = interactive.Option{
			Label:   ct.Name,
			Value:   strconv.Itoa(i),
			Default: i == v.canteen,
		}
	}
	days := make([]interactive.Option, len(v.days))
	for i, d := range v.days {
		label := d.Format("Monday, 02 Jan")
		if i == 0 {
			label = "Today"
		}
		days[i] = interactive.Option{Label: label, Value: strconv.Itoa(i), Default: i == v.day}
	}

	b.Row(&interactive.Select[*mensaView]{
		CustomID:    "mensa:canteen",
		Placeholder: "Canteen",
		Options:     canteens,
		OnSelect:    pick(plans, func(v *mensaView, i int) { v.canteen = i }, len(v.canteens)),
	})
	b.Row(&interactive.Select[*mensaView]{
		CustomID:    "mensa:day",
		Placeholder: "Day",
		Options:     days,
		OnSelect:    pick(plans, func(v *mensaView, i int) { v.day = i }, len(v.days)),
	})
	b.Row(&interactive.Button[*mensaView]{
		CustomID: "mensa:close",
		Label:    "Close",
		Style:    discordgo.DangerButton,
		OnClick:  closeSession[*mensaView],
	})
}

// pick applies a select choice and re-renders the plan. Out of range values
// are ignored.
func pick(plans mensa.Source, apply func(v *mensaView, i int), n int) interactive.HandlerFunc[*mensaView] {
	return func(ctx context.Context, s *interactive.Session[*mensaView], ev interactive.Event) error {
		if len(ev.Values) == 0 {
			return nil
		}
		i, err := strconv.Atoi(ev.Values[0])
		if err != nil || i < 0 || i >= n {
			logger.DebugCF("commands", "Ignoring bad select value", map[string]interface{}{
				"control": ev.ControlID,
				"value":   ev.Values[0],
			})
			return nil
		}
		apply(s.Data, i)
		s.Reconfigure(func(b *interactive.Builder[*mensaView]) { mensaControls(b, s.Data, plans) })
		return s.UpdateResponse(ctx, ev, planContent(ctx, plans, s.Data))
	}
}

func planContent(ctx context.Context, plans mensa.Source, v *mensaView) message.Content {
	ct := v.canteens[v.canteen]
	day := v.days[v.day]
	meals, err := plans.Meals(ctx, ct.ID, day)
	if err != nil && !errors.Is(err, mensa.ErrNoPlan) {
		logger.WarnCF("commands", "Meal plan unavailable", map[string]interface{}{
			"canteen_id": ct.ID,
			"error":      err.Error(),
		})
		return message.Embed(render.Error("The meal plan for " + ct.Name + " is unavailable right now."))
	}
	return message.Embed(render.MealPlan(ct.Name, day, meals))
}

// upcomingDays returns n calendar days starting with today.
func upcomingDays(now time.Time, n int) []time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
