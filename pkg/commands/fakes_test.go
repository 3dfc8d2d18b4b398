package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/interactive"
	"github.com/sipeed/picotune/pkg/mensa"
	"github.com/sipeed/picotune/pkg/message"
	"github.com/sipeed/picotune/pkg/playback"
	"github.com/sipeed/picotune/pkg/settings"
)

type reply struct {
	content   message.Content
	ephemeral bool
	followup  bool
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []reply
}

func (f *fakeReplier) Reply(ctx context.Context, i *discordgo.Interaction, c message.Content, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{content: c, ephemeral: ephemeral})
	return nil
}

func (f *fakeReplier) Followup(ctx context.Context, i *discordgo.Interaction, c message.Content, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{content: c, ephemeral: ephemeral, followup: true})
	return nil
}

func (f *fakeReplier) last() reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return reply{}
	}
	return f.replies[len(f.replies)-1]
}

type fakeVoice struct {
	channels map[string]string // user id -> voice channel
	joinErr  error
	joined   []string
}

func (f *fakeVoice) UserChannel(guildID, userID string) (string, error) {
	ch, ok := f.channels[userID]
	if !ok {
		return "", errors.New("not connected")
	}
	return ch, nil
}

func (f *fakeVoice) Join(ctx context.Context, guildID, channelID string) (*discordgo.VoiceConnection, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	f.joined = append(f.joined, channelID)
	return nil, nil
}

type fakeSettings struct {
	mu     sync.Mutex
	guilds map[string]settings.Guild
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{guilds: make(map[string]settings.Guild)}
}

func (f *fakeSettings) Get(ctx context.Context, guildID string) (settings.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return settings.Guild{GuildID: guildID, NotifierEnabled: true}, nil
	}
	return g, nil
}

func (f *fakeSettings) SetStatusChannel(ctx context.Context, guildID, channelID string) error {
	g, _ := f.Get(ctx, guildID)
	g.StatusChannelID = channelID
	f.mu.Lock()
	f.guilds[guildID] = g
	f.mu.Unlock()
	return nil
}

func (f *fakeSettings) SetNotifierEnabled(ctx context.Context, guildID string, enabled bool) error {
	g, _ := f.Get(ctx, guildID)
	g.NotifierEnabled = enabled
	f.mu.Lock()
	f.guilds[guildID] = g
	f.mu.Unlock()
	return nil
}

type fakeStatus struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (f *fakeStatus) Start(ctx context.Context, roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, roomID)
	return true
}

func (f *fakeStatus) Stop(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, roomID)
}

func (f *fakeStatus) Active(roomID string) bool { return false }

type fakeMeals struct {
	mu     sync.Mutex
	primed [][]int
	meals  map[int][]mensa.Meal
}

func (f *fakeMeals) Meals(ctx context.Context, canteenID int, day time.Time) ([]mensa.Meal, error) {
	m, ok := f.meals[canteenID]
	if !ok {
		return nil, mensa.ErrNoPlan
	}
	return m, nil
}

func (f *fakeMeals) Prime(ctx context.Context, canteenIDs []int, days []time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primed = append(f.primed, canteenIDs)
	return nil
}

// fakeTransport, fakeSource and fakeResponder back interactive sessions.

type fakeTransport struct {
	mu      sync.Mutex
	sent    []message.Content
	edits   []message.Content
	deleted []message.Handle
}

func (f *fakeTransport) Send(ctx context.Context, channelID string, c message.Content) (message.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return message.Handle{ChannelID: channelID, ID: fmt.Sprintf("m%d", len(f.sent))}, nil
}

func (f *fakeTransport) Edit(ctx context.Context, h message.Handle, c message.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, c)
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, h message.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, h)
	return nil
}

func (f *fakeTransport) Fetch(ctx context.Context, channelID, messageID string) (message.Handle, error) {
	return message.Handle{ChannelID: channelID, ID: messageID}, nil
}

func (f *fakeTransport) IsMostRecent(ctx context.Context, h message.Handle) (bool, error) {
	return true, nil
}

type fakeSource struct {
	events []interactive.Event
}

func (f *fakeSource) Subscribe(ctx context.Context, scope interactive.Scope) (<-chan interactive.Event, error) {
	out := make(chan interactive.Event)
	go func() {
		defer close(out)
		for _, ev := range f.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

type fakeResponder struct {
	mu      sync.Mutex
	updates []message.Content
}

func (f *fakeResponder) Acknowledge(ctx context.Context, ev interactive.Event) error { return nil }

func (f *fakeResponder) UpdateResponse(ctx context.Context, ev interactive.Event, c message.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, c)
	return nil
}

func click(id string, values ...string) interactive.Event {
	return interactive.Event{InteractionID: "i-" + id, ControlID: id, Values: values, UserID: "u1"}
}

type harness struct {
	deps      *Deps
	replier   *fakeReplier
	voice     *fakeVoice
	settings  *fakeSettings
	status    *fakeStatus
	meals     *fakeMeals
	transport *fakeTransport
	responder *fakeResponder
	source    *fakeSource
}

func newHarness(events ...interactive.Event) *harness {
	h := &harness{
		replier:   &fakeReplier{},
		voice:     &fakeVoice{channels: map[string]string{"u1": "voice-1"}},
		settings:  newFakeSettings(),
		status:    &fakeStatus{},
		meals:     &fakeMeals{meals: map[int][]mensa.Meal{}},
		transport: &fakeTransport{},
		responder: &fakeResponder{},
		source:    &fakeSource{events: events},
	}
	h.deps = &Deps{
		Calls:    playback.NewRegistry(),
		Status:   h.status,
		Settings: h.settings,
		Voice:    h.voice,
		Meals:    h.meals,
		Env: interactive.Env{
			Transport: h.transport,
			Events:    h.source,
			Responder: h.responder,
		},
		SessionTimeout: 2 * time.Second,
		Now:            func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) },
	}
	return h
}

func (h *harness) request(opts ...*discordgo.ApplicationCommandInteractionDataOption) *Request {
	req := &Request{
		GuildID:     "g1",
		ChannelID:   "text-1",
		UserID:      "u1",
		Options:     map[string]*discordgo.ApplicationCommandInteractionDataOption{},
		Interaction: &discordgo.Interaction{},
		replier:     h.replier,
	}
	for _, o := range opts {
		req.Options[o.Name] = o
	}
	return req
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	// Discord delivers numbers as float64 JSON values.
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func textContent(s string) message.Content {
	return message.Content{Text: s}
}
