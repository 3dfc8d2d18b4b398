package bus

import "github.com/bwmarrin/discordgo"

// Interaction is a component interaction (button press, select change)
// received from the gateway.
type Interaction struct {
	ID        string   `json:"id"`
	GuildID   string   `json:"guild_id"`
	ChannelID string   `json:"channel_id"`
	MessageID string   `json:"message_id"`
	UserID    string   `json:"user_id"`
	CustomID  string   `json:"custom_id"`
	Values    []string `json:"values,omitempty"`

	// Raw is needed to respond to the interaction.
	Raw *discordgo.Interaction `json:"-"`
}

// SystemEvent is a typed event flowing through the bus for observability.
// Used for session lifecycle and status notifier activity.
type SystemEvent struct {
	Type   string      `json:"type"`   // e.g. "session.started", "notifier.sent"
	Source string      `json:"source"` // e.g. "session", "notifier"
	Data   interface{} `json:"data"`
}

// InteractionFilter selects which interactions a subscriber receives.
type InteractionFilter func(Interaction) bool
