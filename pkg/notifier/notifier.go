// Package notifier keeps one "now playing" status message per guild roughly
// in sync with the guild's playback state.
//
// Each active guild runs two triggers: a one-shot trigger shortly after
// Start and a periodic trigger afterwards. Both call Reconcile, which holds
// the guild's lock for the whole run so the two never race on the stored
// message id. Reconcile decides between sending a new message, editing the
// previous one in place, or deleting it and posting again when other
// messages have pushed it out of view. It never returns errors: transport
// failures are logged and the stored message is forgotten so the next tick
// starts over.
package notifier

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/playback"
)

const (
	DefaultInitialDelay = 2 * time.Second
	DefaultInterval     = 15 * time.Second
)

// Call is the read-only view of a guild's playback the notifier needs.
type Call interface {
	CurrentTrack() (playback.Playing, bool)
	RequesterOf(trackID string) (string, bool)
	TextChannelID() string
}

// Calls resolves a guild's active call.
type Calls interface {
	Lookup(roomID string) (Call, bool)
}

// CallsFunc adapts a function to Calls.
type CallsFunc func(roomID string) (Call, bool)

func (f CallsFunc) Lookup(roomID string) (Call, bool) { return f(roomID) }

// RegistryCalls exposes a playback registry as Calls.
func RegistryCalls(r *playback.Registry) Calls {
	return CallsFunc(func(roomID string) (Call, bool) {
		c, ok := r.Lookup(roomID)
		if !ok {
			return nil, false
		}
		return c, true
	})
}

// UserLookup resolves requester ids for rendering.
type UserLookup interface {
	User(ctx context.Context, userID string) (*discordgo.User, error)
}

// Outcome is what a single reconciliation did.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSent
	OutcomeEdited
	OutcomeReplaced
	OutcomeCallEnded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSent:
		return "sent"
	case OutcomeEdited:
		return "edited"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeCallEnded:
		return "call_ended"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
