package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource(t *testing.T) {
	assert.Equal(t, "notifier", Source(NotifierSent))
	assert.Equal(t, "session", Source(SessionTimedOut))
	assert.Equal(t, "plain", Source("plain"))
}

func TestNewDerivesSource(t *testing.T) {
	ev := New(NotifierStopped, Notifier{RoomID: "g1", Reason: "call ended"})
	assert.Equal(t, "notifier", ev.Source)
	assert.Equal(t, NotifierStopped, ev.Type)
	assert.Equal(t, "g1", ev.Data.(Notifier).RoomID)
}
