package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Users resolves user ids, caching REST lookups for the process lifetime.
type Users struct {
	session *discordgo.Session

	mu    sync.RWMutex
	cache map[string]*discordgo.User
}

func NewUsers(s *discordgo.Session) *Users {
	return &Users{session: s, cache: make(map[string]*discordgo.User)}
}

func (u *Users) User(ctx context.Context, userID string) (*discordgo.User, error) {
	u.mu.RLock()
	cached, ok := u.cache[userID]
	u.mu.RUnlock()
	if ok {
		return cached, nil
	}

	user, err := u.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", userID, err)
	}
	u.mu.Lock()
	u.cache[userID] = user
	u.mu.Unlock()
	return user, nil
}
