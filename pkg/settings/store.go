// Package settings persists per-guild bot settings in SQLite.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sipeed/picotune/pkg/logger"
)

// Guild holds one guild's settings. The zero value is the default.
type Guild struct {
	GuildID string `json:"guild_id"`
	// StatusChannelID overrides where now-playing updates go. Empty means
	// the channel /play was used in.
	StatusChannelID string    `json:"status_channel_id,omitempty"`
	NotifierEnabled bool      `json:"notifier_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func defaults(guildID string) Guild {
	return Guild{GuildID: guildID, NotifierEnabled: true}
}

// Store is the SQLite settings store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (and creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings schema: %w", err)
	}
	logger.InfoCF("settings", "Settings store opened", map[string]interface{}{"db_path": path})
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS guild_settings (
		guild_id          TEXT PRIMARY KEY,
		status_channel_id TEXT NOT NULL DEFAULT '',
		notifier_enabled  INTEGER NOT NULL DEFAULT 1,
		updated_at        TEXT NOT NULL
	);`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the guild's settings, or the defaults if none are stored.
func (s *Store) Get(ctx context.Context, guildID string) (Guild, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, status_channel_id, notifier_enabled, updated_at
		FROM guild_settings WHERE guild_id = ?`, guildID)

	var (
		g       Guild
		enabled int
		updated string
	)
	err := row.Scan(&g.GuildID, &g.StatusChannelID, &enabled, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return defaults(guildID), nil
	}
	if err != nil {
		return Guild{}, fmt.Errorf("read settings for %s: %w", guildID, err)
	}
	g.NotifierEnabled = enabled != 0
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return g, nil
}

// SetStatusChannel stores the status channel override; empty clears it.
func (s *Store) SetStatusChannel(ctx context.Context, guildID, channelID string) error {
	return s.upsert(ctx, guildID, "status_channel_id", channelID)
}

// SetNotifierEnabled turns now-playing updates on or off.
func (s *Store) SetNotifierEnabled(ctx context.Context, guildID string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return s.upsert(ctx, guildID, "notifier_enabled", v)
}

// column is always one of the literals above.
func (s *Store) upsert(ctx context.Context, guildID, column string, value interface{}) error {
	query := fmt.Sprintf(`
		INSERT INTO guild_settings (guild_id, %[1]s, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET %[1]s = excluded.%[1]s, updated_at = excluded.updated_at`, column)
	if _, err := s.db.ExecContext(ctx, query, guildID, value, s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update %s for %s: %w", column, guildID, err)
	}
	logger.DebugCF("settings", "Guild setting updated", map[string]interface{}{
		"guild_id": guildID,
		"setting":  column,
		"value":    value,
	})
	return nil
}

// List returns every guild with stored settings.
func (s *Store) List(ctx context.Context) ([]Guild, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, status_channel_id, notifier_enabled, updated_at
		FROM guild_settings ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []Guild
	for rows.Next() {
		var (
			g       Guild
			enabled int
			updated string
		)
		if err := rows.Scan(&g.GuildID, &g.StatusChannelID, &enabled, &updated); err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		g.NotifierEnabled = enabled != 0
		g.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, g)
	}
	return out, rows.Err()
}
