// Package sqlite provides a SQLite-backed engine game store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/deepspire/internal/engine"
	"github.com/louisbranch/deepspire/internal/engine/storage/sqlite/migrations"
	"github.com/louisbranch/deepspire/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/deepspire/internal/protocol"
)

// Store persists offline games in SQLite. Game state is stored as one JSON
// document per game; the offline engine always reads and writes whole games.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite game store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadGame returns the stored game with this id.
func (s *Store) LoadGame(ctx context.Context, gameID protocol.GameID) (*engine.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(string(gameID)) == "" {
		return nil, fmt.Errorf("game id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT state FROM games WHERE id = ?`, string(gameID))
	var state string
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.ErrGameNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}

	var game engine.Game
	if err := json.Unmarshal([]byte(state), &game); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &game, nil
}

// SaveGame stores the game, replacing any previous state under its id.
func (s *Store) SaveGame(ctx context.Context, game *engine.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if game == nil || strings.TrimSpace(string(game.ID)) == "" {
		return fmt.Errorf("game id is required")
	}

	state, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(game.ID),
		string(state),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

var _ engine.Store = (*Store)(nil)
