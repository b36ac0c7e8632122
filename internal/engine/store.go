package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/louisbranch/deepspire/internal/protocol"
)

// ErrGameNotFound indicates no stored game matches the requested id.
var ErrGameNotFound = errors.New("game not found")

// Store persists offline games. Save replaces any stored game with the same
// id; the offline engine keeps at most one live game per store in practice.
type Store interface {
	LoadGame(ctx context.Context, id protocol.GameID) (*Game, error)
	SaveGame(ctx context.Context, game *Game) error
}

// MemoryStore keeps games in process memory. Used by tests and scenarios.
type MemoryStore struct {
	mu    sync.Mutex
	games map[protocol.GameID]*Game
}

// NewMemoryStore creates an empty in-memory game store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[protocol.GameID]*Game)}
}

// LoadGame returns a deep-enough copy of the stored game.
func (s *MemoryStore) LoadGame(ctx context.Context, id protocol.GameID) (*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	copied := cloneGame(game)
	return copied, nil
}

// SaveGame stores the game, replacing any previous state under its id.
func (s *MemoryStore) SaveGame(ctx context.Context, game *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = cloneGame(game)
	return nil
}

func cloneGame(game *Game) *Game {
	copied := *game
	copied.User = clonePlayer(game.User)
	copied.Opponent = clonePlayer(game.Opponent)
	copied.Rooms = make([]Room, len(game.Rooms))
	for i, room := range game.Rooms {
		copied.Rooms[i] = room
		copied.Rooms[i].Cards = append([]Card(nil), room.Cards...)
	}
	return &copied
}

func clonePlayer(player PlayerState) PlayerState {
	player.Deck = append([]Card(nil), player.Deck...)
	player.Hand = append([]Card(nil), player.Hand...)
	return player
}
