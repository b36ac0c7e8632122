package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/deepspire/internal/engine"
	"github.com/louisbranch/deepspire/internal/protocol"
)

func (r *Runner) loadGame(ctx context.Context, state *scenarioState) (*engine.Game, error) {
	if state.gameID == "" {
		return nil, errors.New("no active game, script a new_game step first")
	}
	return r.store.LoadGame(ctx, state.gameID)
}

// findHandCard resolves a scripted card name to the matching card in the
// user's hand. The first name match wins.
func (r *Runner) findHandCard(ctx context.Context, state *scenarioState, name string) (engine.Card, error) {
	if name == "" {
		return engine.Card{}, errors.New("card name is required")
	}
	game, err := r.loadGame(ctx, state)
	if err != nil {
		return engine.Card{}, err
	}
	for _, card := range game.User.Hand {
		if strings.EqualFold(card.Name, name) {
			return card, nil
		}
	}
	return engine.Card{}, fmt.Errorf("card %q is not in hand", name)
}

// parseRoomLevel splits a "room:level" expectation, e.g. "vault:2".
func parseRoomLevel(spec string) (protocol.RoomID, int, error) {
	room, levelText, ok := strings.Cut(spec, ":")
	if !ok {
		return "", 0, fmt.Errorf("room_level %q must be room:level", spec)
	}
	level, err := strconv.Atoi(strings.TrimSpace(levelText))
	if err != nil {
		return "", 0, fmt.Errorf("room_level %q has invalid level: %w", spec, err)
	}
	return protocol.RoomID(strings.TrimSpace(room)), level, nil
}

func requiredString(args map[string]any, key string) string {
	value, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func readInt(args map[string]any, key string) (int, bool) {
	switch value := args[key].(type) {
	case int:
		return value, true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}

func readBool(args map[string]any, key string) (bool, bool) {
	value, ok := args[key].(bool)
	return value, ok
}
