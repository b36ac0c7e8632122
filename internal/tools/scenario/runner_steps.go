package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/deepspire/internal/protocol"
)

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "new_game":
		return r.stepNewGame(ctx, state, step.Args)
	case "gain_mana":
		_, err := r.perform(ctx, state, protocol.GainMana{})
		return err
	case "draw_card":
		_, err := r.perform(ctx, state, protocol.DrawCard{})
		return err
	case "play_card":
		return r.stepPlayCard(ctx, state, step.Args)
	case "level_up":
		room := protocol.RoomID(requiredString(step.Args, "room"))
		_, err := r.perform(ctx, state, protocol.LevelUpRoomAction{Room: room})
		return err
	case "raid":
		room := protocol.RoomID(requiredString(step.Args, "room"))
		_, err := r.perform(ctx, state, protocol.InitiateRaidAction{Room: room})
		return err
	case "continue_raid":
		return r.stepRaidChoice(ctx, state, "continue")
	case "retreat":
		return r.stepRaidChoice(ctx, state, "retreat")
	case "sync":
		_, err := r.perform(ctx, state, protocol.SyncAction{})
		return err
	case "expect":
		return r.stepExpect(ctx, state, step.Args)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) stepNewGame(ctx context.Context, state *scenarioState, args map[string]any) error {
	opponent := protocol.PlayerID(optionalString(args, "opponent", ""))
	batch, err := r.perform(ctx, state, protocol.CreateNewGame{Opponent: opponent, Offline: true})
	if err != nil {
		return err
	}
	if state.gameID == "" {
		return errors.New("new game did not render a game id")
	}
	if batch.Empty() {
		return errors.New("new game produced no commands")
	}
	return nil
}

func (r *Runner) stepPlayCard(ctx context.Context, state *scenarioState, args map[string]any) error {
	card, err := r.findHandCard(ctx, state, requiredString(args, "card"))
	if err != nil {
		return err
	}
	action := protocol.PlayCard{Card: card.ID, Kind: card.Kind}
	if room := optionalString(args, "room", ""); room != "" {
		target := protocol.RoomID(room)
		action.Target = &target
	}
	_, err = r.perform(ctx, state, action)
	return err
}

func (r *Runner) stepRaidChoice(ctx context.Context, state *scenarioState, choice string) error {
	payload := []byte(fmt.Sprintf(`{"raid":%q}`, choice))
	_, err := r.perform(ctx, state, protocol.StandardAction{Payload: payload})
	return err
}

// stepExpect compares scripted expectations against the stored game.
func (r *Runner) stepExpect(ctx context.Context, state *scenarioState, args map[string]any) error {
	game, err := r.loadGame(ctx, state)
	if err != nil {
		return err
	}

	if want, ok := readInt(args, "mana"); ok && game.User.Mana != want {
		if err := r.assertions.Failf("mana = %d, want %d", game.User.Mana, want); err != nil {
			return err
		}
	}
	if want, ok := readInt(args, "action_points"); ok && game.User.ActionPoints != want {
		if err := r.assertions.Failf("action points = %d, want %d", game.User.ActionPoints, want); err != nil {
			return err
		}
	}
	if want, ok := readInt(args, "score"); ok && game.User.Score != want {
		if err := r.assertions.Failf("score = %d, want %d", game.User.Score, want); err != nil {
			return err
		}
	}
	if want, ok := readInt(args, "turn"); ok && game.Turn != want {
		if err := r.assertions.Failf("turn = %d, want %d", game.Turn, want); err != nil {
			return err
		}
	}
	if want, ok := readInt(args, "hand"); ok && len(game.User.Hand) != want {
		if err := r.assertions.Failf("hand size = %d, want %d", len(game.User.Hand), want); err != nil {
			return err
		}
	}
	if want, ok := readBool(args, "raid"); ok {
		raidActive := game.RaidRoom != ""
		if raidActive != want {
			if err := r.assertions.Failf("raid active = %v, want %v", raidActive, want); err != nil {
				return err
			}
		}
	}
	if spec := optionalString(args, "room_level", ""); spec != "" {
		roomID, level, err := parseRoomLevel(spec)
		if err != nil {
			return err
		}
		found := false
		for _, room := range game.Rooms {
			if room.ID != roomID {
				continue
			}
			found = true
			if room.Level != level {
				if err := r.assertions.Failf("room %s level = %d, want %d", roomID, room.Level, level); err != nil {
					return err
				}
			}
		}
		if !found {
			return fmt.Errorf("expect: room %q not found", roomID)
		}
	}
	return nil
}
