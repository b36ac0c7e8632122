package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/deepspire/internal/protocol"
)

// Panel addresses the engine can render.
const (
	raidPanel protocol.PanelAddress = "panels/raid"
	menuPanel protocol.PanelAddress = "panels/menu"
)

// winningScore ends the game in the user's favor once reached.
const winningScore = 7

// raidPanelNode renders the raid prompt: continue into the room or retreat.
func raidPanelNode(room *Room) json.RawMessage {
	node, _ := json.Marshal(map[string]any{
		"title": fmt.Sprintf("Raid: %s", room.ID),
		"level": room.Level,
		"choices": []map[string]string{
			{"label": "Continue", "raid": "continue"},
			{"label": "Retreat", "raid": "retreat"},
		},
	})
	return node
}

func (e *Engine) fetchPanel(ctx context.Context, gameID protocol.GameID, action protocol.FetchPanel) (protocol.CommandBatch, error) {
	switch action.Panel {
	case raidPanel:
		game, err := e.store.LoadGame(ctx, gameID)
		if err != nil {
			return protocol.CommandBatch{}, err
		}
		if game.RaidRoom == "" {
			return protocol.CommandBatch{}, ErrNoRaid
		}
		room := game.room(game.RaidRoom)
		return protocol.CommandBatch{Commands: []protocol.Command{
			protocol.RenderInterface{Address: raidPanel, Node: raidPanelNode(room)},
		}}, nil
	case menuPanel:
		node, _ := json.Marshal(map[string]any{
			"title": "Deepspire",
			"choices": []map[string]string{
				{"label": "New Game", "action": "new_game"},
				{"label": "Resume", "action": "sync"},
			},
		})
		return protocol.CommandBatch{Commands: []protocol.Command{
			protocol.RenderInterface{Address: menuPanel, Node: node},
		}}, nil
	default:
		return protocol.CommandBatch{}, fmt.Errorf("%w: panel %q", ErrUnknownAction, action.Panel)
	}
}

// raidStep is the payload a raid panel choice submits as a standard action.
type raidStep struct {
	Raid string `json:"raid"`
}

func (e *Engine) standardAction(ctx context.Context, gameID protocol.GameID, action protocol.StandardAction) (protocol.CommandBatch, error) {
	if len(action.Payload) == 0 {
		return protocol.CommandBatch{}, fmt.Errorf("%w: standard action without payload", ErrUnknownAction)
	}
	var step raidStep
	if err := json.Unmarshal(action.Payload, &step); err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("decode standard action payload: %w", err)
	}
	switch step.Raid {
	case "continue":
		return e.mutate(ctx, gameID, func(g *Game) (protocol.CommandBatch, error) {
			return g.resolveRaid(true)
		})
	case "retreat":
		return e.mutate(ctx, gameID, func(g *Game) (protocol.CommandBatch, error) {
			return g.resolveRaid(false)
		})
	default:
		return protocol.CommandBatch{}, fmt.Errorf("%w: standard action payload %s", ErrUnknownAction, action.Payload)
	}
}

// resolveRaid ends the active raid. A continued raid scores the room's level,
// with a minimum of one point so raiding an unleveled room still progresses.
func (g *Game) resolveRaid(continued bool) (protocol.CommandBatch, error) {
	if g.RaidRoom == "" {
		return protocol.CommandBatch{}, ErrNoRaid
	}
	room := g.room(g.RaidRoom)
	g.RaidRoom = ""
	g.Priority = protocol.PlayerNameUser

	commands := []protocol.Command{
		protocol.RenderInterface{Address: raidPanel},
	}
	if continued {
		points := room.Level
		if points < 1 {
			points = 1
		}
		g.User.Score += points
		rewards := make([]protocol.CardView, 0, len(room.Cards))
		for _, card := range room.Cards {
			rewards = append(rewards, protocol.CardView{
				ID:       card.ID,
				Title:    card.Name,
				ManaCost: card.Cost,
				Owner:    protocol.PlayerNameUser,
				Revealed: true,
				Image:    card.Image,
			})
		}
		if len(rewards) > 0 {
			commands = append(commands, protocol.DisplayRewards{Cards: rewards})
		}
	}
	commands = append(commands,
		g.userStateCommand(),
		protocol.EndRaid{Room: room.ID},
		protocol.SetMusic{Track: "music/main"},
	)
	if g.User.Score >= winningScore {
		commands = append(commands,
			protocol.DisplayGameMessage{Message: protocol.MessageVictory},
			protocol.SetMusic{Track: "music/victory"},
		)
	}
	commands = append(commands, g.maybeEndTurn()...)
	return protocol.CommandBatch{Commands: commands}, nil
}
