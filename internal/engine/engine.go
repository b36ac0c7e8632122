// Package engine implements a playable subset of the authoritative game
// rules, used as the offline fallback and served by the local engine server.
//
// Every response batch emits resource changes as absolute state sets, so
// applying a batch twice leaves the same state and a stale optimistic
// prediction is simply overwritten.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/louisbranch/deepspire/internal/id"
	platformerrors "github.com/louisbranch/deepspire/internal/platform/errors"
	"github.com/louisbranch/deepspire/internal/protocol"
)

var (
	// ErrStoreRequired indicates a missing game store.
	ErrStoreRequired = errors.New("game store is required")
	// ErrNotYourTurn indicates the acting player does not hold priority.
	ErrNotYourTurn = errors.New("player does not hold priority")
	// ErrNoActionPoints indicates the action costs an action point the
	// player does not have.
	ErrNoActionPoints = errors.New("no action points remaining")
	// ErrInsufficientMana indicates the action costs more mana than the
	// player has.
	ErrInsufficientMana = errors.New("insufficient mana")
	// ErrEmptyDeck indicates a draw from an exhausted deck.
	ErrEmptyDeck = errors.New("deck is empty")
	// ErrCardNotInHand indicates the played card is not in the hand.
	ErrCardNotInHand = errors.New("card is not in hand")
	// ErrRoomNotFound indicates an unknown room target.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomTargetRequired indicates a room card played without a target.
	ErrRoomTargetRequired = errors.New("room target is required")
	// ErrRaidInProgress indicates a gameplay action during an active raid.
	ErrRaidInProgress = errors.New("raid is in progress")
	// ErrNoRaid indicates a raid step with no raid active.
	ErrNoRaid = errors.New("no raid is in progress")
	// ErrUnknownAction indicates an action this engine cannot resolve.
	ErrUnknownAction = errors.New("unknown action")
)

// insufficientMana wraps ErrInsufficientMana with the required amount so the
// transport can render it into the user-facing message.
func insufficientMana(need int) error {
	return &platformerrors.Error{
		Code:     platformerrors.CodeInsufficientMana,
		Message:  ErrInsufficientMana.Error(),
		Metadata: map[string]string{"Need": strconv.Itoa(need)},
		Cause:    ErrInsufficientMana,
	}
}

// Engine resolves actions against stored games.
type Engine struct {
	store Store
	newID func() string
	logf  func(string, ...any)
}

// Config carries engine dependencies.
type Config struct {
	// Store persists games. Required.
	Store Store
	// NewID overrides game id generation. Defaults to id.New.
	NewID func() string
	// Logf overrides the destination for diagnostics.
	Logf func(string, ...any)
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.New
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Engine{store: cfg.Store, newID: newID, logf: logf}, nil
}

// PerformAction resolves one action and returns the authoritative batch.
func (e *Engine) PerformAction(ctx context.Context, gameID protocol.GameID, playerID protocol.PlayerID, action protocol.GameAction) (protocol.CommandBatch, error) {
	switch v := action.(type) {
	case protocol.CreateNewGame:
		return e.createNewGame(ctx, playerID, v)
	case protocol.SyncAction:
		return e.sync(ctx, gameID)
	case protocol.FetchPanel:
		return e.fetchPanel(ctx, gameID, v)
	case protocol.StandardAction:
		return e.standardAction(ctx, gameID, v)
	case protocol.GainMana:
		return e.mutate(ctx, gameID, e.gainMana)
	case protocol.DrawCard:
		return e.mutate(ctx, gameID, e.drawCard)
	case protocol.PlayCard:
		return e.mutate(ctx, gameID, func(g *Game) (protocol.CommandBatch, error) {
			return e.playCard(g, v)
		})
	case protocol.LevelUpRoomAction:
		return e.mutate(ctx, gameID, func(g *Game) (protocol.CommandBatch, error) {
			return e.levelUpRoom(g, v.Room)
		})
	case protocol.InitiateRaidAction:
		return e.mutate(ctx, gameID, func(g *Game) (protocol.CommandBatch, error) {
			return e.initiateRaid(g, v.Room)
		})
	default:
		return protocol.CommandBatch{}, fmt.Errorf("%w: %s", ErrUnknownAction, protocol.KindOf(action))
	}
}

// mutate loads, applies, and saves a gameplay mutation atomically from the
// caller's point of view.
func (e *Engine) mutate(ctx context.Context, gameID protocol.GameID, fn func(*Game) (protocol.CommandBatch, error)) (protocol.CommandBatch, error) {
	game, err := e.store.LoadGame(ctx, gameID)
	if err != nil {
		return protocol.CommandBatch{}, err
	}
	batch, err := fn(game)
	if err != nil {
		return protocol.CommandBatch{}, err
	}
	if err := e.store.SaveGame(ctx, game); err != nil {
		return protocol.CommandBatch{}, err
	}
	return batch, nil
}

func (e *Engine) createNewGame(ctx context.Context, playerID protocol.PlayerID, action protocol.CreateNewGame) (protocol.CommandBatch, error) {
	opponent := action.Opponent
	if opponent == "" {
		opponent = "overlord-ai"
	}
	game := newGame(protocol.GameID(e.newID()), playerID, opponent)
	if err := e.store.SaveGame(ctx, game); err != nil {
		return protocol.CommandBatch{}, err
	}
	e.logf("created game %s for %s vs %s", game.ID, playerID, opponent)

	commands := []protocol.Command{
		protocol.RenderGame{Game: game.view()},
	}
	commands = append(commands, handCommands(game)...)
	commands = append(commands,
		protocol.DisplayGameMessage{Message: protocol.MessageDawn},
		protocol.SetMusic{Track: "music/main"},
	)
	return protocol.CommandBatch{Commands: commands}, nil
}

func (e *Engine) sync(ctx context.Context, gameID protocol.GameID) (protocol.CommandBatch, error) {
	game, err := e.store.LoadGame(ctx, gameID)
	if err != nil {
		return protocol.CommandBatch{}, err
	}
	commands := []protocol.Command{
		protocol.RenderGame{Game: game.view()},
	}
	commands = append(commands, handCommands(game)...)
	return protocol.CommandBatch{Commands: commands}, nil
}

// handCommands renders the user's hand, one card per command.
func handCommands(game *Game) []protocol.Command {
	commands := make([]protocol.Command, 0, len(game.User.Hand))
	for i, card := range game.User.Hand {
		commands = append(commands, protocol.CreateOrUpdateCard{
			Card: protocol.CardView{
				ID:       card.ID,
				Title:    card.Name,
				ManaCost: card.Cost,
				Owner:    protocol.PlayerNameUser,
				Revealed: true,
				Image:    card.Image,
			},
			Position: protocol.ObjectPosition{
				Zone:  protocol.ZoneHand,
				Owner: protocol.PlayerNameUser,
				Index: i,
			},
		})
	}
	return commands
}

func (e *Engine) gainMana(g *Game) (protocol.CommandBatch, error) {
	if err := g.checkGameplay(); err != nil {
		return protocol.CommandBatch{}, err
	}
	g.User.Mana++
	g.User.ActionPoints--
	commands := []protocol.Command{g.userStateCommand()}
	commands = append(commands, g.maybeEndTurn()...)
	return protocol.CommandBatch{Commands: commands}, nil
}

func (e *Engine) drawCard(g *Game) (protocol.CommandBatch, error) {
	if err := g.checkGameplay(); err != nil {
		return protocol.CommandBatch{}, err
	}
	card := g.User.draw()
	if card == nil {
		return protocol.CommandBatch{}, ErrEmptyDeck
	}
	g.User.ActionPoints--
	commands := []protocol.Command{
		g.userStateCommand(),
		protocol.CreateOrUpdateCard{
			Card: protocol.CardView{
				ID:       card.ID,
				Title:    card.Name,
				ManaCost: card.Cost,
				Owner:    protocol.PlayerNameUser,
				Revealed: true,
				Image:    card.Image,
			},
			Position: protocol.ObjectPosition{
				Zone:  protocol.ZoneDeck,
				Owner: protocol.PlayerNameUser,
			},
		},
		protocol.MoveGameObjects{
			IDs: []protocol.GameObjectID{protocol.CardObjectID(card.ID)},
			Position: protocol.ObjectPosition{
				Zone:  protocol.ZoneHand,
				Owner: protocol.PlayerNameUser,
				Index: len(g.User.Hand) - 1,
			},
		},
	}
	commands = append(commands, g.maybeEndTurn()...)
	return protocol.CommandBatch{Commands: commands}, nil
}

func (e *Engine) playCard(g *Game, action protocol.PlayCard) (protocol.CommandBatch, error) {
	if err := g.checkGameplay(); err != nil {
		return protocol.CommandBatch{}, err
	}
	card := g.User.takeFromHand(action.Card)
	if card == nil {
		return protocol.CommandBatch{}, ErrCardNotInHand
	}
	if g.User.Mana < card.Cost {
		g.User.Hand = append(g.User.Hand, *card)
		return protocol.CommandBatch{}, insufficientMana(card.Cost)
	}

	position := protocol.ObjectPosition{Zone: protocol.ZoneArena, Owner: protocol.PlayerNameUser}
	if card.Kind == protocol.CardKindRoom {
		if action.Target == nil {
			g.User.Hand = append(g.User.Hand, *card)
			return protocol.CommandBatch{}, ErrRoomTargetRequired
		}
		room := g.room(*action.Target)
		if room == nil {
			g.User.Hand = append(g.User.Hand, *card)
			return protocol.CommandBatch{}, ErrRoomNotFound
		}
		room.Cards = append(room.Cards, *card)
		position = protocol.ObjectPosition{Zone: protocol.ZoneRoom, Room: room.ID, Index: len(room.Cards) - 1}
	}

	g.User.Mana -= card.Cost
	g.User.ActionPoints--
	commands := []protocol.Command{
		g.userStateCommand(),
		protocol.MoveGameObjects{
			IDs:      []protocol.GameObjectID{protocol.CardObjectID(card.ID)},
			Position: position,
		},
	}
	commands = append(commands, g.maybeEndTurn()...)
	return protocol.CommandBatch{Commands: commands}, nil
}

func (e *Engine) levelUpRoom(g *Game, roomID protocol.RoomID) (protocol.CommandBatch, error) {
	if err := g.checkGameplay(); err != nil {
		return protocol.CommandBatch{}, err
	}
	room := g.room(roomID)
	if room == nil {
		return protocol.CommandBatch{}, ErrRoomNotFound
	}
	if g.User.Mana < levelUpManaCost {
		return protocol.CommandBatch{}, insufficientMana(levelUpManaCost)
	}
	g.User.Mana -= levelUpManaCost
	g.User.ActionPoints--
	room.Level++
	commands := []protocol.Command{
		g.userStateCommand(),
		protocol.LevelUpRoom{Room: room.ID, NewLevel: room.Level},
	}
	commands = append(commands, g.maybeEndTurn()...)
	return protocol.CommandBatch{Commands: commands}, nil
}

func (e *Engine) initiateRaid(g *Game, roomID protocol.RoomID) (protocol.CommandBatch, error) {
	if err := g.checkGameplay(); err != nil {
		return protocol.CommandBatch{}, err
	}
	room := g.room(roomID)
	if room == nil {
		return protocol.CommandBatch{}, ErrRoomNotFound
	}
	g.User.ActionPoints--
	g.RaidRoom = room.ID
	g.Priority = protocol.PlayerNameOpponent
	return protocol.CommandBatch{Commands: []protocol.Command{
		g.userStateCommand(),
		protocol.InitiateRaid{Room: room.ID, Initiator: protocol.PlayerNameUser},
		protocol.SetMusic{Track: "music/raid"},
		protocol.RenderInterface{Address: raidPanel, Node: raidPanelNode(room)},
	}}, nil
}

// checkGameplay verifies the shared preconditions of gameplay actions.
func (g *Game) checkGameplay() error {
	if g.RaidRoom != "" {
		return ErrRaidInProgress
	}
	if g.Priority != protocol.PlayerNameUser {
		return ErrNotYourTurn
	}
	if g.User.ActionPoints <= 0 {
		return ErrNoActionPoints
	}
	return nil
}

// maybeEndTurn resolves the opponent turn once the user's action points run
// out. The offline opponent takes no actions; the turn simply passes through
// dusk and comes back at dawn with refreshed action points.
func (g *Game) maybeEndTurn() []protocol.Command {
	if g.User.ActionPoints > 0 || g.RaidRoom != "" {
		return nil
	}
	g.Turn++
	g.User.ActionPoints = startingActionPoints
	return []protocol.Command{
		protocol.DisplayGameMessage{Message: protocol.MessageDusk},
		protocol.Delay{DurationMillis: 500},
		protocol.DisplayGameMessage{Message: protocol.MessageDawn},
		g.userStateCommand(),
	}
}
