package engine

import "github.com/louisbranch/deepspire/internal/protocol"

// Starting resources and per-action costs for the offline rules subset.
const (
	startingMana         = 5
	startingActionPoints = 3
	openingHandSize      = 5

	levelUpManaCost = 1
)

// Card is one card instance inside a stored game.
type Card struct {
	ID    protocol.CardID   `json:"id"`
	Name  string            `json:"name"`
	Kind  protocol.CardKind `json:"kind"`
	Cost  int               `json:"cost"`
	Image protocol.AssetRef `json:"image,omitempty"`
}

// PlayerState is one player's stored resources and card zones.
type PlayerState struct {
	ID           protocol.PlayerID `json:"id"`
	Mana         int               `json:"mana"`
	ActionPoints int               `json:"action_points"`
	Score        int               `json:"score"`
	Deck         []Card            `json:"deck"`
	Hand         []Card            `json:"hand"`
}

// Room is one dungeon room the user has built into.
type Room struct {
	ID    protocol.RoomID `json:"id"`
	Level int             `json:"level"`
	Cards []Card          `json:"cards"`
}

// Game is the full stored state of one offline game.
type Game struct {
	ID       protocol.GameID     `json:"id"`
	User     PlayerState         `json:"user"`
	Opponent PlayerState         `json:"opponent"`
	Rooms    []Room              `json:"rooms"`
	Priority protocol.PlayerName `json:"priority"`
	RaidRoom protocol.RoomID     `json:"raid_room,omitempty"`
	Turn     int                 `json:"turn"`
}

// newGame builds a fresh game: starting resources, opening hands drawn from
// the starter decks, the three standard rooms at level zero, user priority.
func newGame(id protocol.GameID, user, opponent protocol.PlayerID) *Game {
	game := &Game{
		ID: id,
		User: PlayerState{
			ID:           user,
			Mana:         startingMana,
			ActionPoints: startingActionPoints,
			Deck:         buildDeck(id, protocol.PlayerNameUser),
		},
		Opponent: PlayerState{
			ID:           opponent,
			Mana:         startingMana,
			ActionPoints: startingActionPoints,
			Deck:         buildDeck(id, protocol.PlayerNameOpponent),
		},
		Rooms: []Room{
			{ID: protocol.RoomVault},
			{ID: protocol.RoomSanctum},
			{ID: protocol.RoomCrypt},
		},
		Priority: protocol.PlayerNameUser,
		Turn:     1,
	}
	for i := 0; i < openingHandSize; i++ {
		game.User.draw()
		game.Opponent.draw()
	}
	return game
}

// draw moves the top deck card to the hand. Returns nil when the deck is out.
func (p *PlayerState) draw() *Card {
	if len(p.Deck) == 0 {
		return nil
	}
	card := p.Deck[0]
	p.Deck = p.Deck[1:]
	p.Hand = append(p.Hand, card)
	return &p.Hand[len(p.Hand)-1]
}

// takeFromHand removes and returns the card with this id, or nil.
func (p *PlayerState) takeFromHand(id protocol.CardID) *Card {
	for i := range p.Hand {
		if p.Hand[i].ID == id {
			card := p.Hand[i]
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return &card
		}
	}
	return nil
}

func (p PlayerState) view() protocol.PlayerView {
	return protocol.PlayerView{
		ID:           p.ID,
		Mana:         p.Mana,
		ActionPoints: p.ActionPoints,
		Score:        p.Score,
	}
}

// room returns the room with this id, or nil.
func (g *Game) room(id protocol.RoomID) *Room {
	for i := range g.Rooms {
		if g.Rooms[i].ID == id {
			return &g.Rooms[i]
		}
	}
	return nil
}

// view builds the renderable game description.
func (g *Game) view() protocol.GameView {
	return protocol.GameView{
		GameID:     g.ID,
		User:       g.User.view(),
		Opponent:   g.Opponent.view(),
		Priority:   g.Priority,
		RaidActive: g.RaidRoom != "",
	}
}

// userStateCommand emits the user's resources as an absolute set.
func (g *Game) userStateCommand() protocol.UpdatePlayerState {
	return protocol.UpdatePlayerState{
		Player:       protocol.PlayerNameUser,
		Mana:         g.User.Mana,
		ActionPoints: g.User.ActionPoints,
		Score:        g.User.Score,
	}
}
