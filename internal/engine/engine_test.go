package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	platformerrors "github.com/louisbranch/deepspire/internal/platform/errors"
	"github.com/louisbranch/deepspire/internal/protocol"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	seq := 0
	eng, err := New(Config{
		Store: store,
		NewID: func() string { seq++; return fmt.Sprintf("game-%d", seq) },
		Logf:  t.Logf,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng, store
}

func createGame(t *testing.T, eng *Engine) protocol.GameID {
	t.Helper()
	batch, err := eng.PerformAction(context.Background(), "", "p1", protocol.CreateNewGame{})
	if err != nil {
		t.Fatalf("create new game: %v", err)
	}
	render, ok := batch.Commands[0].(protocol.RenderGame)
	if !ok {
		t.Fatalf("first command = %#v, want RenderGame", batch.Commands[0])
	}
	return render.Game.GameID
}

func loadGame(t *testing.T, store *MemoryStore, id protocol.GameID) *Game {
	t.Helper()
	game, err := store.LoadGame(context.Background(), id)
	if err != nil {
		t.Fatalf("load game: %v", err)
	}
	return game
}

func userState(t *testing.T, batch protocol.CommandBatch) protocol.UpdatePlayerState {
	t.Helper()
	for _, cmd := range batch.Commands {
		if update, ok := cmd.(protocol.UpdatePlayerState); ok && update.Player == protocol.PlayerNameUser {
			return update
		}
	}
	t.Fatalf("no UpdatePlayerState in batch %#v", batch)
	return protocol.UpdatePlayerState{}
}

func TestCreateNewGameSetsUpStartingState(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	game := loadGame(t, store, gameID)
	if game.User.Mana != startingMana || game.User.ActionPoints != startingActionPoints {
		t.Fatalf("user resources = %d mana %d points, want %d and %d",
			game.User.Mana, game.User.ActionPoints, startingMana, startingActionPoints)
	}
	if len(game.User.Hand) != openingHandSize {
		t.Fatalf("opening hand = %d cards, want %d", len(game.User.Hand), openingHandSize)
	}
	if len(game.Rooms) != 3 {
		t.Fatalf("rooms = %d, want 3", len(game.Rooms))
	}
	if game.Priority != protocol.PlayerNameUser {
		t.Fatalf("priority = %q, want user", game.Priority)
	}
}

func TestCreateNewGameRendersHand(t *testing.T) {
	eng, _ := newTestEngine(t)
	batch, err := eng.PerformAction(context.Background(), "", "p1", protocol.CreateNewGame{})
	if err != nil {
		t.Fatalf("create new game: %v", err)
	}
	cards := 0
	for _, cmd := range batch.Commands {
		if _, ok := cmd.(protocol.CreateOrUpdateCard); ok {
			cards++
		}
	}
	if cards != openingHandSize {
		t.Fatalf("rendered %d hand cards, want %d", cards, openingHandSize)
	}
}

func TestGainManaSpendsOneActionForOneMana(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.GainMana{})
	if err != nil {
		t.Fatalf("gain mana: %v", err)
	}
	update := userState(t, batch)
	if update.Mana != startingMana+1 || update.ActionPoints != startingActionPoints-1 {
		t.Fatalf("state after gain mana = %d mana %d points", update.Mana, update.ActionPoints)
	}

	game := loadGame(t, store, gameID)
	if game.User.Mana != startingMana+1 {
		t.Fatalf("stored mana = %d, want %d", game.User.Mana, startingMana+1)
	}
}

func TestDrawCardMovesTopDeckCardToHand(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)
	before := loadGame(t, store, gameID)
	top := before.User.Deck[0]

	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.DrawCard{})
	if err != nil {
		t.Fatalf("draw card: %v", err)
	}

	game := loadGame(t, store, gameID)
	if len(game.User.Hand) != openingHandSize+1 {
		t.Fatalf("hand = %d cards, want %d", len(game.User.Hand), openingHandSize+1)
	}
	if drawn := game.User.Hand[len(game.User.Hand)-1]; drawn.ID != top.ID {
		t.Fatalf("drawn card = %s, want top of deck %s", drawn.ID, top.ID)
	}
	var moved bool
	for _, cmd := range batch.Commands {
		if move, ok := cmd.(protocol.MoveGameObjects); ok {
			if len(move.IDs) == 1 && move.IDs[0] == protocol.CardObjectID(top.ID) && move.Position.Zone == protocol.ZoneHand {
				moved = true
			}
		}
	}
	if !moved {
		t.Fatalf("batch does not move the drawn card to hand: %#v", batch)
	}
}

func TestPlayRoomCardRequiresTargetAndMana(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)
	game := loadGame(t, store, gameID)

	var roomCard Card
	for _, card := range game.User.Hand {
		if card.Kind == protocol.CardKindRoom {
			roomCard = card
			break
		}
	}
	if roomCard.ID == "" {
		t.Fatal("opening hand holds no room card")
	}

	_, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.PlayCard{Card: roomCard.ID, Kind: protocol.CardKindRoom})
	if !errors.Is(err, ErrRoomTargetRequired) {
		t.Fatalf("play without target error = %v, want %v", err, ErrRoomTargetRequired)
	}

	target := protocol.RoomVault
	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.PlayCard{Card: roomCard.ID, Kind: protocol.CardKindRoom, Target: &target})
	if err != nil {
		t.Fatalf("play with target: %v", err)
	}
	update := userState(t, batch)
	if update.Mana != startingMana-roomCard.Cost {
		t.Fatalf("mana after play = %d, want %d", update.Mana, startingMana-roomCard.Cost)
	}

	game = loadGame(t, store, gameID)
	if room := game.room(protocol.RoomVault); len(room.Cards) != 1 || room.Cards[0].ID != roomCard.ID {
		t.Fatalf("vault cards = %#v, want the played card", room.Cards)
	}
	for _, card := range game.User.Hand {
		if card.ID == roomCard.ID {
			t.Fatal("played card still in hand")
		}
	}
}

func TestPlayCardInsufficientManaLeavesHandIntact(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	game := loadGame(t, store, gameID)
	game.User.Mana = 0
	if err := store.SaveGame(context.Background(), game); err != nil {
		t.Fatalf("save game: %v", err)
	}

	var costly Card
	for _, card := range game.User.Hand {
		if card.Cost > 0 && card.Kind == protocol.CardKindSpell {
			costly = card
			break
		}
	}
	if costly.ID == "" {
		t.Fatal("opening hand holds no costed spell")
	}

	_, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.PlayCard{Card: costly.ID, Kind: costly.Kind})
	if !errors.Is(err, ErrInsufficientMana) {
		t.Fatalf("play error = %v, want %v", err, ErrInsufficientMana)
	}
	var detail *platformerrors.Error
	if !errors.As(err, &detail) {
		t.Fatalf("play error = %v, want required mana attached", err)
	}
	if detail.Metadata["Need"] != strconv.Itoa(costly.Cost) {
		t.Fatalf("required mana = %q, want %d", detail.Metadata["Need"], costly.Cost)
	}
	after := loadGame(t, store, gameID)
	if len(after.User.Hand) != len(game.User.Hand) {
		t.Fatalf("hand size changed on failed play: %d, want %d", len(after.User.Hand), len(game.User.Hand))
	}
}

func TestLevelUpRoomCostsActionAndMana(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.LevelUpRoomAction{Room: protocol.RoomCrypt})
	if err != nil {
		t.Fatalf("level up room: %v", err)
	}
	update := userState(t, batch)
	if update.Mana != startingMana-levelUpManaCost || update.ActionPoints != startingActionPoints-1 {
		t.Fatalf("state after level up = %d mana %d points", update.Mana, update.ActionPoints)
	}
	var leveled bool
	for _, cmd := range batch.Commands {
		if level, ok := cmd.(protocol.LevelUpRoom); ok {
			if level.Room != protocol.RoomCrypt || level.NewLevel != 1 {
				t.Fatalf("level command = %#v", level)
			}
			leveled = true
		}
	}
	if !leveled {
		t.Fatal("batch has no LevelUpRoom command")
	}
	if room := loadGame(t, store, gameID).room(protocol.RoomCrypt); room.Level != 1 {
		t.Fatalf("stored room level = %d, want 1", room.Level)
	}
}

func TestInitiateRaidHandsPriorityToOpponent(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.InitiateRaidAction{Room: protocol.RoomVault})
	if err != nil {
		t.Fatalf("initiate raid: %v", err)
	}
	game := loadGame(t, store, gameID)
	if game.RaidRoom != protocol.RoomVault {
		t.Fatalf("raid room = %q, want vault", game.RaidRoom)
	}
	if game.Priority != protocol.PlayerNameOpponent {
		t.Fatalf("priority = %q, want opponent", game.Priority)
	}
	var raided, paneled bool
	for _, cmd := range batch.Commands {
		switch v := cmd.(type) {
		case protocol.InitiateRaid:
			if v.Room == protocol.RoomVault && v.Initiator == protocol.PlayerNameUser {
				raided = true
			}
		case protocol.RenderInterface:
			if v.Address == raidPanel && len(v.Node) > 0 {
				paneled = true
			}
		}
	}
	if !raided || !paneled {
		t.Fatalf("raid batch missing commands: raided=%v paneled=%v", raided, paneled)
	}

	// Gameplay is blocked while the raid is open.
	if _, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.GainMana{}); !errors.Is(err, ErrRaidInProgress) {
		t.Fatalf("gameplay during raid error = %v, want %v", err, ErrRaidInProgress)
	}
}

func raidPayload(t *testing.T, choice string) []byte {
	t.Helper()
	payload, err := json.Marshal(raidStep{Raid: choice})
	if err != nil {
		t.Fatalf("marshal raid payload: %v", err)
	}
	return payload
}

func TestContinuedRaidScoresRoomLevel(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	for i := 0; i < 2; i++ {
		if _, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.LevelUpRoomAction{Room: protocol.RoomVault}); err != nil {
			t.Fatalf("level up %d: %v", i, err)
		}
	}
	if _, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.InitiateRaidAction{Room: protocol.RoomVault}); err != nil {
		t.Fatalf("initiate raid: %v", err)
	}

	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.StandardAction{Payload: raidPayload(t, "continue")})
	if err != nil {
		t.Fatalf("continue raid: %v", err)
	}
	if update := userState(t, batch); update.Score != 2 {
		t.Fatalf("score after raid = %d, want 2", update.Score)
	}
	game := loadGame(t, store, gameID)
	if game.RaidRoom != "" || game.Priority != protocol.PlayerNameUser {
		t.Fatalf("raid not cleared: room=%q priority=%q", game.RaidRoom, game.Priority)
	}
}

func TestRetreatEndsRaidWithoutScoring(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)
	if _, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.InitiateRaidAction{Room: protocol.RoomSanctum}); err != nil {
		t.Fatalf("initiate raid: %v", err)
	}

	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.StandardAction{Payload: raidPayload(t, "retreat")})
	if err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if update := userState(t, batch); update.Score != 0 {
		t.Fatalf("score after retreat = %d, want 0", update.Score)
	}
	if game := loadGame(t, store, gameID); game.RaidRoom != "" {
		t.Fatalf("raid room = %q after retreat, want cleared", game.RaidRoom)
	}
}

func TestSpendingLastActionPointPassesTheTurn(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	var batch protocol.CommandBatch
	var err error
	for i := 0; i < startingActionPoints; i++ {
		batch, err = eng.PerformAction(context.Background(), gameID, "p1", protocol.GainMana{})
		if err != nil {
			t.Fatalf("gain mana %d: %v", i, err)
		}
	}

	var dusk, dawn bool
	for _, cmd := range batch.Commands {
		if msg, ok := cmd.(protocol.DisplayGameMessage); ok {
			switch msg.Message {
			case protocol.MessageDusk:
				dusk = true
			case protocol.MessageDawn:
				dawn = true
			}
		}
	}
	if !dusk || !dawn {
		t.Fatalf("turn rollover batch missing messages: dusk=%v dawn=%v", dusk, dawn)
	}

	game := loadGame(t, store, gameID)
	if game.Turn != 2 {
		t.Fatalf("turn = %d, want 2", game.Turn)
	}
	if game.User.ActionPoints != startingActionPoints {
		t.Fatalf("action points after rollover = %d, want %d", game.User.ActionPoints, startingActionPoints)
	}
}

func TestSyncRerendersStoredGame(t *testing.T) {
	eng, _ := newTestEngine(t)
	gameID := createGame(t, eng)

	if _, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.GainMana{}); err != nil {
		t.Fatalf("gain mana: %v", err)
	}
	batch, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.SyncAction{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	render, ok := batch.Commands[0].(protocol.RenderGame)
	if !ok {
		t.Fatalf("first sync command = %#v, want RenderGame", batch.Commands[0])
	}
	if render.Game.User.Mana != startingMana+1 {
		t.Fatalf("synced mana = %d, want %d", render.Game.User.Mana, startingMana+1)
	}
}

func TestActionsAgainstMissingGame(t *testing.T) {
	eng, _ := newTestEngine(t)
	if _, err := eng.PerformAction(context.Background(), "missing", "p1", protocol.GainMana{}); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrGameNotFound)
	}
	if _, err := eng.PerformAction(context.Background(), "missing", "p1", protocol.SyncAction{}); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("sync error = %v, want %v", err, ErrGameNotFound)
	}
}

func TestExhaustedActionPointsRejectGameplayMidTurn(t *testing.T) {
	eng, store := newTestEngine(t)
	gameID := createGame(t, eng)

	game := loadGame(t, store, gameID)
	game.User.ActionPoints = 0
	if err := store.SaveGame(context.Background(), game); err != nil {
		t.Fatalf("save game: %v", err)
	}
	if _, err := eng.PerformAction(context.Background(), gameID, "p1", protocol.DrawCard{}); !errors.Is(err, ErrNoActionPoints) {
		t.Fatalf("error = %v, want %v", err, ErrNoActionPoints)
	}
}

func TestFetchMenuPanel(t *testing.T) {
	eng, _ := newTestEngine(t)
	batch, err := eng.PerformAction(context.Background(), "", "p1", protocol.FetchPanel{Panel: menuPanel})
	if err != nil {
		t.Fatalf("fetch panel: %v", err)
	}
	render, ok := batch.Commands[0].(protocol.RenderInterface)
	if !ok || render.Address != menuPanel || len(render.Node) == 0 {
		t.Fatalf("panel command = %#v", batch.Commands[0])
	}
}
