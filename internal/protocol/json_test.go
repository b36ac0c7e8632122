package protocol

import (
	"encoding/json"
	"testing"
)

func TestCommandBatchRoundTripPreservesOrderAndNesting(t *testing.T) {
	target := RoomVault
	batch := CommandBatch{Commands: []Command{
		RenderGame{Game: GameView{
			GameID:   GameID("game-1"),
			User:     PlayerView{ID: "p1", Mana: 5, ActionPoints: 3},
			Opponent: PlayerView{ID: "p2", Mana: 2, ActionPoints: 0},
			Priority: PlayerNameUser,
		}},
		RunInParallel{Groups: []CommandBatch{
			{Commands: []Command{
				MoveGameObjects{IDs: []GameObjectID{"card:1"}, Position: ObjectPosition{Zone: ZoneRoom, Room: target}},
				PlaySound{Sound: "audio/place_card"},
			}},
			{Commands: []Command{
				Delay{DurationMillis: 300},
			}},
		}},
		UpdatePlayerState{Player: PlayerNameUser, Mana: 4, ActionPoints: 2},
	}}

	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}

	var decoded CommandBatch
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal batch: %v", err)
	}
	if len(decoded.Commands) != 3 {
		t.Fatalf("decoded commands = %d, want 3", len(decoded.Commands))
	}

	render, ok := decoded.Commands[0].(RenderGame)
	if !ok {
		t.Fatalf("command 0 = %T, want RenderGame", decoded.Commands[0])
	}
	if render.Game.GameID != "game-1" || render.Game.Priority != PlayerNameUser {
		t.Fatalf("render game = %+v", render.Game)
	}

	parallel, ok := decoded.Commands[1].(RunInParallel)
	if !ok {
		t.Fatalf("command 1 = %T, want RunInParallel", decoded.Commands[1])
	}
	if len(parallel.Groups) != 2 {
		t.Fatalf("parallel groups = %d, want 2", len(parallel.Groups))
	}
	move, ok := parallel.Groups[0].Commands[0].(MoveGameObjects)
	if !ok {
		t.Fatalf("group 0 command 0 = %T, want MoveGameObjects", parallel.Groups[0].Commands[0])
	}
	if move.Position.Room != target {
		t.Fatalf("move room = %s, want %s", move.Position.Room, target)
	}

	update, ok := decoded.Commands[2].(UpdatePlayerState)
	if !ok {
		t.Fatalf("command 2 = %T, want UpdatePlayerState", decoded.Commands[2])
	}
	if update.Mana != 4 || update.ActionPoints != 2 {
		t.Fatalf("update = %+v", update)
	}
}

func TestUnknownCommandTagSurvivesDecodeAndReencode(t *testing.T) {
	wire := `{"commands":[{"type":"future_command","payload":{"x":1}},{"type":"delay","payload":{"duration_millis":50}}]}`

	var batch CommandBatch
	if err := json.Unmarshal([]byte(wire), &batch); err != nil {
		t.Fatalf("unmarshal batch: %v", err)
	}
	if len(batch.Commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(batch.Commands))
	}
	unknown, ok := batch.Commands[0].(UnknownCommand)
	if !ok {
		t.Fatalf("command 0 = %T, want UnknownCommand", batch.Commands[0])
	}
	if unknown.Tag != "future_command" {
		t.Fatalf("unknown tag = %q, want %q", unknown.Tag, "future_command")
	}

	reencoded, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("re-marshal batch: %v", err)
	}
	var again CommandBatch
	if err := json.Unmarshal(reencoded, &again); err != nil {
		t.Fatalf("unmarshal re-encoded batch: %v", err)
	}
	if got, ok := again.Commands[0].(UnknownCommand); !ok || got.Tag != "future_command" {
		t.Fatalf("re-decoded command 0 = %#v", again.Commands[0])
	}
}

func TestActionRoundTrip(t *testing.T) {
	target := RoomSanctum
	cases := []struct {
		name   string
		action GameAction
	}{
		{"draw_card", DrawCard{}},
		{"gain_mana", GainMana{}},
		{"play_card_with_target", PlayCard{Card: "card-9", Target: &target}},
		{"play_card_without_target", PlayCard{Card: "card-9"}},
		{"level_up_room", LevelUpRoomAction{Room: RoomCrypt}},
		{"initiate_raid", InitiateRaidAction{Room: RoomVault}},
		{"fetch_panel", FetchPanel{Panel: "panel/settings"}},
		{"create_new_game", CreateNewGame{Opponent: "p2", Offline: true}},
		{"sync", SyncAction{}},
		{"standard_action", StandardAction{Payload: []byte(`{"button":"end_turn"}`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := MarshalAction(tc.action)
			if err != nil {
				t.Fatalf("marshal action: %v", err)
			}
			decoded, err := UnmarshalAction(data)
			if err != nil {
				t.Fatalf("unmarshal action: %v", err)
			}
			if KindOf(decoded) != KindOf(tc.action) {
				t.Fatalf("decoded kind = %s, want %s", KindOf(decoded), KindOf(tc.action))
			}
		})
	}

	if _, err := UnmarshalAction([]byte(`{"type":"not_an_action"}`)); err == nil {
		t.Fatal("expected error for unknown action tag")
	}
}

func TestVisibleClassification(t *testing.T) {
	visible := []Command{
		MoveGameObjects{}, FireProjectile{}, PlayEffect{}, Delay{},
		DisplayGameMessage{}, DisplayRewards{}, CreateOrUpdateCard{},
		RenderInterface{}, RenderGame{}, InitiateRaid{}, EndRaid{},
		LevelUpRoom{},
	}
	for _, cmd := range visible {
		if !Visible(cmd) {
			t.Fatalf("Visible(%T) = false, want true", cmd)
		}
	}
	hidden := []Command{
		PlaySound{}, SetMusic{}, DebugLog{}, SetGameObjectsEnabled{},
		UpdatePlayerState{}, UnknownCommand{},
	}
	for _, cmd := range hidden {
		if Visible(cmd) {
			t.Fatalf("Visible(%T) = true, want false", cmd)
		}
	}
}

func TestPlayerNameOpponent(t *testing.T) {
	if PlayerNameUser.Opponent() != PlayerNameOpponent {
		t.Fatal("user opponent should be opponent")
	}
	if PlayerNameOpponent.Opponent() != PlayerNameUser {
		t.Fatal("opponent opponent should be user")
	}
	if PlayerNameNone.Opponent() != PlayerNameNone {
		t.Fatal("none opponent should be none")
	}
}
