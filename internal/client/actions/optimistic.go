package actions

import (
	"github.com/louisbranch/deepspire/internal/client/session"
	"github.com/louisbranch/deepspire/internal/protocol"
)

// optimisticUpdate builds the local best-guess batch submitted before the
// engine round trip. Predictions only use absolute state sets so the
// authoritative batch supersedes them cleanly; nothing here is rolled back.
func (d *Dispatcher) optimisticUpdate(action protocol.GameAction, snap session.Snapshot) protocol.CommandBatch {
	switch v := action.(type) {
	case protocol.StandardAction:
		if v.Update != nil {
			return *v.Update
		}
		return protocol.CommandBatch{}
	case protocol.DrawCard:
		return protocol.CommandBatch{Commands: []protocol.Command{
			userState(snap, 0, -1),
			protocol.PlaySound{Sound: d.assets.Sound("draw_card")},
		}}
	case protocol.PlayCard:
		position := protocol.ObjectPosition{Zone: protocol.ZoneStaging}
		if v.Target != nil {
			position = protocol.ObjectPosition{Zone: protocol.ZoneRoom, Room: *v.Target}
		}
		return protocol.CommandBatch{Commands: []protocol.Command{
			userState(snap, 0, -1),
			protocol.MoveGameObjects{
				IDs:      []protocol.GameObjectID{protocol.CardObjectID(v.Card)},
				Position: position,
			},
			protocol.PlaySound{Sound: d.assets.Sound("play_card")},
		}}
	case protocol.GainMana:
		return protocol.CommandBatch{Commands: []protocol.Command{
			userState(snap, 1, -1),
			protocol.PlaySound{Sound: d.assets.Sound("gain_mana")},
		}}
	case protocol.LevelUpRoomAction:
		return protocol.CommandBatch{Commands: []protocol.Command{
			userState(snap, -1, -1),
			protocol.PlayEffect{Effect: d.assets.Effect("level_up_room")},
			protocol.PlaySound{Sound: d.assets.Sound("level_up_room")},
		}}
	case protocol.InitiateRaidAction:
		return protocol.CommandBatch{Commands: []protocol.Command{
			userState(snap, 0, -1),
			protocol.InitiateRaid{Room: v.Room, Initiator: protocol.PlayerNameUser},
			protocol.SetMusic{Track: d.assets.MusicTrack("raid")},
		}}
	case protocol.FetchPanel, protocol.CreateNewGame, protocol.SyncAction:
		// Nothing sensible to predict; the response renders everything.
		return protocol.CommandBatch{}
	default:
		return protocol.CommandBatch{}
	}
}

// userState predicts the user's resources after spending, as an absolute set.
func userState(snap session.Snapshot, manaDelta, actionDelta int) protocol.UpdatePlayerState {
	mana := snap.User.Mana + manaDelta
	if mana < 0 {
		mana = 0
	}
	points := snap.User.ActionPoints + actionDelta
	if points < 0 {
		points = 0
	}
	return protocol.UpdatePlayerState{
		Player:       protocol.PlayerNameUser,
		Mana:         mana,
		ActionPoints: points,
		Score:        snap.User.Score,
	}
}
