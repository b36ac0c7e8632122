package protocol

// GameAction is one user-initiated request to the rules engine.
// Implementations are the only variants. Actions are immutable once built.
type GameAction interface {
	isGameAction()
}

// StandardAction is a UI-driven action whose legality the engine encoded into
// the interface it rendered. It may carry a pre-approved update batch to
// apply immediately; when Payload is empty the update is the final result and
// no round trip happens.
type StandardAction struct {
	Payload []byte        `json:"payload,omitempty"`
	Update  *CommandBatch `json:"-"`
}

// DrawCard draws a card from the user's deck.
type DrawCard struct{}

// CardKind distinguishes cards whose release position requires a room from
// cards played into the arena.
type CardKind string

const (
	// CardKindRoom is a card that must be played into a room.
	CardKindRoom CardKind = "room"
	// CardKindSpell is a card played without a room target.
	CardKindSpell CardKind = "spell"
)

// PlayCard plays a card from the user's hand. Room cards require a target.
type PlayCard struct {
	Card   CardID   `json:"card"`
	Kind   CardKind `json:"kind,omitempty"`
	Target *RoomID  `json:"target,omitempty"`
}

// GainMana spends one action point to gain one mana.
type GainMana struct{}

// LevelUpRoomAction spends resources to level up a room.
type LevelUpRoomAction struct {
	Room RoomID `json:"room"`
}

// InitiateRaidAction begins a raid on a room.
type InitiateRaidAction struct {
	Room RoomID `json:"room"`
}

// FetchPanel requests the contents of an interface panel.
type FetchPanel struct {
	Panel PanelAddress `json:"panel"`
}

// CreateNewGame starts a new game against an opponent.
type CreateNewGame struct {
	Opponent PlayerID `json:"opponent,omitempty"`
	Offline  bool     `json:"offline,omitempty"`
}

// SyncAction asks the engine to re-render the current game state.
type SyncAction struct{}

func (StandardAction) isGameAction()     {}
func (DrawCard) isGameAction()           {}
func (PlayCard) isGameAction()           {}
func (GainMana) isGameAction()           {}
func (LevelUpRoomAction) isGameAction()  {}
func (InitiateRaidAction) isGameAction() {}
func (FetchPanel) isGameAction()         {}
func (CreateNewGame) isGameAction()      {}
func (SyncAction) isGameAction()         {}

// ActionKind names a GameAction variant for gating and telemetry.
type ActionKind string

const (
	// KindStandardAction is the kind of StandardAction.
	KindStandardAction ActionKind = "standard_action"
	// KindDrawCard is the kind of DrawCard.
	KindDrawCard ActionKind = "draw_card"
	// KindPlayCard is the kind of PlayCard.
	KindPlayCard ActionKind = "play_card"
	// KindGainMana is the kind of GainMana.
	KindGainMana ActionKind = "gain_mana"
	// KindLevelUpRoom is the kind of LevelUpRoomAction.
	KindLevelUpRoom ActionKind = "level_up_room"
	// KindInitiateRaid is the kind of InitiateRaidAction.
	KindInitiateRaid ActionKind = "initiate_raid"
	// KindFetchPanel is the kind of FetchPanel.
	KindFetchPanel ActionKind = "fetch_panel"
	// KindCreateNewGame is the kind of CreateNewGame.
	KindCreateNewGame ActionKind = "create_new_game"
	// KindSyncAction is the kind of SyncAction.
	KindSyncAction ActionKind = "sync_action"
)

// KindOf returns the ActionKind for an action.
func KindOf(action GameAction) ActionKind {
	switch action.(type) {
	case StandardAction:
		return KindStandardAction
	case DrawCard:
		return KindDrawCard
	case PlayCard:
		return KindPlayCard
	case GainMana:
		return KindGainMana
	case LevelUpRoomAction:
		return KindLevelUpRoom
	case InitiateRaidAction:
		return KindInitiateRaid
	case FetchPanel:
		return KindFetchPanel
	case CreateNewGame:
		return KindCreateNewGame
	case SyncAction:
		return KindSyncAction
	default:
		return ""
	}
}
