package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeRoomTargetRequired = "ROOM_TARGET_REQUIRED"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeCardNotInHand      = "CARD_NOT_IN_HAND"
	CodeUnknownAction      = "UNKNOWN_ACTION"
	CodeNoActionPoints     = "NO_ACTION_POINTS"
	CodeInsufficientMana   = "INSUFFICIENT_MANA"
	CodeEmptyDeck          = "EMPTY_DECK"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeRaidInProgress     = "RAID_IN_PROGRESS"
	CodeNoRaid             = "NO_RAID"
	CodeNotPermitted       = "NOT_PERMITTED"
	CodeEngineUnavailable  = "ENGINE_UNAVAILABLE"
)
