// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Game lookup errors
	CodeGameNotFound Code = "GAME_NOT_FOUND"

	// Action validation errors
	CodeRoomTargetRequired Code = "ROOM_TARGET_REQUIRED"
	CodeRoomNotFound       Code = "ROOM_NOT_FOUND"
	CodeCardNotInHand      Code = "CARD_NOT_IN_HAND"
	CodeUnknownAction      Code = "UNKNOWN_ACTION"

	// Resource errors
	CodeNoActionPoints    Code = "NO_ACTION_POINTS"
	CodeInsufficientMana  Code = "INSUFFICIENT_MANA"
	CodeEmptyDeck         Code = "EMPTY_DECK"

	// Turn and raid state errors
	CodeNotYourTurn    Code = "NOT_YOUR_TURN"
	CodeRaidInProgress Code = "RAID_IN_PROGRESS"
	CodeNoRaid         Code = "NO_RAID"

	// Client-side gating errors
	CodeNotPermitted      Code = "NOT_PERMITTED"
	CodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes for the wire transport.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeGameNotFound, CodeRoomNotFound, CodeCardNotInHand:
		return http.StatusNotFound
	case CodeRoomTargetRequired, CodeUnknownAction:
		return http.StatusBadRequest
	case CodeNoActionPoints, CodeInsufficientMana, CodeEmptyDeck,
		CodeNotYourTurn, CodeRaidInProgress, CodeNoRaid, CodeNotPermitted:
		return http.StatusUnprocessableEntity
	case CodeEngineUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
