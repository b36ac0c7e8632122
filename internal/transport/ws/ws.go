// Package ws carries action requests and command batches between a client
// and an engine over HTTP and websocket.
//
// Actions travel as a POST round trip; the response body is the
// authoritative command batch. Engine-initiated batches for the same game
// travel over a websocket stream as one JSON frame per batch.
package ws

import (
	"encoding/json"

	"github.com/louisbranch/deepspire/internal/protocol"
)

// actionRequest is the POST body of one action round trip.
type actionRequest struct {
	PlayerID protocol.PlayerID `json:"player_id"`
	Action   json.RawMessage   `json:"action"`
}

// errorResponse is the body of a failed action round trip. Error carries the
// internal reason; Message is localized for display.
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
