// Package protocol defines the data model shared by the command queue, the
// action dispatcher, and the rules engine transports: game actions issued by
// the user, command batches issued by the engine, and the identifiers both
// sides agree on.
//
// Command and GameAction are closed unions. Every variant is a struct with an
// unexported marker method, and the helpers in this package switch over every
// variant so a new one cannot be added without revisiting each switch.
//
// Authoritative batches follow a corrective contract: any value an optimistic
// prediction may have touched (mana, action points, score) is re-issued as an
// absolute set (UpdatePlayerState, RenderGame), never as a delta. The client
// never rolls an optimistic update back; it relies on this contract instead.
package protocol
