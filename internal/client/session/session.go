// Package session holds the client's view of the current game session: which
// game is active, who may act, and the interface state the action gate reads.
//
// The command queue is the sole writer of game-derived fields; it mutates
// them while applying batches. The input layer owns the interface fields.
// Everyone else reads through Snapshot. The struct carries its own mutex
// because gating reads happen on a different goroutine than queue writes.
package session

import (
	"sync"

	"github.com/louisbranch/deepspire/internal/protocol"
)

// InterfaceState captures the local-only UI conditions that gate actions.
type InterfaceState struct {
	// PanelOpen reports a modal panel is open.
	PanelOpen bool
	// OverlayOpen reports a raid, interface, or long-press overlay is open.
	OverlayOpen bool
	// Dragging reports the user is mid-drag.
	Dragging bool
}

// Snapshot is one consistent view of session state.
type Snapshot struct {
	// GameID is the current game, empty when no game is active.
	GameID protocol.GameID
	// PlayerID identifies the player driving this client.
	PlayerID protocol.PlayerID
	// Priority designates which player may currently act.
	Priority protocol.PlayerName
	// Offline reports the session runs against the in-process engine.
	Offline bool
	// RaidActive reports a raid is in progress.
	RaidActive bool
	// User and Opponent carry the last rendered resource state.
	User     protocol.PlayerView
	Opponent protocol.PlayerView
	// Interface carries the local-only UI conditions.
	Interface InterfaceState
}

// HasGame reports whether a game is active.
func (s Snapshot) HasGame() bool {
	return s.GameID != ""
}

// State is the shared mutable session record.
type State struct {
	mu   sync.Mutex
	snap Snapshot
}

// New creates session state for a player, optionally starting offline.
func New(playerID protocol.PlayerID, offline bool) *State {
	return &State{snap: Snapshot{PlayerID: playerID, Offline: offline}}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Update applies fn to the state under the lock. Reserved for the command
// queue and for explicit connect/initialize calls.
func (s *State) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}

// SetInterface replaces the interface state. Called by the input layer.
func (s *State) SetInterface(ui InterfaceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Interface = ui
}

// SetOffline flips the offline flag, e.g. after a permanent transport loss.
func (s *State) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Offline = offline
}
