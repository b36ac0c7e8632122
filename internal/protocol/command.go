package protocol

import "encoding/json"

// Command is one engine-issued instruction the client applies against its
// session state and the visual layer. Implementations are the only variants.
type Command interface {
	isCommand()
}

// CommandBatch is an ordered list of commands. Commands apply strictly in
// list order except inside RunInParallel groups.
type CommandBatch struct {
	Commands []Command
}

// Empty reports whether the batch contains no commands.
func (b CommandBatch) Empty() bool {
	return len(b.Commands) == 0
}

// CardView is the renderable description of one card.
type CardView struct {
	ID       CardID     `json:"id"`
	Title    string     `json:"title,omitempty"`
	ManaCost int        `json:"mana_cost,omitempty"`
	Owner    PlayerName `json:"owner,omitempty"`
	Revealed bool       `json:"revealed,omitempty"`
	Image    AssetRef   `json:"image,omitempty"`
}

// PlayerView is the renderable resource state of one player. Values are
// absolute, not deltas.
type PlayerView struct {
	ID           PlayerID `json:"id"`
	Mana         int      `json:"mana"`
	ActionPoints int      `json:"action_points"`
	Score        int      `json:"score"`
}

// GameView is the full renderable game description sent on connect, sync,
// and new game.
type GameView struct {
	GameID     GameID     `json:"game_id"`
	User       PlayerView `json:"user"`
	Opponent   PlayerView `json:"opponent"`
	Priority   PlayerName `json:"priority,omitempty"`
	RaidActive bool       `json:"raid_active,omitempty"`
}

// GameMessageKind names a full-screen game message.
type GameMessageKind string

const (
	// MessageDawn announces the start of the user's turn.
	MessageDawn GameMessageKind = "dawn"
	// MessageDusk announces the start of the opponent's turn.
	MessageDusk GameMessageKind = "dusk"
	// MessageVictory announces the user won.
	MessageVictory GameMessageKind = "victory"
	// MessageDefeat announces the user lost.
	MessageDefeat GameMessageKind = "defeat"
)

// CreateOrUpdateCard creates a card object or updates it in place.
type CreateOrUpdateCard struct {
	Card     CardView       `json:"card"`
	Position ObjectPosition `json:"position"`
}

// MoveGameObjects animates objects to a new position.
type MoveGameObjects struct {
	IDs              []GameObjectID `json:"ids"`
	Position         ObjectPosition `json:"position"`
	DisableAnimation bool           `json:"disable_animation,omitempty"`
}

// FireProjectile fires a projectile effect between two objects.
type FireProjectile struct {
	Source       GameObjectID `json:"source"`
	Target       GameObjectID `json:"target"`
	Projectile   AssetRef     `json:"projectile"`
	TravelMillis int64        `json:"travel_millis,omitempty"`
}

// PlayEffect plays a timed visual effect on a target object.
type PlayEffect struct {
	Effect         AssetRef     `json:"effect"`
	Target         GameObjectID `json:"target,omitempty"`
	DurationMillis int64        `json:"duration_millis,omitempty"`
}

// PlaySound plays a one-shot sound. Fire and forget.
type PlaySound struct {
	Sound AssetRef `json:"sound"`
}

// SetMusic switches the background music track. Fire and forget.
type SetMusic struct {
	Track AssetRef `json:"track"`
}

// RenderInterface replaces or opens an interface panel. The node contents
// are the UI layer's concern and pass through opaquely.
type RenderInterface struct {
	Address PanelAddress    `json:"address"`
	Node    json.RawMessage `json:"node,omitempty"`
}

// DisplayGameMessage shows a full-screen game message and waits for its
// animation.
type DisplayGameMessage struct {
	Message GameMessageKind `json:"message"`
}

// Delay pauses the sequence for a fixed duration.
type Delay struct {
	DurationMillis int64 `json:"duration_millis"`
}

// RunInParallel applies each group as an independent ordered sequence. The
// command completes only once every group has completed.
type RunInParallel struct {
	Groups []CommandBatch `json:"groups"`
}

// DebugLog records a diagnostic message from the engine.
type DebugLog struct {
	Message string `json:"message"`
}

// RenderGame replaces the full game view, including the current game id and
// priority holder.
type RenderGame struct {
	Game GameView `json:"game"`
}

// InitiateRaid marks a raid as active on a room and plays its overlay.
type InitiateRaid struct {
	Room      RoomID     `json:"room"`
	Initiator PlayerName `json:"initiator,omitempty"`
}

// EndRaid clears the active raid.
type EndRaid struct {
	Room RoomID `json:"room,omitempty"`
}

// LevelUpRoom raises a room's level and plays its animation.
type LevelUpRoom struct {
	Room     RoomID `json:"room"`
	NewLevel int    `json:"new_level"`
}

// SetGameObjectsEnabled toggles interactivity on objects. Fire and forget.
type SetGameObjectsEnabled struct {
	IDs     []GameObjectID `json:"ids"`
	Enabled bool           `json:"enabled"`
}

// DisplayRewards shows the end-of-raid reward browser.
type DisplayRewards struct {
	Cards []CardView `json:"cards"`
}

// UpdatePlayerState sets a player's resources to absolute values. Fire and
// forget; re-applying it is idempotent by construction.
type UpdatePlayerState struct {
	Player       PlayerName `json:"player"`
	Mana         int        `json:"mana"`
	ActionPoints int        `json:"action_points"`
	Score        int        `json:"score"`
}

// UnknownCommand preserves a command tag this build does not recognize so
// the queue can log and skip it instead of failing the batch.
type UnknownCommand struct {
	Tag     string
	Payload json.RawMessage
}

func (CreateOrUpdateCard) isCommand()    {}
func (MoveGameObjects) isCommand()       {}
func (FireProjectile) isCommand()        {}
func (PlayEffect) isCommand()            {}
func (PlaySound) isCommand()             {}
func (SetMusic) isCommand()              {}
func (RenderInterface) isCommand()       {}
func (DisplayGameMessage) isCommand()    {}
func (Delay) isCommand()                 {}
func (RunInParallel) isCommand()         {}
func (DebugLog) isCommand()              {}
func (RenderGame) isCommand()            {}
func (InitiateRaid) isCommand()          {}
func (EndRaid) isCommand()               {}
func (LevelUpRoom) isCommand()           {}
func (SetGameObjectsEnabled) isCommand() {}
func (DisplayRewards) isCommand()        {}
func (UpdatePlayerState) isCommand()     {}
func (UnknownCommand) isCommand()        {}

// Visible reports whether a command produces a visible effect the queue must
// await before advancing the sequence. Non-visible commands never block.
func Visible(cmd Command) bool {
	switch cmd.(type) {
	case CreateOrUpdateCard, MoveGameObjects, FireProjectile, PlayEffect,
		RenderInterface, DisplayGameMessage, Delay, RenderGame,
		InitiateRaid, EndRaid, LevelUpRoom, DisplayRewards:
		return true
	case PlaySound, SetMusic, DebugLog, SetGameObjectsEnabled,
		UpdatePlayerState, RunInParallel, UnknownCommand:
		return false
	default:
		return false
	}
}
