package protocol

// GameID identifies one game on the engine. Empty means no active game.
type GameID string

// PlayerID identifies a player account.
type PlayerID string

// CardID identifies one card instance within a game.
type CardID string

// RoomID identifies a dungeon room position in the arena.
type RoomID string

// Standard room identifiers. Arbitrary outer rooms use their own ids.
const (
	RoomVault   RoomID = "vault"
	RoomSanctum RoomID = "sanctum"
	RoomCrypt   RoomID = "crypt"
)

// GameObjectID addresses a renderable object (card, deck, discard pile,
// identity) for movement and effect targeting.
type GameObjectID string

// CardObjectID returns the game object id addressing a card instance.
func CardObjectID(card CardID) GameObjectID {
	return GameObjectID("card:" + string(card))
}

// DeckObjectID returns the game object id addressing a player's deck.
func DeckObjectID(player PlayerName) GameObjectID {
	return GameObjectID("deck:" + string(player))
}

// AssetRef addresses a sprite, audio clip, or effect prefab. Resolution is
// the visual layer's concern; the pipeline only collects refs for preloading.
type AssetRef string

// PanelAddress identifies a server-rendered interface panel.
type PanelAddress string

// PlayerName designates a player relative to this client.
type PlayerName string

const (
	// PlayerNameNone means no player, e.g. nobody holds priority.
	PlayerNameNone PlayerName = ""
	// PlayerNameUser is the player driving this client.
	PlayerNameUser PlayerName = "user"
	// PlayerNameOpponent is the other player.
	PlayerNameOpponent PlayerName = "opponent"
)

// Opponent returns the other player designation, or none for none.
func (p PlayerName) Opponent() PlayerName {
	switch p {
	case PlayerNameUser:
		return PlayerNameOpponent
	case PlayerNameOpponent:
		return PlayerNameUser
	default:
		return PlayerNameNone
	}
}

// Zone names a region of the play area an object can occupy.
type Zone string

const (
	// ZoneHand is a player's hand.
	ZoneHand Zone = "hand"
	// ZoneDeck is a player's deck.
	ZoneDeck Zone = "deck"
	// ZoneArena is the shared play area outside any room.
	ZoneArena Zone = "arena"
	// ZoneRoom is inside a specific dungeon room.
	ZoneRoom Zone = "room"
	// ZoneDiscard is a player's discard pile.
	ZoneDiscard Zone = "discard"
	// ZoneStaging is the reveal area for cards being played.
	ZoneStaging Zone = "staging"
)

// ObjectPosition places a game object in a zone, optionally inside a room,
// with a sorting index among its siblings.
type ObjectPosition struct {
	Zone  Zone       `json:"zone"`
	Owner PlayerName `json:"owner,omitempty"`
	Room  RoomID     `json:"room,omitempty"`
	Index int        `json:"index,omitempty"`
}
