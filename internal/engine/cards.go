package engine

import (
	"fmt"

	"github.com/louisbranch/deepspire/internal/protocol"
)

// CardSpec is the static definition of a card the starter deck can contain.
type CardSpec struct {
	Name  string
	Kind  protocol.CardKind
	Cost  int
	Image protocol.AssetRef
}

var cardSpecs = map[string]CardSpec{
	"gold_mine":       {Name: "Gold Mine", Kind: protocol.CardKindRoom, Cost: 2, Image: "cards/gold_mine"},
	"sealed_archive":  {Name: "Sealed Archive", Kind: protocol.CardKindRoom, Cost: 3, Image: "cards/sealed_archive"},
	"gemcarver":       {Name: "Gemcarver", Kind: protocol.CardKindRoom, Cost: 1, Image: "cards/gemcarver"},
	"arcane_recovery": {Name: "Arcane Recovery", Kind: protocol.CardKindSpell, Cost: 1, Image: "cards/arcane_recovery"},
	"contemplate":     {Name: "Contemplate", Kind: protocol.CardKindSpell, Cost: 0, Image: "cards/contemplate"},
	"sift_the_sands":  {Name: "Sift the Sands", Kind: protocol.CardKindSpell, Cost: 2, Image: "cards/sift_the_sands"},
}

// starterDeck lists card spec names in deck order, top of deck first. The
// deck is deliberately deterministic; shuffling is the server's concern and
// the offline engine does not pretend otherwise.
var starterDeck = []string{
	"contemplate",
	"gold_mine",
	"arcane_recovery",
	"gemcarver",
	"sift_the_sands",
	"sealed_archive",
	"contemplate",
	"gold_mine",
	"arcane_recovery",
	"gemcarver",
	"sift_the_sands",
	"sealed_archive",
}

// buildDeck instantiates the starter deck for one player. Card ids embed the
// game id so two games never share card identifiers.
func buildDeck(gameID protocol.GameID, owner protocol.PlayerName) []Card {
	deck := make([]Card, 0, len(starterDeck))
	for i, name := range starterDeck {
		spec := cardSpecs[name]
		deck = append(deck, Card{
			ID:    protocol.CardID(fmt.Sprintf("%s-%s-%d", gameID, owner, i)),
			Name:  spec.Name,
			Kind:  spec.Kind,
			Cost:  spec.Cost,
			Image: spec.Image,
		})
	}
	return deck
}
