// Package assets plans asset preloading for command batches and exposes the
// embedded manifest the client uses when synthesizing optimistic updates.
package assets

import "github.com/louisbranch/deepspire/internal/protocol"

// Collect walks a batch, including nested parallel groups, and returns the
// deduplicated asset references it mentions, in first-seen order. The result
// is handed to the visual applier's preload before the batch applies.
func Collect(batch protocol.CommandBatch) []protocol.AssetRef {
	seen := make(map[protocol.AssetRef]struct{})
	var refs []protocol.AssetRef
	add := func(ref protocol.AssetRef) {
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	var walk func(protocol.CommandBatch)
	walk = func(b protocol.CommandBatch) {
		for _, cmd := range b.Commands {
			switch v := cmd.(type) {
			case protocol.CreateOrUpdateCard:
				add(v.Card.Image)
			case protocol.FireProjectile:
				add(v.Projectile)
			case protocol.PlayEffect:
				add(v.Effect)
			case protocol.PlaySound:
				add(v.Sound)
			case protocol.SetMusic:
				add(v.Track)
			case protocol.DisplayRewards:
				for _, card := range v.Cards {
					add(card.Image)
				}
			case protocol.RunInParallel:
				for _, group := range v.Groups {
					walk(group)
				}
			}
		}
	}
	walk(batch)
	return refs
}
