package consensus

import "github.com/daglabs/nanocoin/domain/consensus/model/externalapi"

// ChainSelector picks the current tip of a BlockStore as the highest-height
// known block, breaking ties in favour of the incumbent tip. Tie-stickiness
// prevents oscillation when peers alternately announce same-height
// competitors and keeps tip selection deterministic.
type ChainSelector struct {
	store *BlockStore
}

// NewChainSelector returns a selector operating over store.
func NewChainSelector(store *BlockStore) *ChainSelector {
	return &ChainSelector{store: store}
}

// SelectTip scans the store's height index and returns the id of the
// highest block, keeping currentTip on ties. The second return value
// reports whether the tip actually changed.
//
// This is an O(blocks) scan over the whole height index, as spec.md's open
// question on the original's notify_of_block path calls out; a production
// design would maintain a sorted index or heap keyed by height instead.
func (c *ChainSelector) SelectTip(currentTip externalapi.DomainHash) (externalapi.DomainHash, bool) {
	index := c.store.heightIndex()

	bestID := currentTip
	bestHeight := index[currentTip]

	for id, height := range index {
		if height > bestHeight {
			bestHeight = height
			bestID = id
		}
	}

	return bestID, bestID != currentTip
}
