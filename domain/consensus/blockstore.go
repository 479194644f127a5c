package consensus

import (
	"sync"

	"github.com/daglabs/nanocoin/domain/consensus/model/externalapi"
	"github.com/daglabs/nanocoin/domain/consensus/params"
	"github.com/daglabs/nanocoin/logger"
	"github.com/pkg/errors"
)

var log, _ = logger.Get(logger.SubsystemTags.CONS)

// BlockStore is a fork-aware set of known blocks, each annotated with its
// height and a full UTXO snapshot. It never forgets a block once accepted,
// and can hold any number of competing chains simultaneously.
type BlockStore struct {
	params params.Params

	mu        sync.RWMutex
	blocks    map[externalapi.DomainHash]*externalapi.DomainBlock
	heights   map[externalapi.DomainHash]uint64
	snapshots map[externalapi.DomainHash]UTXOSet
}

// NewBlockStore returns a store seeded only with the genesis sentinel: it
// has height 0 and an empty snapshot, and is not itself a resolvable block.
func NewBlockStore(p params.Params) *BlockStore {
	return &BlockStore{
		params:    p,
		blocks:    make(map[externalapi.DomainHash]*externalapi.DomainBlock),
		heights:   map[externalapi.DomainHash]uint64{params.GenesisPrev: 0},
		snapshots: map[externalapi.DomainHash]UTXOSet{params.GenesisPrev: NewEmptyUTXOSet()},
	}
}

// Has reports whether id is a known block (the genesis sentinel does not
// count as a known block).
func (s *BlockStore) Has(id externalapi.DomainHash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[id]
	return ok
}

// Put validates block against the snapshot of its claimed parent -- which
// must already be known, either the genesis sentinel or a previously
// stored id -- and, if valid, records the block, its height and its new
// snapshot. Rejection is silent: Put returns false and the store is left
// completely unchanged.
func (s *BlockStore) Put(block *externalapi.DomainBlock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentID := block.PrevBlockID()
	parentUTXO, ok := s.snapshots[parentID]
	if !ok {
		log.Debugf("rejecting block with unknown parent %s", parentID)
		return false
	}

	blockID := block.ID()
	if _, exists := s.blocks[blockID]; exists {
		// Already known: a no-op put, consistent with the fast path
		// relied on by the gossip re-entrancy argument.
		return true
	}

	childUTXO, err := ValidateBlock(block, parentUTXO, s.params)
	if err != nil {
		log.Infof("rejecting block %s: %s", blockID, err)
		return false
	}

	height := s.heights[parentID] + 1
	s.blocks[blockID] = block
	s.heights[blockID] = height
	s.snapshots[blockID] = childUTXO

	log.Infof("accepted block %s at height %d", blockID, height)
	return true
}

// Get returns the stored block for id. It fails if id is unknown or is the
// genesis sentinel, which is not itself a block.
func (s *BlockStore) Get(id externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == params.GenesisPrev {
		return nil, errors.New("genesis placeholder has no block")
	}
	block, ok := s.blocks[id]
	if !ok {
		return nil, errors.Errorf("block %s not found", id)
	}
	return block, nil
}

// Snapshot returns the UTXO snapshot associated with id, which may be the
// genesis sentinel or any known block id.
func (s *BlockStore) Snapshot(id externalapi.DomainHash) (UTXOSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return nil, errors.Errorf("no snapshot for unknown id %s", id)
	}
	return snapshot, nil
}

// Height returns the height associated with id, which may be the genesis
// sentinel (height 0) or any known block id.
func (s *BlockStore) Height(id externalapi.DomainHash) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	height, ok := s.heights[id]
	if !ok {
		return 0, errors.Errorf("no height for unknown id %s", id)
	}
	return height, nil
}

// heightIndex returns a defensive copy of the full id-to-height index, used
// by the chain selector's best-tip scan.
func (s *BlockStore) heightIndex() map[externalapi.DomainHash]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[externalapi.DomainHash]uint64, len(s.heights))
	for id, height := range s.heights {
		index[id] = height
	}
	return index
}
