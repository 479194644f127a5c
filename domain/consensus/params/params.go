// Package params holds the chain-wide parameters consulted by the
// validator, block store and mempool, the way dagconfig.Params does for
// the teacher's DAG. There is no flag parsing or file loading here --
// constructing a Params is the caller's responsibility.
package params

import "github.com/daglabs/nanocoin/domain/consensus/model/externalapi"

// GenesisPrev is the fixed sentinel that acts as the parent id of the
// first real block. It is not itself a block: resolving it with
// BlockStore.Get must fail.
var GenesisPrev = externalapi.DomainHash{}

// Params bundles the node-wide constants that gate block validity.
type Params struct {
	// BlockSize is the maximum number of transactions a block may carry,
	// including its single coinbase. Must be at least 2 so a block can
	// carry a non-coinbase spend.
	BlockSize int
}

// Mainnet are the default parameters used by a freshly constructed node.
var Mainnet = Params{
	BlockSize: 10,
}
