package consensus

import "github.com/daglabs/nanocoin/domain/consensus/model/externalapi"

// UTXOSet maps a txid to the transaction that produced it, for every coin
// currently spendable at some point in history. Snapshots are logically
// immutable: Clone returns an independent copy so mutating it never
// disturbs the snapshot it was cloned from.
type UTXOSet map[externalapi.DomainHash]*externalapi.DomainTransaction

// NewEmptyUTXOSet returns the empty snapshot associated with the genesis
// sentinel.
func NewEmptyUTXOSet() UTXOSet {
	return UTXOSet{}
}

// Clone returns an independent copy of the set, giving the caller
// copy-on-write semantics over the parent snapshot.
func (u UTXOSet) Clone() UTXOSet {
	clone := make(UTXOSet, len(u))
	for k, v := range u {
		clone[k] = v
	}
	return clone
}

// Get returns the transaction that produced txid, and whether it is
// present (unspent) in this set.
func (u UTXOSet) Get(txid externalapi.DomainHash) (*externalapi.DomainTransaction, bool) {
	tx, ok := u[txid]
	return tx, ok
}

// Transactions returns every unspent transaction in the set, in no
// particular order.
func (u UTXOSet) Transactions() []*externalapi.DomainTransaction {
	txs := make([]*externalapi.DomainTransaction, 0, len(u))
	for _, tx := range u {
		txs = append(txs, tx)
	}
	return txs
}
