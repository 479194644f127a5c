// Package mempool holds the transactions a node has admitted but not yet
// seen mined into a block, the way domain/mempool did for the teacher's
// DAG, trimmed to the single-coin, no-fee, no-orphan domain this node
// operates in: there are no priorities, no policy knobs and no orphan
// pool, because every input a node can be asked to spend already exists or
// doesn't.
package mempool

import (
	"sync"

	"github.com/daglabs/nanocoin/crypto"
	"github.com/daglabs/nanocoin/domain/consensus"
	"github.com/daglabs/nanocoin/domain/consensus/model/externalapi"
	"github.com/daglabs/nanocoin/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.POOL)

// Mempool is the ordered sequence of transactions awaiting inclusion, plus
// an index of the inputs they consume kept in sync so conflicts can be
// rejected in O(1). It is implicitly scoped to whatever UTXO snapshot it
// was last reconciled against.
type Mempool struct {
	mu      sync.Mutex
	entries []*externalapi.DomainTransaction
	inputs  map[externalapi.DomainHash]struct{}
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{
		inputs: make(map[externalapi.DomainHash]struct{}),
	}
}

// Admit validates tx against tipUTXO and, on success, appends it and
// records its input. It returns false without raising for every rejection
// reason in spec.md section 4.5: a coinbase, a duplicate, a conflicting
// input, a missing input, or a bad signature.
func (m *Mempool) Admit(tx *externalapi.DomainTransaction, tipUTXO consensus.UTXOSet) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	input, ok := tx.Input()
	if !ok {
		// Coinbase transactions are never admitted to the mempool.
		return false
	}

	for _, existing := range m.entries {
		if existing.Equal(tx) {
			return false
		}
	}

	if _, consumed := m.inputs[input]; consumed {
		return false
	}

	prevTx, exists := tipUTXO.Get(input)
	if !exists {
		return false
	}

	message := append(append([]byte{}, input[:]...), tx.Output()...)
	if !crypto.Verify(prevTx.Output(), message, tx.Signature()) {
		return false
	}

	m.entries = append(m.entries, tx)
	m.inputs[input] = struct{}{}
	log.Debugf("admitted transaction %s", tx.ID())
	return true
}

// Reconcile rebuilds the mempool from scratch against newTipUTXO: each
// existing entry is re-checked, in its original order, against the same
// rules Admit applies, and dropped if it now fails. This is required after
// a reorg, which may invalidate previously-valid entries (their input may
// no longer exist, or may now belong to a different, already-spent
// output's signer).
func (m *Mempool) Reconcile(newTipUTXO consensus.UTXOSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldEntries := m.entries
	m.entries = nil
	m.inputs = make(map[externalapi.DomainHash]struct{})

	dropped := 0
	for _, tx := range oldEntries {
		if m.admitLocked(tx, newTipUTXO) {
			continue
		}
		dropped++
	}

	if dropped > 0 {
		log.Infof("reconcile dropped %d transaction(s), %d remain", dropped, len(m.entries))
	}
}

// admitLocked is Admit's body without the duplicate-in-mempool check
// (meaningless during a from-scratch rebuild) or lock acquisition, used by
// Reconcile.
func (m *Mempool) admitLocked(tx *externalapi.DomainTransaction, tipUTXO consensus.UTXOSet) bool {
	input, ok := tx.Input()
	if !ok {
		return false
	}
	if _, consumed := m.inputs[input]; consumed {
		return false
	}
	prevTx, exists := tipUTXO.Get(input)
	if !exists {
		return false
	}
	message := append(append([]byte{}, input[:]...), tx.Output()...)
	if !crypto.Verify(prevTx.Output(), message, tx.Signature()) {
		return false
	}
	m.entries = append(m.entries, tx)
	m.inputs[input] = struct{}{}
	return true
}

// Remove drops tx (by field equality) from the mempool, if present, and
// frees its input for future spends. Used by mining once a transaction is
// included in a mined block.
func (m *Mempool) Remove(tx *externalapi.DomainTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.entries {
		if existing.Equal(tx) {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	if input, ok := tx.Input(); ok {
		delete(m.inputs, input)
	}
}

// Clear drops every pending transaction and its input index.
func (m *Mempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	m.inputs = make(map[externalapi.DomainHash]struct{})
}

// Entries returns a defensive copy of the pending transactions, in
// admission order.
func (m *Mempool) Entries() []*externalapi.DomainTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*externalapi.DomainTransaction, len(m.entries))
	copy(entries, m.entries)
	return entries
}

// HasInput reports whether input is already consumed by a pending entry.
func (m *Mempool) HasInput(input externalapi.DomainHash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.inputs[input]
	return ok
}
