// Package node ties together the block store, mempool, chain selector and
// keypair into the public surface described by spec.md section 6: a
// single-threaded, cooperative peer that gossips blocks and transactions
// to directly-referenced peers (no real network transport -- spec.md
// section 1 places that out of scope).
package node

import (
	"bytes"
	"sort"
	"sync"

	"github.com/daglabs/nanocoin/crypto"
	"github.com/daglabs/nanocoin/domain/consensus"
	"github.com/daglabs/nanocoin/domain/consensus/model/externalapi"
	"github.com/daglabs/nanocoin/domain/consensus/params"
	"github.com/daglabs/nanocoin/domain/mempool"
	"github.com/daglabs/nanocoin/logger"
	"github.com/pkg/errors"
)

var (
	log, _     = logger.Get(logger.SubsystemTags.NODE)
	minrLog, _ = logger.Get(logger.SubsystemTags.MINR)
	gsspLog, _ = logger.Get(logger.SubsystemTags.GSSP)
)

// Node is a single logical peer: it owns its block store, mempool,
// keypair and peer set. Peers are referenced, not owned -- the peer set is
// a bidirectional relation re-established on every Connect. Unlike the
// reference-counted runtime the node subsystem was distilled from, Go's
// tracing garbage collector has no trouble with the resulting cycle of
// *Node pointers, so no handle/registry indirection is needed here.
type Node struct {
	params params.Params

	mu       sync.Mutex
	keyPair  *crypto.KeyPair
	store    *consensus.BlockStore
	selector *consensus.ChainSelector
	pool     *mempool.Mempool
	tip      externalapi.DomainHash
	peers    map[*Node]struct{}
}

// New creates a node with a fresh keypair, an empty mempool, and a block
// store containing only the genesis sentinel.
func New(p params.Params) (*Node, error) {
	keyPair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate node keypair")
	}

	store := consensus.NewBlockStore(p)
	return &Node{
		params:   p,
		keyPair:  keyPair,
		store:    store,
		selector: consensus.NewChainSelector(store),
		pool:     mempool.New(),
		tip:      params.GenesisPrev,
		peers:    make(map[*Node]struct{}),
	}, nil
}

// Connect connects this node to other for block and transaction updates.
// The connection is bidirectional: other is added to this node's peer set
// and vice versa. It then exchanges tip information in both directions by
// invoking NotifyOfBlock. Connecting a node to itself raises.
func (n *Node) Connect(other *Node) error {
	if other == n {
		return errors.New("cannot connect node to itself")
	}

	n.mu.Lock()
	_, already := n.peers[other]
	if !already {
		n.peers[other] = struct{}{}
	}
	n.mu.Unlock()

	other.mu.Lock()
	if _, already := other.peers[n]; !already {
		other.peers[n] = struct{}{}
	}
	other.mu.Unlock()

	other.NotifyOfBlock(n.GetLatestHash(), n)
	n.NotifyOfBlock(other.GetLatestHash(), other)
	return nil
}

// DisconnectFrom removes other from both peer sets. It is a no-op if the
// two were not connected.
func (n *Node) DisconnectFrom(other *Node) {
	n.mu.Lock()
	delete(n.peers, other)
	n.mu.Unlock()

	other.mu.Lock()
	delete(other.peers, n)
	other.mu.Unlock()
}

// GetConnections returns a defensive copy of this node's peer set.
func (n *Node) GetConnections() map[*Node]struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	peers := make(map[*Node]struct{}, len(n.peers))
	for p := range n.peers {
		peers[p] = struct{}{}
	}
	return peers
}

func (n *Node) connectionsSnapshot() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	peers := make([]*Node, 0, len(n.peers))
	for p := range n.peers {
		peers = append(peers, p)
	}
	return peers
}

// AddTransactionToMempool admits tx into this node's mempool and, on
// success, forwards it to every peer. Propagation terminates naturally:
// peers that already hold tx reject it on the duplicate check, so the
// forward returns success only at the point of first admission.
func (n *Node) AddTransactionToMempool(tx *externalapi.DomainTransaction) bool {
	n.mu.Lock()
	tipUTXO, err := n.store.Snapshot(n.tip)
	if err != nil {
		n.mu.Unlock()
		log.Errorf("no snapshot for current tip %s: %s", n.tip, err)
		return false
	}
	admitted := n.pool.Admit(tx, tipUTXO)
	n.mu.Unlock()

	if !admitted {
		return false
	}

	for _, peer := range n.connectionsSnapshot() {
		peer.AddTransactionToMempool(tx)
	}
	return true
}

// NotifyOfBlock informs this node that sender has learned of announcedID.
// If the block is unknown here, it is fetched from sender one ancestor at
// a time until a locally known id (or the genesis sentinel) is reached,
// each fetched block's recomputed id is checked against what was
// requested, and the walk is replayed oldest-to-newest into the store. The
// chain selector is then given a chance to adopt a new tip; if the tip is
// now exactly announcedID, every peer except sender is told about it too.
func (n *Node) NotifyOfBlock(announcedID externalapi.DomainHash, sender *Node) {
	if announcedID != params.GenesisPrev && !n.hasBlock(announcedID) {
		n.fetchAndStoreChain(announcedID, sender)
	}

	n.reselectTip()

	if n.GetLatestHash() == announcedID {
		for _, peer := range n.connectionsSnapshot() {
			if peer != sender {
				peer.NotifyOfBlock(announcedID, n)
			}
		}
	}
}

func (n *Node) hasBlock(id externalapi.DomainHash) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.Has(id)
}

// fetchAndStoreChain pull-walks ancestors of announcedID from sender back
// to a locally known id (or the genesis sentinel), then replays the
// pending queue oldest-to-newest into the store. It stops applying further
// blocks in the queue the first time a Put fails, without abandoning
// already-stored earlier ancestors.
func (n *Node) fetchAndStoreChain(announcedID externalapi.DomainHash, sender *Node) {
	var pending []*externalapi.DomainBlock
	current := announcedID

	for current != params.GenesisPrev && !n.hasBlock(current) {
		block, err := sender.GetBlock(current)
		if err != nil {
			gsspLog.Debugf("abandoning pull-walk: peer could not provide block %s: %s", current, err)
			return
		}
		if block.ID() != current {
			gsspLog.Warnf("abandoning pull-walk: peer returned block %s for requested id %s", block.ID(), current)
			return
		}
		pending = append(pending, block)
		current = block.PrevBlockID()
	}

	for i := len(pending) - 1; i >= 0; i-- {
		n.mu.Lock()
		ok := n.store.Put(pending[i])
		n.mu.Unlock()
		if !ok {
			gsspLog.Infof("stopping pull-walk replay: block %s failed validation", pending[i].ID())
			return
		}
	}
}

// reselectTip asks the chain selector for a new tip and, if it changed,
// reconciles the mempool against the new tip's snapshot.
func (n *Node) reselectTip() {
	n.mu.Lock()
	newTip, changed := n.selector.SelectTip(n.tip)
	if !changed {
		n.mu.Unlock()
		return
	}
	n.tip = newTip
	snapshot, err := n.store.Snapshot(newTip)
	n.mu.Unlock()

	if err != nil {
		log.Errorf("no snapshot for new tip %s: %s", newTip, err)
		return
	}

	log.Infof("adopting new tip %s", newTip)
	n.pool.Reconcile(snapshot)
}

// MineBlock builds a block containing this node's own coinbase plus up to
// BLOCK_SIZE-1 pending mempool transactions in current order, submits it
// to this node's own store, and on success removes the included
// transactions from the mempool, re-runs the chain selector, and
// broadcasts the new tip to every peer. It returns the new block's id.
func (n *Node) MineBlock() (externalapi.DomainHash, error) {
	n.mu.Lock()
	parent := n.tip
	n.mu.Unlock()

	pending := n.pool.Entries()
	limit := n.params.BlockSize - 1
	if limit < 0 {
		limit = 0
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}

	coinbaseSig, err := crypto.RandomSignature()
	if err != nil {
		return externalapi.DomainHash{}, errors.Wrap(err, "failed to generate coinbase filler")
	}
	coinbase := externalapi.NewCoinbaseTransaction(n.keyPair.PublicKey(), coinbaseSig)

	txs := make([]*externalapi.DomainTransaction, 0, len(pending)+1)
	txs = append(txs, coinbase)
	txs = append(txs, pending...)
	block := externalapi.NewBlock(parent, txs)

	n.mu.Lock()
	ok := n.store.Put(block)
	n.mu.Unlock()
	if !ok {
		return externalapi.DomainHash{}, errors.New("mined block failed its own validator")
	}

	for _, tx := range pending {
		n.pool.Remove(tx)
	}

	n.reselectTip()

	blockID := block.ID()
	minrLog.Infof("mined block %s with %d transaction(s)", blockID, len(txs))

	for _, peer := range n.connectionsSnapshot() {
		peer.NotifyOfBlock(blockID, n)
	}

	return blockID, nil
}

// GetBlock returns the block for id. It raises if id is unknown or is the
// genesis sentinel.
func (n *Node) GetBlock(id externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.Get(id)
}

// GetLatestHash returns this node's current tip id.
func (n *Node) GetLatestHash() externalapi.DomainHash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tip
}

// GetMempool returns a defensive copy of the pending transaction list.
func (n *Node) GetMempool() []*externalapi.DomainTransaction {
	return n.pool.Entries()
}

// GetUTXO returns the list of UTXOs at the current tip.
func (n *Node) GetUTXO() []*externalapi.DomainTransaction {
	n.mu.Lock()
	tip := n.tip
	n.mu.Unlock()

	snapshot, err := n.store.Snapshot(tip)
	if err != nil {
		log.Errorf("no snapshot for current tip %s: %s", tip, err)
		return nil
	}
	return snapshot.Transactions()
}

// signatureMessage returns the fixed byte layout signed when spending
// prevTxID to pay target, matching domain/consensus's validator exactly.
func signatureMessage(prevTxID externalapi.DomainHash, target crypto.PublicKey) []byte {
	message := make([]byte, 0, len(prevTxID)+len(target))
	message = append(message, prevTxID[:]...)
	message = append(message, target...)
	return message
}

// CreateTransaction picks the first unspent output at the current tip
// owned by this node and not already claimed by a pending mempool entry,
// signs a transfer of it to target, and submits the result through this
// node's own AddTransactionToMempool. It returns nil if there is no
// spendable, unclaimed output, or if admission failed.
func (n *Node) CreateTransaction(target crypto.PublicKey) *externalapi.DomainTransaction {
	n.mu.Lock()
	tip := n.tip
	keyPair := n.keyPair
	n.mu.Unlock()

	snapshot, err := n.store.Snapshot(tip)
	if err != nil {
		log.Errorf("no snapshot for current tip %s: %s", tip, err)
		return nil
	}

	var eligible []externalapi.DomainHash
	for txid, tx := range snapshot {
		if n.pool.HasInput(txid) {
			continue
		}
		if !bytesEqual(tx.Output(), keyPair.PublicKey()) {
			continue
		}
		eligible = append(eligible, txid)
	}
	if len(eligible) == 0 {
		return nil
	}

	// Map iteration order is unspecified in Go, unlike the insertion-ordered
	// dict this was distilled from; pick deterministically by hash bytes so
	// repeated runs against the same snapshot pick the same coin.
	sort.Slice(eligible, func(i, j int) bool {
		return bytes.Compare(eligible[i][:], eligible[j][:]) < 0
	})
	txid := eligible[0]

	sig, err := keyPair.Sign(signatureMessage(txid, target))
	if err != nil {
		log.Errorf("failed to sign transaction spending %s: %s", txid, err)
		return nil
	}
	candidate := externalapi.NewTransaction(target, txid, sig)
	if n.AddTransactionToMempool(candidate) {
		return candidate
	}
	return nil
}

// ClearMempool drops every pending transaction, releasing any outputs this
// node had tentatively claimed to spend.
func (n *Node) ClearMempool() {
	n.pool.Clear()
}

// GetBalance returns the number of UTXOs at the current tip owned by this
// node.
func (n *Node) GetBalance() int {
	count := 0
	for _, tx := range n.GetUTXO() {
		if bytesEqual(tx.Output(), n.GetAddress()) {
			count++
		}
	}
	return count
}

// GetAddress returns this node's own public key.
func (n *Node) GetAddress() crypto.PublicKey {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.keyPair.PublicKey()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
