package externalapi

import "github.com/daglabs/nanocoin/crypto"

// DomainBlock is an ordered, bounded sequence of transactions chained to a
// claimed parent. It is immutable once constructed; callers that need a
// mutable transaction list should build one and pass it to NewBlock.
type DomainBlock struct {
	prevBlockID  DomainHash
	transactions []*DomainTransaction
}

// NewBlock constructs a block. The transaction slice is copied so the
// caller's backing array can be reused without affecting the block.
func NewBlock(prevBlockID DomainHash, transactions []*DomainTransaction) *DomainBlock {
	txsCopy := make([]*DomainTransaction, len(transactions))
	copy(txsCopy, transactions)
	return &DomainBlock{prevBlockID: prevBlockID, transactions: txsCopy}
}

// PrevBlockID returns the id of this block's claimed parent.
func (b *DomainBlock) PrevBlockID() DomainHash {
	return b.prevBlockID
}

// Transactions returns a defensive copy of this block's transactions, in
// block order.
func (b *DomainBlock) Transactions() []*DomainTransaction {
	txsCopy := make([]*DomainTransaction, len(b.transactions))
	copy(txsCopy, b.transactions)
	return txsCopy
}

// ID computes this block's id: the digest of its parent id concatenated
// with each transaction's id, in order.
func (b *DomainBlock) ID() DomainHash {
	parts := make([][]byte, 0, len(b.transactions)+1)
	prev := b.prevBlockID
	parts = append(parts, prev[:])
	for _, tx := range b.transactions {
		txid := tx.ID()
		parts = append(parts, txid[:])
	}
	return DomainHash(crypto.Hash(parts...))
}
