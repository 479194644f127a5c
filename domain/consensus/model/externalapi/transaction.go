package externalapi

import "github.com/daglabs/nanocoin/crypto"

// coinbaseTag and spendTag domain-separate the txid preimage of a coinbase
// transaction (no input) from that of a spending transaction, so the two
// cases can never collide on id even though one omits a field the other
// includes.
const (
	coinbaseTag byte = 0x00
	spendTag    byte = 0x01
)

// DomainTransaction moves exactly one coin. A transaction with no Input
// creates a coin out of thin air (a coinbase); it is immutable once
// constructed.
type DomainTransaction struct {
	output    crypto.PublicKey
	input     *DomainHash
	signature crypto.Signature
}

// NewTransaction constructs a spending transaction consuming input and
// paying output, signed by signature.
func NewTransaction(output crypto.PublicKey, input DomainHash, signature crypto.Signature) *DomainTransaction {
	return &DomainTransaction{output: output, input: &input, signature: signature}
}

// NewCoinbaseTransaction constructs a money-creation transaction paying
// output. Its signature slot should be filled with random bytes by the
// caller (see crypto.RandomSignature), not a real signature.
func NewCoinbaseTransaction(output crypto.PublicKey, signature crypto.Signature) *DomainTransaction {
	return &DomainTransaction{output: output, input: nil, signature: signature}
}

// Output returns the recipient public key.
func (tx *DomainTransaction) Output() crypto.PublicKey {
	return tx.output
}

// Input returns the id of the prior output this transaction consumes, and
// false if this is a coinbase.
func (tx *DomainTransaction) Input() (DomainHash, bool) {
	if tx.input == nil {
		return DomainHash{}, false
	}
	return *tx.input, true
}

// IsCoinbase reports whether this transaction creates a coin rather than
// spending one.
func (tx *DomainTransaction) IsCoinbase() bool {
	return tx.input == nil
}

// Signature returns the transaction's signature bytes (or, for a coinbase,
// its random filler).
func (tx *DomainTransaction) Signature() crypto.Signature {
	return tx.signature
}

// ID computes this transaction's id: the digest of a tagged, canonical
// serialization of its fields. The tag domain-separates the coinbase and
// non-coinbase preimages so they cannot collide.
func (tx *DomainTransaction) ID() DomainHash {
	if tx.input == nil {
		digest := crypto.Hash([]byte{coinbaseTag}, tx.output, tx.signature)
		return DomainHash(digest)
	}
	digest := crypto.Hash([]byte{spendTag}, tx.input[:], tx.output, tx.signature)
	return DomainHash(digest)
}

// Equal reports whether two transactions have byte-equal output, input and
// signature fields.
func (tx *DomainTransaction) Equal(other *DomainTransaction) bool {
	if tx == nil || other == nil {
		return tx == other
	}
	if !bytesEqual(tx.output, other.output) {
		return false
	}
	if !bytesEqual(tx.signature, other.signature) {
		return false
	}
	if (tx.input == nil) != (other.input == nil) {
		return false
	}
	if tx.input != nil && *tx.input != *other.input {
		return false
	}
	return true
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
