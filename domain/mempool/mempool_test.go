package mempool

import (
	"testing"

	"github.com/daglabs/nanocoin/crypto"
	"github.com/daglabs/nanocoin/domain/consensus"
	"github.com/daglabs/nanocoin/domain/consensus/model/externalapi"
)

func signedSpend(t *testing.T, kp *crypto.KeyPair, input externalapi.DomainHash, target crypto.PublicKey) *externalapi.DomainTransaction {
	t.Helper()
	message := append(append([]byte{}, input[:]...), target...)
	sig, err := kp.Sign(message)
	if err != nil {
		t.Fatalf("Sign failed: %s", err)
	}
	return externalapi.NewTransaction(target, input, sig)
}

func oneUTXO(t *testing.T, owner crypto.PublicKey) (consensus.UTXOSet, externalapi.DomainHash) {
	t.Helper()
	sig, err := crypto.RandomSignature()
	if err != nil {
		t.Fatalf("RandomSignature failed: %s", err)
	}
	coinbase := externalapi.NewCoinbaseTransaction(owner, sig)
	utxo := consensus.NewEmptyUTXOSet()
	utxo[coinbase.ID()] = coinbase
	return utxo, coinbase.ID()
}

func TestAdmitRejectsCoinbase(t *testing.T) {
	pool := New()
	kp, _ := crypto.GenerateKeyPair()
	sig, _ := crypto.RandomSignature()
	coinbase := externalapi.NewCoinbaseTransaction(kp.PublicKey(), sig)
	utxo := consensus.NewEmptyUTXOSet()

	if pool.Admit(coinbase, utxo) {
		t.Fatal("expected a coinbase transaction to be rejected from the mempool")
	}
}

func TestAdmitAcceptsValidSpend(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())
	tx := signedSpend(t, owner, txid, target.PublicKey())

	pool := New()
	if !pool.Admit(tx, utxo) {
		t.Fatal("expected a validly signed spend of an existing UTXO to be admitted")
	}
	if len(pool.Entries()) != 1 {
		t.Fatalf("expected 1 mempool entry, got %d", len(pool.Entries()))
	}
}

func TestAdmitRejectsDuplicate(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())
	tx := signedSpend(t, owner, txid, target.PublicKey())

	pool := New()
	if !pool.Admit(tx, utxo) {
		t.Fatal("expected first admission to succeed")
	}
	if pool.Admit(tx, utxo) {
		t.Fatal("expected resubmitting the same transaction to be rejected")
	}
}

func TestAdmitRejectsConflictingInput(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target1, _ := crypto.GenerateKeyPair()
	target2, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())

	tx1 := signedSpend(t, owner, txid, target1.PublicKey())
	tx2 := signedSpend(t, owner, txid, target2.PublicKey())

	pool := New()
	if !pool.Admit(tx1, utxo) {
		t.Fatal("expected first spend to be admitted")
	}
	if pool.Admit(tx2, utxo) {
		t.Fatal("expected a second, distinct spend of the same input to be rejected")
	}
}

func TestAdmitRejectsMissingInput(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo := consensus.NewEmptyUTXOSet()
	missing := externalapi.DomainHash{0xAA}

	tx := signedSpend(t, owner, missing, target.PublicKey())

	pool := New()
	if pool.Admit(tx, utxo) {
		t.Fatal("expected a spend of a nonexistent input to be rejected")
	}
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	impostor, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())

	// Signed by the wrong key.
	tx := signedSpend(t, impostor, txid, target.PublicKey())

	pool := New()
	if pool.Admit(tx, utxo) {
		t.Fatal("expected a transaction signed by the wrong key to be rejected")
	}
}

func TestReconcileDropsInvalidatedEntries(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())
	tx := signedSpend(t, owner, txid, target.PublicKey())

	pool := New()
	if !pool.Admit(tx, utxo) {
		t.Fatal("expected admission to succeed")
	}

	// Simulate a reorg onto a chain where this coin never existed.
	pool.Reconcile(consensus.NewEmptyUTXOSet())

	if len(pool.Entries()) != 0 {
		t.Fatalf("expected reconcile to drop the now-invalid entry, got %d remaining", len(pool.Entries()))
	}
	if pool.HasInput(txid) {
		t.Fatal("expected the dropped entry's input to be freed")
	}
}

func TestReconcileKeepsStillValidEntries(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())
	tx := signedSpend(t, owner, txid, target.PublicKey())

	pool := New()
	pool.Admit(tx, utxo)
	pool.Reconcile(utxo)

	if len(pool.Entries()) != 1 {
		t.Fatalf("expected the still-valid entry to survive reconcile, got %d entries", len(pool.Entries()))
	}
}

func TestClearEmptiesMempool(t *testing.T) {
	owner, _ := crypto.GenerateKeyPair()
	target, _ := crypto.GenerateKeyPair()
	utxo, txid := oneUTXO(t, owner.PublicKey())
	tx := signedSpend(t, owner, txid, target.PublicKey())

	pool := New()
	pool.Admit(tx, utxo)
	pool.Clear()

	if len(pool.Entries()) != 0 {
		t.Fatal("expected Clear to empty the mempool")
	}
	if pool.HasInput(txid) {
		t.Fatal("expected Clear to free consumed inputs")
	}
}
