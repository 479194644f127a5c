package consensus

import (
	"testing"

	"github.com/daglabs/nanocoin/crypto"
	"github.com/daglabs/nanocoin/domain/consensus/model/externalapi"
	"github.com/daglabs/nanocoin/domain/consensus/params"
	"github.com/davecgh/go-spew/spew"
)

func mineOn(t *testing.T, store *BlockStore, parent externalapi.DomainHash, miner *crypto.KeyPair) externalapi.DomainHash {
	t.Helper()
	block := externalapi.NewBlock(parent, []*externalapi.DomainTransaction{coinbaseTx(t, miner.PublicKey())})
	if !store.Put(block) {
		t.Fatalf("expected block on top of %s to be accepted", parent)
	}
	return block.ID()
}

func TestBlockStoreGenesisSentinel(t *testing.T) {
	store := NewBlockStore(params.Mainnet)

	if store.Has(params.GenesisPrev) {
		t.Fatal("genesis sentinel must not count as a known block")
	}
	if _, err := store.Get(params.GenesisPrev); err == nil {
		t.Fatal("expected resolving the genesis sentinel as a block to fail")
	}

	height, err := store.Height(params.GenesisPrev)
	if err != nil || height != 0 {
		t.Fatalf("expected genesis height 0, got %d, err %v", height, err)
	}

	snapshot, err := store.Snapshot(params.GenesisPrev)
	if err != nil || len(snapshot) != 0 {
		t.Fatalf("expected empty genesis snapshot, got %d entries, err %v", len(snapshot), err)
	}
}

func TestBlockStorePutAcceptsChain(t *testing.T) {
	store := NewBlockStore(params.Mainnet)
	miner, _ := crypto.GenerateKeyPair()

	b1 := mineOn(t, store, params.GenesisPrev, miner)
	b2 := mineOn(t, store, b1, miner)

	if !store.Has(b1) || !store.Has(b2) {
		t.Fatal("expected both blocks to be known")
	}

	h1, _ := store.Height(b1)
	h2, _ := store.Height(b2)
	if h1 != 1 || h2 != 2 {
		t.Fatalf("expected heights 1, 2, got %d, %d", h1, h2)
	}

	got, err := store.Get(b2)
	if err != nil {
		t.Fatalf("Get failed: %s", err)
	}
	if got.ID() != b2 {
		t.Fatal("expected identity round-trip: block_id(get_block(id)) == id")
	}
}

func TestBlockStorePutRejectsUnknownParent(t *testing.T) {
	store := NewBlockStore(params.Mainnet)
	miner, _ := crypto.GenerateKeyPair()

	unknownParent := externalapi.DomainHash{0x01, 0x02}
	block := externalapi.NewBlock(unknownParent, []*externalapi.DomainTransaction{coinbaseTx(t, miner.PublicKey())})

	if store.Put(block) {
		t.Fatal("expected a block on an unknown parent to be rejected")
	}
	if store.Has(block.ID()) {
		t.Fatal("a rejected block must not be stored")
	}
}

func TestBlockStorePutRejectsInvalidBlock(t *testing.T) {
	store := NewBlockStore(params.Mainnet)
	block := externalapi.NewBlock(params.GenesisPrev, nil)

	if store.Put(block) {
		t.Fatal("expected an empty block to be rejected")
	}
}

func TestBlockStorePutIsIdempotentOnKnownBlock(t *testing.T) {
	store := NewBlockStore(params.Mainnet)
	miner, _ := crypto.GenerateKeyPair()
	block := externalapi.NewBlock(params.GenesisPrev, []*externalapi.DomainTransaction{coinbaseTx(t, miner.PublicKey())})

	if !store.Put(block) {
		t.Fatal("expected first put to succeed")
	}
	if !store.Put(block) {
		t.Fatal("expected re-putting an already-known block to be a harmless no-op success")
	}
}

func TestBlockStoreHoldsCompetingChains(t *testing.T) {
	store := NewBlockStore(params.Mainnet)
	miner, _ := crypto.GenerateKeyPair()

	a1 := mineOn(t, store, params.GenesisPrev, miner)
	b1 := mineOn(t, store, params.GenesisPrev, miner)

	if a1 == b1 {
		t.Fatal("expected two independently mined blocks on genesis to differ (distinct coinbase filler)")
	}
	if !store.Has(a1) || !store.Has(b1) {
		t.Fatal("expected the store to retain both competing chains")
	}
}

func TestChainInvariantSnapshotEqualsApply(t *testing.T) {
	store := NewBlockStore(params.Mainnet)
	miner, _ := crypto.GenerateKeyPair()

	b1 := mineOn(t, store, params.GenesisPrev, miner)
	parentSnap, _ := store.Snapshot(params.GenesisPrev)
	block, _ := store.Get(b1)

	expected, err := ValidateBlock(block, parentSnap, params.Mainnet)
	if err != nil {
		t.Fatalf("expected re-validating a stored block against its parent to succeed: %s", err)
	}

	actual, _ := store.Snapshot(b1)
	if len(expected) != len(actual) {
		t.Fatalf("expected snapshot(b1) == apply_block(snapshot(prev), b1):\ngot:\n%swant:\n%s",
			spew.Sdump(actual), spew.Sdump(expected))
	}
	for txid := range expected {
		if _, ok := actual[txid]; !ok {
			t.Fatalf("expected snapshot to contain recomputed txid %s:\n%s", txid, spew.Sdump(actual))
		}
	}
}
