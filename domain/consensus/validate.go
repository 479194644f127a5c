package consensus

import (
	"github.com/daglabs/nanocoin/crypto"
	"github.com/daglabs/nanocoin/domain/consensus/model/externalapi"
	"github.com/daglabs/nanocoin/domain/consensus/params"
	"github.com/pkg/errors"
)

// ruleError describes a block that fails the validity policy. It is used
// internally to distinguish expected rejections (bad block contents) from
// unexpected ones (a caller bug). BlockStore.Put never surfaces it --
// rejection is silent by contract -- but ValidateBlock returns it so tests
// and callers that want the reason can inspect it.
type ruleError struct {
	reason string
}

func (e *ruleError) Error() string {
	return e.reason
}

func newRuleError(format string, args ...interface{}) error {
	return &ruleError{reason: errors.Errorf(format, args...).Error()}
}

// signatureMessage returns the fixed byte layout that must be signed (and
// verified) when a transaction spends prevTxID to pay target.
func signatureMessage(prevTxID externalapi.DomainHash, target crypto.PublicKey) []byte {
	message := make([]byte, 0, len(prevTxID)+len(target))
	message = append(message, prevTxID[:]...)
	message = append(message, target...)
	return message
}

// ValidateBlock checks block against the policy in spec.md section 4.3,
// given the UTXO snapshot of block's claimed parent. On success it returns
// the child snapshot with the block's effects applied; parentUTXO itself is
// never modified. On any rule violation it returns a non-nil error and the
// parent snapshot is left completely untouched.
func ValidateBlock(block *externalapi.DomainBlock, parentUTXO UTXOSet, p params.Params) (UTXOSet, error) {
	txs := block.Transactions()

	if len(txs) == 0 {
		return nil, newRuleError("block has no transactions")
	}
	if len(txs) > p.BlockSize {
		return nil, newRuleError("block has %d transactions, exceeding BLOCK_SIZE %d", len(txs), p.BlockSize)
	}

	coinbaseCount := 0
	for _, tx := range txs {
		if tx.IsCoinbase() {
			coinbaseCount++
		}
	}
	if coinbaseCount != 1 {
		return nil, newRuleError("block has %d coinbase transactions, expected exactly 1", coinbaseCount)
	}

	workingUTXO := parentUTXO.Clone()
	spent := make(map[externalapi.DomainHash]struct{}, len(txs))

	for _, tx := range txs {
		if input, ok := tx.Input(); ok {
			if _, alreadySpent := spent[input]; alreadySpent {
				return nil, newRuleError("transaction double-spends input %s within the block", input)
			}

			prevTx, exists := workingUTXO.Get(input)
			if !exists {
				return nil, newRuleError("transaction spends unknown or already-spent input %s", input)
			}

			message := signatureMessage(input, tx.Output())
			if !crypto.Verify(prevTx.Output(), message, tx.Signature()) {
				return nil, newRuleError("transaction signature does not verify against input %s's output", input)
			}

			spent[input] = struct{}{}
			delete(workingUTXO, input)
		}

		// Collisions on txid are astronomically unlikely; when they occur
		// the later write wins, matching plain set/map semantics.
		workingUTXO[tx.ID()] = tx
	}

	return workingUTXO, nil
}
