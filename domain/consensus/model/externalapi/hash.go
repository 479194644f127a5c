// Package externalapi holds the plain, immutable value types shared across
// the consensus, mempool and node packages: transaction and block identity.
// The public-key/signature byte types they carry are defined in package
// crypto.
package externalapi

import "encoding/hex"

// DomainHashSize of array used to store hashes.
const DomainHashSize = 32

// DomainHash is the domain representation of a Hash
type DomainHash [DomainHashSize]byte

// String returns the Hash as the hexadecimal string of the hash.
func (hash DomainHash) String() string {
	return hex.EncodeToString(hash[:])
}
