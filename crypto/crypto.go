// Package crypto is the digest & signature facade described by the node
// spec: a deterministic hasher plus a keypair generator, signer and
// verifier over fixed-layout byte strings. It is a thin adapter over a
// real elliptic-curve implementation, not a reimplementation of one --
// the node subsystem treats signing/verification as an external
// collaborator and only depends on the contract in this file.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
)

// HashSize is the width in bytes of a Digest output.
const HashSize = 32

// CoinbaseSignatureSize is the fixed length of the random filler placed in
// a coinbase transaction's signature slot (see node.MineBlock).
const CoinbaseSignatureSize = 64

// Digest is a fixed-width cryptographic hash.
type Digest [HashSize]byte

// Hash returns the SHA-256 digest of the concatenation of parts.
func Hash(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Equal reports whether two digests are identical.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// PublicKey is an opaque, serialized (compressed) Schnorr public key.
type PublicKey []byte

// Signature is an opaque, serialized Schnorr signature.
type Signature []byte

// KeyPair is a freshly generated signing identity.
type KeyPair struct {
	private *secp256k1.PrivateKey
	public  PublicKey
}

// GenerateKeyPair creates a new random keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate private key")
	}
	pubKey, err := priv.SchnorrPublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive public key")
	}
	serialized, err := pubKey.SerializeCompressed()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize public key")
	}
	return &KeyPair{
		private: priv,
		public:  PublicKey(serialized),
	}, nil
}

// PublicKey returns this keypair's public key.
func (kp *KeyPair) PublicKey() PublicKey {
	return kp.public
}

// Sign signs message with this keypair's private key. The message layout
// is the caller's responsibility -- it must match byte-for-byte between
// signer and verifier.
func (kp *KeyPair) Sign(message []byte) (Signature, error) {
	secpHash := secp256k1.Hash(Hash(message))
	sig, err := kp.private.SchnorrSign(&secpHash)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sign message")
	}
	serialized := sig.Serialize()
	return Signature(serialized[:]), nil
}

// Verify reports whether signature is a valid signature of message under
// pubKey.
func Verify(pubKey PublicKey, message []byte, signature Signature) bool {
	parsedKey, err := secp256k1.DeserializeSchnorrPubKey(pubKey)
	if err != nil {
		return false
	}
	sig, err := secp256k1.DeserializeSchnorrSignature(signature)
	if err != nil {
		return false
	}
	secpHash := secp256k1.Hash(Hash(message))
	return sig.Verify(&secpHash, parsedKey)
}

// RandomSignature returns CoinbaseSignatureSize random bytes, used to fill
// the signature slot of a coinbase transaction so that distinct coinbases
// are guaranteed distinct ids.
func RandomSignature() (Signature, error) {
	buf := make([]byte, CoinbaseSignatureSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "failed to generate coinbase filler")
	}
	return Signature(buf), nil
}
