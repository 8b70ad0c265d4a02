// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

package identity

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ChainIdentity is an agent's pre-existing secp256k1 keypair, distinct from
// its Ed25519 record-signing identity. An agent that already holds a chain
// wallet can attest ownership of it by signing its own Ed25519 agent id
// with this key; the attestation travels as auxiliary record.Data, never
// as the record's primary signature (the protocol's signing algorithm
// stays fixed per C1).
type ChainIdentity struct {
	privateKey *secp256k1.PrivateKey
	publicKey  *secp256k1.PublicKey
}

// GenerateChainIdentity creates a fresh secp256k1 keypair.
func GenerateChainIdentity() (*ChainIdentity, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("identity: generate secp256k1 key: %w", err)
	}
	return &ChainIdentity{privateKey: priv, publicKey: priv.PubKey()}, nil
}

// PublicKeyHex returns the hex-encoded compressed public key.
func (c *ChainIdentity) PublicKeyHex() string {
	return hex.EncodeToString(c.publicKey.SerializeCompressed())
}

// AttestAgent signs agentHex (a node's Ed25519 agent id) with the chain
// identity's private key, binding the two identities together.
func (c *ChainIdentity) AttestAgent(agentHex string) ([]byte, error) {
	hash := sha256.Sum256([]byte(agentHex))
	r, s, err := ecdsa.Sign(rand.Reader, c.privateKey.ToECDSA(), hash[:])
	if err != nil {
		return nil, fmt.Errorf("identity: sign attestation: %w", err)
	}
	return serializeSignature(r, s), nil
}

// VerifyChainAttestation reports whether sig is a valid secp256k1
// signature by pubKeyHex over agentHex.
func VerifyChainAttestation(pubKeyHex, agentHex string, sig []byte) bool {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	r, s, err := deserializeSignature(sig)
	if err != nil {
		return false
	}
	hash := sha256.Sum256([]byte(agentHex))
	return ecdsa.Verify(pub.ToECDSA(), hash[:], r, s)
}

func serializeSignature(r, s *big.Int) []byte {
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out
}

func deserializeSignature(sig []byte) (*big.Int, *big.Int, error) {
	if len(sig) != 64 {
		return nil, nil, fmt.Errorf("identity: invalid signature length %d", len(sig))
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return r, s, nil
}
