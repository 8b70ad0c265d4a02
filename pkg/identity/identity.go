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

// Package identity implements per-node Ed25519 signing keypairs (spec C1):
// generation, strict-permission file persistence, signing, and verification.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrAbsent is returned by Load when the keypair file does not exist.
var ErrAbsent = errors.New("identity: keypair file absent")

// ErrCorrupt is returned by Load when the keypair file exists but cannot be
// parsed.
var ErrCorrupt = errors.New("identity: keypair file corrupt")

// keyFileMode is the strict permission required of a persisted keypair
// file: owner read/write only.
const keyFileMode = 0o600

// KeyPair is a node's Ed25519 signing identity.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// document is the on-disk JSON representation (spec §6: "Identity keypair
// file: mode 0600, JSON {publicKey_hex, privateKey_hex, createdAt}").
type document struct {
	PublicKeyHex  string    `json:"publicKey_hex"`
	PrivateKeyHex string    `json:"privateKey_hex"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Generate creates a fresh Ed25519 keypair.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate: %w", err)
	}
	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Load reads a keypair from path. It returns ErrAbsent if the file does not
// exist and ErrCorrupt if it exists but cannot be parsed.
func Load(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAbsent
		}
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	pub, err := hex.DecodeString(doc.PublicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, ErrCorrupt
	}
	priv, err := hex.DecodeString(doc.PrivateKeyHex)
	if err != nil || len(priv) != ed25519.PrivateKeySize {
		return nil, ErrCorrupt
	}

	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Save persists kp to path in the strict-permission document format,
// creating or truncating the file as needed.
func Save(path string, kp *KeyPair) error {
	doc := document{
		PublicKeyHex:  hex.EncodeToString(kp.PublicKey),
		PrivateKeyHex: hex.EncodeToString(kp.PrivateKey),
		CreatedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, keyFileMode); err != nil {
		return fmt.Errorf("identity: write %s: %w", path, err)
	}
	return os.Chmod(path, keyFileMode)
}

// LoadOrGenerate loads an existing keypair from path, generating and
// persisting a new one if none exists yet. It refuses to start (returns the
// error) on a corrupt file rather than silently overwriting it.
func LoadOrGenerate(path string) (*KeyPair, error) {
	kp, err := Load(path)
	switch {
	case err == nil:
		return kp, nil
	case errors.Is(err, ErrAbsent):
		kp, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := Save(path, kp); err != nil {
			return nil, err
		}
		return kp, nil
	default:
		return nil, err
	}
}

// PublicHex returns the hex-encoded public key, the form used as a
// record's agent field.
func (kp *KeyPair) PublicHex() string {
	return hex.EncodeToString(kp.PublicKey)
}

// Sign signs message with the keypair's private key, satisfying
// record.Signer.
func (kp *KeyPair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(kp.PrivateKey, message), nil
}

// Verify reports whether sig is a valid Ed25519 signature over message by
// the holder of pubHex. It returns false (never an error) on any malformed
// input, per spec C1.
func Verify(sig, message []byte, pubHex string) bool {
	pub, err := hex.DecodeString(pubHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}
