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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// ErrWrongPassphrase is returned by LoadEncrypted when the passphrase
// fails to open the sealed private key.
var ErrWrongPassphrase = errors.New("identity: wrong passphrase")

const (
	scryptN   = 1 << 15
	scryptR   = 8
	scryptP   = 1
	saltSize  = 16
	keySize   = 32
	nonceSize = 24
)

// encryptedDocument is the on-disk format for a passphrase-protected
// identity: the public key stays in the clear (it is not sensitive and is
// exactly the record.agent value), while the private key is sealed with a
// secretbox key derived from the caller's passphrase via scrypt.
type encryptedDocument struct {
	PublicKeyHex string    `json:"publicKey_hex"`
	SaltHex      string    `json:"salt_hex"`
	NonceHex     string    `json:"nonce_hex"`
	SealedHex    string    `json:"sealed_private_key_hex"`
	CreatedAt    time.Time `json:"createdAt"`
}

func deriveBoxKey(passphrase string, salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("identity: derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}

// SaveEncrypted persists kp to path sealed under passphrase, for operators
// who don't want a bare private key sitting on disk.
func SaveEncrypted(path string, kp *KeyPair, passphrase string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("identity: generate salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("identity: generate nonce: %w", err)
	}

	key, err := deriveBoxKey(passphrase, salt)
	if err != nil {
		return err
	}
	sealed := secretbox.Seal(nil, kp.PrivateKey, &nonce, key)

	doc := encryptedDocument{
		PublicKeyHex: hex.EncodeToString(kp.PublicKey),
		SaltHex:      hex.EncodeToString(salt),
		NonceHex:     hex.EncodeToString(nonce[:]),
		SealedHex:    hex.EncodeToString(sealed),
		CreatedAt:    time.Now().UTC(),
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

// LoadEncrypted reads and opens a passphrase-protected keypair file. It
// returns ErrWrongPassphrase if the passphrase cannot open the sealed
// private key, ErrAbsent if the file does not exist, and ErrCorrupt if it
// exists but isn't a valid encrypted document.
func LoadEncrypted(path, passphrase string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAbsent
		}
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	var doc encryptedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	salt, err := hex.DecodeString(doc.SaltHex)
	if err != nil || len(salt) != saltSize {
		return nil, ErrCorrupt
	}
	nonceBytes, err := hex.DecodeString(doc.NonceHex)
	if err != nil || len(nonceBytes) != nonceSize {
		return nil, ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], nonceBytes)
	sealed, err := hex.DecodeString(doc.SealedHex)
	if err != nil {
		return nil, ErrCorrupt
	}
	pub, err := hex.DecodeString(doc.PublicKeyHex)
	if err != nil || len(pub) != 32 {
		return nil, ErrCorrupt
	}

	key, err := deriveBoxKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	priv, ok := secretbox.Open(nil, sealed, &nonce, key)
	if !ok {
		return nil, ErrWrongPassphrase
	}

	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// LoadOrGenerateEncrypted loads a passphrase-protected keypair from path,
// generating and sealing a new one if none exists yet.
func LoadOrGenerateEncrypted(path, passphrase string) (*KeyPair, error) {
	kp, err := LoadEncrypted(path, passphrase)
	switch {
	case err == nil:
		return kp, nil
	case errors.Is(err, ErrAbsent):
		kp, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := SaveEncrypted(path, kp, passphrase); err != nil {
			return nil, err
		}
		return kp, nil
	default:
		return nil, err
	}
}
