package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raopx/raopx/crypto"
)

// selfIdentityFile is the fixed filename holding a process's own
// pairing identity, distinct from the per-peer PairingKeys files
// Store manages (a self identity has no DeviceIdentifier to key on —
// it exists before any peer has ever paired).
const selfIdentityFile = "identity.key"

// LoadOrCreateSelfIdentity reads the Ed25519 signing identity a
// controller or accessory presents during pair-setup/pair-verify from
// dir, generating and persisting a fresh one on first run.
func LoadOrCreateSelfIdentity(dir string) (identifier string, keys *crypto.Ed25519KeyPair, err error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("keystore: create directory: %w", err)
	}
	path := filepath.Join(dir, selfIdentityFile)

	buf, err := os.ReadFile(path)
	if err == nil {
		id, field, rerr := readLengthPrefixed(buf)
		if rerr != nil {
			return "", nil, fmt.Errorf("keystore: read %s: %w", path, rerr)
		}
		secret, _, rerr := readLengthPrefixed(field)
		if rerr != nil {
			return "", nil, fmt.Errorf("keystore: read %s: %w", path, rerr)
		}
		kp, kerr := crypto.Ed25519FromPrivateKeyBytes(secret)
		if kerr != nil {
			return "", nil, fmt.Errorf("keystore: decode %s: %w", path, kerr)
		}
		return string(id), kp, nil
	}
	if !os.IsNotExist(err) {
		return "", nil, fmt.Errorf("keystore: read %s: %w", path, err)
	}

	kp, err := crypto.GenerateEd25519()
	if err != nil {
		return "", nil, fmt.Errorf("keystore: generate identity: %w", err)
	}
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", nil, fmt.Errorf("keystore: generate identifier: %w", err)
	}
	identifier = hex.EncodeToString(idBytes)

	var out []byte
	out = writeLengthPrefixed(out, []byte(identifier))
	out = writeLengthPrefixed(out, kp.PrivateKeyBytes())
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return "", nil, fmt.Errorf("keystore: write %s: %w", path, err)
	}
	return identifier, kp, nil
}
