// Package keystore persists the long-term pairing identity a
// controller or accessory establishes with a peer during pair-setup:
// one opaque binary file per remote device, containing the local and
// peer Ed25519 keys plus both sides' identifiers.
package keystore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	ed25519SecretLen = 64 // NewKeyFromSeed output: seed||public
	ed25519PublicLen = 32
)

// PairingKeys is the record written on first successful pair-setup
// with a device and read back on every subsequent pair-verify. It is
// never mutated in place — a changed identity means a new pairing.
type PairingKeys struct {
	Identifier      string
	SecretKey       []byte // 64-byte Ed25519 private key (seed||public)
	PublicKey       []byte // 32-byte Ed25519 public key
	DeviceIdentifier string
	DevicePublicKey []byte // 32-byte Ed25519 public key of the paired device
}

func (k *PairingKeys) validate() error {
	if len(k.SecretKey) != ed25519SecretLen {
		return fmt.Errorf("keystore: secret key must be %d bytes, got %d", ed25519SecretLen, len(k.SecretKey))
	}
	if len(k.PublicKey) != ed25519PublicLen {
		return fmt.Errorf("keystore: public key must be %d bytes, got %d", ed25519PublicLen, len(k.PublicKey))
	}
	if len(k.DevicePublicKey) != ed25519PublicLen {
		return fmt.Errorf("keystore: device public key must be %d bytes, got %d", ed25519PublicLen, len(k.DevicePublicKey))
	}
	return nil
}

func writeLengthPrefixed(buf []byte, field []byte) []byte {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(field)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, field...)
	return buf
}

func readLengthPrefixed(buf []byte) (field, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("keystore: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(n) > uint64(len(buf)) {
		return nil, nil, fmt.Errorf("keystore: field claims %d bytes, only %d remain", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}

// encode serializes k as {identifier, secret_key, public_key,
// device_identifier, device_public_key}, each length-prefixed with a
// 4-byte big-endian length.
func encode(k *PairingKeys) []byte {
	var buf []byte
	buf = writeLengthPrefixed(buf, []byte(k.Identifier))
	buf = writeLengthPrefixed(buf, k.SecretKey)
	buf = writeLengthPrefixed(buf, k.PublicKey)
	buf = writeLengthPrefixed(buf, []byte(k.DeviceIdentifier))
	buf = writeLengthPrefixed(buf, k.DevicePublicKey)
	return buf
}

func decode(buf []byte) (*PairingKeys, error) {
	k := &PairingKeys{}
	var field []byte
	var err error

	if field, buf, err = readLengthPrefixed(buf); err != nil {
		return nil, err
	}
	k.Identifier = string(field)

	if field, buf, err = readLengthPrefixed(buf); err != nil {
		return nil, err
	}
	k.SecretKey = append([]byte{}, field...)

	if field, buf, err = readLengthPrefixed(buf); err != nil {
		return nil, err
	}
	k.PublicKey = append([]byte{}, field...)

	if field, buf, err = readLengthPrefixed(buf); err != nil {
		return nil, err
	}
	k.DeviceIdentifier = string(field)

	if field, _, err = readLengthPrefixed(buf); err != nil {
		return nil, err
	}
	k.DevicePublicKey = append([]byte{}, field...)

	if err := k.validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// Store reads and writes PairingKeys files under a single directory,
// one file per device identifier.
type Store struct {
	dir string
}

// NewStore ensures dir exists (mode 0700) and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) pathFor(deviceIdentifier string) string {
	return filepath.Join(s.dir, sanitize(deviceIdentifier)+".pairing")
}

// sanitize keeps device identifiers (MAC-like strings, UUIDs) usable
// as filenames without introducing path traversal.
func sanitize(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ':':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Save persists k, creating or overwriting its file at mode 0600.
func (s *Store) Save(k *PairingKeys) error {
	if err := k.validate(); err != nil {
		return err
	}
	path := s.pathFor(k.DeviceIdentifier)
	if err := os.WriteFile(path, encode(k), 0o600); err != nil {
		return fmt.Errorf("keystore: write %s: %w", path, err)
	}
	return nil
}

// Load reads back the PairingKeys for deviceIdentifier. Returns an
// error wrapping os.ErrNotExist if no pairing is on record.
func (s *Store) Load(deviceIdentifier string) (*PairingKeys, error) {
	path := s.pathFor(deviceIdentifier)
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: read %s: %w", path, err)
	}
	return decode(buf)
}

// Unpair destroys the stored identity for deviceIdentifier. Removing
// an identity that doesn't exist is not an error.
func (s *Store) Unpair(deviceIdentifier string) error {
	path := s.pathFor(deviceIdentifier)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("keystore: remove %s: %w", path, err)
	}
	return nil
}

// Has reports whether a pairing is on record for deviceIdentifier.
func (s *Store) Has(deviceIdentifier string) bool {
	_, err := os.Stat(s.pathFor(deviceIdentifier))
	return err == nil
}
