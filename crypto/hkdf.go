package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSha512 derives key material with HKDF (RFC 5869) over SHA-512, used
// throughout pairing to turn a DH/SRP shared secret into AEAD keys.
func HKDFSha512(salt, ikm, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha512.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, errMsg(KindKeyDerivationFailed, err.Error())
	}
	return out, nil
}

// HKDFSha512Fixed32 is HKDFSha512 specialized to the common 32-byte output
// case (AEAD keys).
func HKDFSha512Fixed32(salt, ikm, info []byte) ([32]byte, error) {
	var out [32]byte
	buf, err := HKDFSha512(salt, ikm, info, 32)
	if err != nil {
		return out, err
	}
	copy(out[:], buf)
	return out, nil
}
