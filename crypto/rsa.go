package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // legacy RAOP artifact, not a general-purpose primitive
)

// RAOPAuth wraps the fixed 2048-bit RSA key embedded in legacy AirPlay 1
// receivers. It exists to decrypt the AES key a RAOP sender wraps with
// `rsaaeskey` in its ANNOUNCE SDP, and to sign Apple-Response challenges.
// This is a fixed capability of the RAOP subcomponent only — it must never
// be treated as a general-purpose asymmetric primitive (spec.md §9).
type RAOPAuth struct {
	key *rsa.PrivateKey
}

// NewRAOPAuth wraps an existing RSA private key (normally decoded from the
// embedded Apple public/private keypair material).
func NewRAOPAuth(key *rsa.PrivateKey) *RAOPAuth {
	return &RAOPAuth{key: key}
}

// DecryptAESKey unwraps a `rsaaeskey` value with RSA-OAEP-SHA1.
func (r *RAOPAuth) DecryptAESKey(wrapped []byte) ([]byte, error) {
	out, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, r.key, wrapped, nil)
	if err != nil {
		return nil, errMsg(KindDecryptionFailed, err.Error())
	}
	return out, nil
}

// SignAppleResponse signs a challenge with RSA PKCS#1 v1.5 / SHA-1, as the
// legacy "Apple-Response" header requires.
func (r *RAOPAuth) SignAppleResponse(challenge []byte) ([]byte, error) {
	digest := sha1.Sum(challenge)
	sig, err := rsa.SignPKCS1v15(rand.Reader, r.key, stdcrypto.SHA1, digest[:])
	if err != nil {
		return nil, errMsg(KindEncryptionFailed, err.Error())
	}
	return sig, nil
}
