package crypto

// Fixed lengths for the key material and nonces this package handles.
const (
	Ed25519PublicKeyLen  = 32
	Ed25519SignatureLen  = 64
	X25519PublicKeyLen   = 32
	X25519SharedSecretLen = 32
	ChaChaKeyLen         = 32
	ChaChaNonceLen       = 12
	ChaChaTagLen         = 16
	AES128KeyLen         = 16
	AESGCMNonceLen       = 12
)
