package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"math/big"
)

// SRP-6a (RFC 5054) over the 3072-bit group, SHA-512. No SRP library
// appears anywhere in the retrieved example pack (see SPEC_FULL.md
// §4.12), so this is hand-rolled over math/big, the same approach the
// closest real-world grounding (an Apple pairing/tunnel handshake) takes
// for its own SRP math.
//
// M1/M2 are computed as SHA-512(A || B || K) / SHA-512(A || M1 || K)
// using the *minimal* (unpadded) big-endian encodings of A and B, per the
// interop hazard noted in spec.md §9: several Python RAOP receivers
// compute the proof this way, and zero-padding A/B to the group size
// breaks pairing silently.

// srpG is the RFC 5054 3072-bit group generator.
var srpG = big.NewInt(5)

// srpN is the RFC 5054 3072-bit group modulus (RFC 3526 Group 15).
var srpN = mustHex(`
FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
15728E5A 8AAAC42D AD33170D 04507A33 A85521AB DF1CBA64
ECFB8504 58DBEF0A 8AEA7157 5D060C7D B3970F85 A6E1E4C7
ABF5AE8C DB0933D7 1E8C94E0 4A25619D CEE3D226 1AD2EE6B
F12FFA06 D98A0864 D8760273 3EC86A64 521F2B18 177B200C
BBE11757 7A615D6C 770988C0 BAD946E2 08E24FA0 74E5AB31
43DB5BFC E0FD108E 4B82D120 A93AD2CA FFFFFFFF FFFFFFFF
`)

func mustHex(s string) *big.Int {
	n := new(big.Int)
	clean := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F', r >= 'a' && r <= 'f':
			clean = append(clean, byte(r))
		}
	}
	if _, ok := n.SetString(string(clean), 16); !ok {
		panic("crypto: invalid srp modulus constant")
	}
	return n
}

// srpK is SRP-6a's multiplier parameter: k = H(N || pad(g)).
func srpK() *big.Int {
	nLen := (srpN.BitLen() + 7) / 8
	h := sha512.New()
	h.Write(srpN.Bytes())
	h.Write(leftPad(srpG.Bytes(), nLen))
	return new(big.Int).SetBytes(h.Sum(nil))
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// srpX computes x = H(salt || H(username || ":" || password)) mod N.
func srpX(username, password, salt []byte) *big.Int {
	inner := sha512.New()
	inner.Write(username)
	inner.Write([]byte(":"))
	inner.Write(password)
	innerSum := inner.Sum(nil)

	outer := sha512.New()
	outer.Write(salt)
	outer.Write(innerSum)
	x := new(big.Int).SetBytes(outer.Sum(nil))
	return x.Mod(x, srpN)
}

func srpVerifier(username, password, salt []byte) *big.Int {
	x := srpX(username, password, salt)
	return new(big.Int).Exp(srpG, x, srpN)
}

// SRPVerifier computes v = g^x mod N for server-side registration.
func SRPVerifier(username, password, salt []byte) []byte {
	return srpVerifier(username, password, salt).Bytes()
}

func srpProof(a, b []byte, k []byte) []byte {
	h := sha512.New()
	h.Write(a)
	h.Write(b)
	h.Write(k)
	return h.Sum(nil)
}

func srpProof2(a, m1, k []byte) []byte {
	h := sha512.New()
	h.Write(a)
	h.Write(m1)
	h.Write(k)
	return h.Sum(nil)
}

// SRPClient is the client side of an SRP-6a exchange.
type SRPClient struct {
	a       *big.Int // private ephemeral
	aPub    *big.Int // public ephemeral A
	k       *big.Int
	sharedK []byte // session key K, available after ProcessChallenge
	m1      []byte
}

// NewSRPClient generates a random 32-byte private ephemeral and its public
// counterpart A = g^a mod N.
func NewSRPClient() (*SRPClient, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, errMsg(KindRngError, err.Error())
	}
	return SRPClientWithPrivateKey(buf), nil
}

// SRPClientWithPrivateKey builds a client from an explicit private
// ephemeral, mainly for deterministic tests.
func SRPClientWithPrivateKey(privateKey []byte) *SRPClient {
	a := new(big.Int).SetBytes(privateKey)
	aPub := new(big.Int).Exp(srpG, a, srpN)
	return &SRPClient{a: a, aPub: aPub, k: srpK()}
}

// PublicKey returns A's minimal big-endian encoding.
func (c *SRPClient) PublicKey() []byte {
	return c.aPub.Bytes()
}

// ProcessChallenge consumes the server's (salt, B) and username/password,
// producing the client proof M1. Returns an error if B mod N == 0 (SRP-6a
// safety check).
func (c *SRPClient) ProcessChallenge(username, password, salt, serverPublic []byte) error {
	b := new(big.Int).SetBytes(serverPublic)
	if new(big.Int).Mod(b, srpN).Sign() == 0 {
		return errMsg(KindSrpError, "server public key B is degenerate")
	}

	x := srpX(username, password, salt)

	u := srpU(c.aPub.Bytes(), serverPublic)
	if u.Sign() == 0 {
		return errMsg(KindSrpError, "scrambling parameter u is zero")
	}

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(srpG, x, srpN)
	kgx := new(big.Int).Mul(c.k, gx)
	base := new(big.Int).Sub(b, kgx)
	base.Mod(base, srpN)
	if base.Sign() < 0 {
		base.Add(base, srpN)
	}
	exp := new(big.Int).Add(c.a, new(big.Int).Mul(u, x))
	s := new(big.Int).Exp(base, exp, srpN)

	sessionKey := sha512.Sum512(s.Bytes())
	c.sharedK = sessionKey[:]
	c.m1 = srpProof(c.aPub.Bytes(), b.Bytes(), c.sharedK)
	return nil
}

// ClientProof returns M1, computable only after ProcessChallenge.
func (c *SRPClient) ClientProof() []byte {
	return c.m1
}

// VerifyServer checks the server's proof M2 and returns the shared
// 64-byte session key K on success.
func (c *SRPClient) VerifyServer(serverProof []byte) ([]byte, error) {
	expected := srpProof2(c.aPub.Bytes(), c.m1, c.sharedK)
	if !constantTimeEqual(expected, serverProof) {
		return nil, errMsg(KindSrpError, "server proof mismatch")
	}
	return c.sharedK, nil
}

func srpU(aBytes, bBytes []byte) *big.Int {
	h := sha512.New()
	h.Write(aBytes)
	h.Write(bBytes)
	return new(big.Int).SetBytes(h.Sum(nil))
}

// SRPServer is the server side of an SRP-6a exchange, holding a verifier
// registered at pairing time.
type SRPServer struct {
	verifier *big.Int
	b        *big.Int
	bPub     *big.Int
	k        *big.Int
	sharedK  []byte
}

// NewSRPServer creates a server ephemeral for the given stored verifier
// (see SRPVerifier). b is the server's private ephemeral (random 32
// bytes in production, fixed in tests).
func NewSRPServer(verifier, b []byte) *SRPServer {
	v := new(big.Int).SetBytes(verifier)
	bInt := new(big.Int).SetBytes(b)
	k := srpK()
	// B = k*v + g^b mod N
	kv := new(big.Int).Mul(k, v)
	gb := new(big.Int).Exp(srpG, bInt, srpN)
	bPub := new(big.Int).Add(kv, gb)
	bPub.Mod(bPub, srpN)
	return &SRPServer{verifier: v, b: bInt, bPub: bPub, k: k}
}

// PublicKey returns B's minimal big-endian encoding.
func (s *SRPServer) PublicKey() []byte {
	return s.bPub.Bytes()
}

// VerifyClient validates the client's proof M1 given the client's public
// key A, computing the shared session key in the process. Returns the
// server proof M2 on success.
func (s *SRPServer) VerifyClient(clientPublic, clientProof []byte) ([]byte, error) {
	a := new(big.Int).SetBytes(clientPublic)
	if new(big.Int).Mod(a, srpN).Sign() == 0 {
		return nil, errMsg(KindSrpError, "client public key A is degenerate")
	}

	u := srpU(clientPublic, s.bPub.Bytes())
	if u.Sign() == 0 {
		return nil, errMsg(KindSrpError, "scrambling parameter u is zero")
	}

	// S = (A * v^u) ^ b mod N
	vu := new(big.Int).Exp(s.verifier, u, srpN)
	base := new(big.Int).Mul(a, vu)
	base.Mod(base, srpN)
	sVal := new(big.Int).Exp(base, s.b, srpN)

	sessionKey := sha512.Sum512(sVal.Bytes())
	s.sharedK = sessionKey[:]

	expected := srpProof(a.Bytes(), s.bPub.Bytes(), s.sharedK)
	if !constantTimeEqual(expected, clientProof) {
		return nil, errMsg(KindSrpError, "client proof (M1) mismatch")
	}

	return srpProof2(a.Bytes(), clientProof, s.sharedK), nil
}

// SessionKey returns K, valid only after a successful VerifyClient.
func (s *SRPServer) SessionKey() []byte {
	return s.sharedK
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
