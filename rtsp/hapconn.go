package rtsp

import (
	"net"
)

// HAPConn wraps a net.Conn, transparently encrypting every Write and
// decrypting every Read through a HAPCodec, the same way crypto/tls.Conn
// wraps a raw socket. Once pair-verify completes, a connection's
// net.Conn is replaced with a *HAPConn and every subsequent RTSP message
// on it — including the control-channel traffic this file carries — is
// HAP-framed.
type HAPConn struct {
	net.Conn
	codec *HAPCodec

	raw   []byte // undecoded bytes read from the underlying conn
	plain []byte // decoded plaintext not yet consumed by Read
}

// NewHAPConn wraps conn, framing all further traffic through codec.
func NewHAPConn(conn net.Conn, codec *HAPCodec) *HAPConn {
	return &HAPConn{Conn: conn, codec: codec}
}

// Write encrypts p as one or more HAP frames (chunked to MaxFrameLength)
// and writes them to the underlying connection.
func (c *HAPConn) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > MaxFrameLength {
			chunk = chunk[:MaxFrameLength]
		}
		frame, err := c.codec.EncryptFrame(chunk)
		if err != nil {
			return written, err
		}
		if _, err := c.Conn.Write(frame); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// Read decrypts and returns the next HAP frame's plaintext, reading
// more from the underlying connection as needed and buffering any
// plaintext beyond what p can hold for the next call.
func (c *HAPConn) Read(p []byte) (int, error) {
	var pending error
	for len(c.plain) == 0 {
		plain, consumed, err := c.codec.DecryptFrame(c.raw)
		if err != nil {
			return 0, err
		}
		if consumed > 0 {
			c.raw = c.raw[consumed:]
			c.plain = plain
			break
		}
		if pending != nil {
			return 0, pending
		}

		buf := make([]byte, 4096)
		n, err := c.Conn.Read(buf)
		if n > 0 {
			c.raw = append(c.raw, buf[:n]...)
		}
		if err != nil {
			pending = err
		}
	}

	n := copy(p, c.plain)
	c.plain = c.plain[n:]
	return n, nil
}
