package raopx

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/raopx/raopx/keystore"
	"github.com/raopx/raopx/pairing"
	"github.com/raopx/raopx/rtp"
	"github.com/raopx/raopx/rtsp"
	"github.com/raopx/raopx/sdp"
	"github.com/raopx/raopx/session"
	"github.com/rs/zerolog"
)

// Resolver turns a friendly device name into a dialable "host:port"
// address. mDNS/DNS-SD browsing is an external collaborator to this
// module (see the TXT-record schema mdns.RAOPTxt/mdns.AirPlayTxt
// describe); Client accepts whatever Resolver the caller wires in
// rather than browsing the network itself.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// DefaultRAOPPort is the conventional legacy RAOP control port.
const DefaultRAOPPort = "5000"

// staticPortResolver treats name as already dialable, appending
// DefaultRAOPPort if it has no port of its own. It is the fallback
// used when ConnectByName is called with no explicit Resolver.
type staticPortResolver struct{ port string }

func (r staticPortResolver) Resolve(_ context.Context, name string) (string, error) {
	if _, _, err := net.SplitHostPort(name); err == nil {
		return name, nil
	}
	return net.JoinHostPort(name, r.port), nil
}

// Client is a thin AirPlay 1 (RAOP) sender: it speaks RTSP/1.0 over a
// TCP control connection and pushes raw audio frames over a UDP data
// connection. It implements the CLI surface every raopx sender tool
// wraps: connect, set volume, play a file, stop.
type Client struct {
	log zerolog.Logger

	mu         sync.Mutex
	conn       net.Conn
	decoder    *rtsp.Decoder
	cseq       int
	sessionID  uint64
	rtspToken  string
	clientIP   string
	serverIP   string
	serverPort string

	audioConn     *net.UDPConn
	serverAudio   *net.UDPAddr
	packetizer    *rtp.Packetizer
	reconnect     *session.ReconnectSupervisor
	lastConnected string // addr used for the most recent Connect, for ReconnectSupervisor

	identity       pairing.LongTermIdentity
	keystore       *keystore.Store
	peerIdentifier []byte
	pairVerified   bool
	audioKey       [32]byte
}

const (
	alacPayloadType     = 96
	alacFramesPerPacket = 352
	alacChannels        = 2
	alacBitDepth        = 16
	alacSampleRate      = 44100
)

func defaultALAC() sdp.ALACFormat {
	return sdp.ALACFormat{
		PayloadType:     alacPayloadType,
		FramesPerPacket: alacFramesPerPacket,
		CompatibleVer:   0,
		BitDepth:        alacBitDepth,
		Pb:              40,
		Mb:              10,
		Kb:              14,
		Channels:        alacChannels,
		MaxRun:          255,
		MaxFrameBytes:   0,
		AvgBitRate:      0,
		SampleRate:      alacSampleRate,
	}
}

// Connect dials a RAOP receiver directly at addr ("host:port").
func Connect(ctx context.Context, addr string, log zerolog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, New(KindConnection, "connect", err)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		conn.Close()
		return nil, New(KindConnection, "connect", err)
	}
	localHost, _, _ := net.SplitHostPort(conn.LocalAddr().String())

	c := &Client{
		log:           log.With().Str("component", "client").Str("server", addr).Logger(),
		conn:          conn,
		decoder:       rtsp.NewDecoder(conn),
		sessionID:     uint64(time.Now().UnixNano()),
		clientIP:      localHost,
		serverIP:      host,
		serverPort:    port,
		lastConnected: addr,
		reconnect:     session.NewReconnectSupervisor(5, 2*time.Second, log),
	}
	c.reconnect.NotifyConnect()
	return c, nil
}

// ConnectByName resolves name with resolver (or, if nil, the default
// host:port-passthrough resolver) and connects within timeout.
func ConnectByName(ctx context.Context, name string, timeout time.Duration, resolver Resolver, log zerolog.Logger) (*Client, error) {
	if resolver == nil {
		resolver = staticPortResolver{port: DefaultRAOPPort}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, err := resolver.Resolve(ctx, name)
	if err != nil {
		return nil, New(KindConnection, "connect_by_name", err)
	}
	return Connect(ctx, addr, log)
}

// EnablePairing loads or creates this client's long-term identity from
// dir (creating the directory on first use) and opens its keystore of
// previously-paired accessories. It must be called before PairSetup or
// PairVerify.
func (c *Client) EnablePairing(dir string) error {
	identity, err := buildPairingIdentity(dir)
	if err != nil {
		return Wrap("enable_pairing", err)
	}
	ks, err := keystore.NewStore(dir)
	if err != nil {
		return Wrap("enable_pairing", err)
	}
	c.mu.Lock()
	c.identity = identity
	c.keystore = ks
	c.mu.Unlock()
	return nil
}

// pairingURI builds the URI POST uses for one of the three pairing
// exchanges, sharing the session's rtsp:// base with every other
// control request.
func (c *Client) pairingURI(suffix string) string {
	return "rtsp://" + c.serverIP + "/" + strconv.FormatUint(c.sessionID, 10) + "/" + suffix
}

// PairSetup runs the SRP pair-setup handshake (M1-M6) against setupCode,
// the accessory's displayed PIN, persisting the accessory's long-term
// public key on success.
func (c *Client) PairSetup(setupCode string) error {
	sc := pairing.NewSetupClient(c.identity)

	m1 := sc.BuildM1()
	resp, err := c.roundTrip(tlvRequest(c.pairingURI("pair-setup"), m1))
	if err != nil {
		return Wrap("pair_setup", err)
	}
	m2, err := decodeTLVBody(resp)
	if err != nil {
		return Wrap("pair_setup", err)
	}

	m3, err := sc.ProcessM2AndBuildM3(m2, defaultSetupUsername, []byte(setupCode))
	if err != nil {
		return Wrap("pair_setup", err)
	}
	resp, err = c.roundTrip(tlvRequest(c.pairingURI("pair-setup"), m3))
	if err != nil {
		return Wrap("pair_setup", err)
	}
	m4, err := decodeTLVBody(resp)
	if err != nil {
		return Wrap("pair_setup", err)
	}

	m5, err := sc.ProcessM4AndBuildM5(m4)
	if err != nil {
		return Wrap("pair_setup", err)
	}
	resp, err = c.roundTrip(tlvRequest(c.pairingURI("pair-setup"), m5))
	if err != nil {
		return Wrap("pair_setup", err)
	}
	m6, err := decodeTLVBody(resp)
	if err != nil {
		return Wrap("pair_setup", err)
	}

	if err := sc.ProcessM6(m6); err != nil {
		return Wrap("pair_setup", err)
	}

	peerID, peerLTPK := sc.PeerIdentity()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keystore == nil {
		return New(KindState, "pair_setup", fmt.Errorf("pairing not enabled, call EnablePairing first"))
	}
	return c.keystore.Save(&keystore.PairingKeys{
		Identifier:       string(c.identity.Identifier),
		SecretKey:        c.identity.Keys.PrivateKeyBytes(),
		PublicKey:        c.identity.Keys.PublicKey(),
		DeviceIdentifier: string(peerID),
		DevicePublicKey:  peerLTPK,
	})
}

// peerLookup resolves a previously-paired accessory's identifier to its
// stored long-term public key, for pair-verify's signature check.
func (c *Client) peerLookup(identifier []byte) ([]byte, bool) {
	if c.keystore == nil {
		return nil, false
	}
	keys, err := c.keystore.Load(string(identifier))
	if err != nil {
		return nil, false
	}
	return keys.DevicePublicKey, true
}

// PairVerify runs pair-verify (M1-M4) against an accessory this client
// has already completed PairSetup with, deriving the control and audio
// keys and switching the control connection into HAP-framed mode for
// all subsequent traffic.
func (c *Client) PairVerify() error {
	vc, err := pairing.NewVerifyClient(c.identity)
	if err != nil {
		return Wrap("pair_verify", err)
	}

	m1 := vc.BuildM1()
	resp, err := c.roundTrip(tlvRequest(c.pairingURI("pair-verify"), m1))
	if err != nil {
		return Wrap("pair_verify", err)
	}
	m2, err := decodeTLVBody(resp)
	if err != nil {
		return Wrap("pair_verify", err)
	}

	m3, err := vc.ProcessM2AndBuildM3(m2, c.peerLookup)
	if err != nil {
		return Wrap("pair_verify", err)
	}
	resp, err = c.roundTrip(tlvRequest(c.pairingURI("pair-verify"), m3))
	if err != nil {
		return Wrap("pair_verify", err)
	}
	m4, err := decodeTLVBody(resp)
	if err != nil {
		return Wrap("pair_verify", err)
	}

	if err := vc.ProcessM4(m4); err != nil {
		return Wrap("pair_verify", err)
	}

	writeKey, readKey := vc.Keys()
	codec, err := rtsp.NewHAPCodec(writeKey, readKey)
	if err != nil {
		return Wrap("pair_verify", err)
	}
	audioKey, err := deriveAudioKey(writeKey)
	if err != nil {
		return Wrap("pair_verify", err)
	}

	c.mu.Lock()
	c.conn = rtsp.NewHAPConn(c.conn, codec)
	c.decoder = rtsp.NewDecoder(c.conn)
	c.pairVerified = true
	c.audioKey = audioKey
	c.mu.Unlock()
	return nil
}

func (c *Client) nextCSeq() int {
	c.cseq++
	return c.cseq
}

// roundTrip sends req and returns the parsed response, adding CSeq and
// Session headers as needed.
func (c *Client) roundTrip(req *rtsp.Message) (*rtsp.Message, error) {
	req.Set("CSeq", strconv.Itoa(c.nextCSeq()))
	if c.rtspToken != "" && req.Method != "OPTIONS" && req.Method != "ANNOUNCE" {
		req.Set("Session", c.rtspToken)
	}
	req.Set("User-Agent", "raopx")

	if _, err := c.conn.Write(req.Encode()); err != nil {
		return nil, Wrap("rtsp_request", err)
	}
	resp, err := c.decoder.ReadMessage()
	if err != nil {
		return nil, Wrap("rtsp_response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, New(KindProtocol, req.Method, fmt.Errorf("unexpected status %d %s", resp.StatusCode, resp.Reason))
	}
	return resp, nil
}

// announce sends ANNOUNCE with a minimal ALAC SDP body and records
// the session's audio format.
func (c *Client) announce() error {
	alac := defaultALAC()
	body := sdp.BuildRAOPAnnounce(c.sessionID, c.clientIP, c.serverIP, alac)

	req := rtsp.NewRequest("ANNOUNCE", "rtsp://"+c.serverIP+"/"+strconv.FormatUint(c.sessionID, 10))
	req.Set("Content-Type", "application/sdp")
	req.Body = body

	if _, err := c.roundTrip(req); err != nil {
		return Wrap("announce", err)
	}

	c.mu.Lock()
	c.packetizer = rtp.NewPacketizer(alacPayloadType, alacFramesPerPacket, alacChannels*alacBitDepth/8, uint32(c.sessionID), 0)
	if c.pairVerified {
		if enc, eerr := rtp.NewChaCha20Encryptor(c.audioKey[:]); eerr == nil {
			c.packetizer.SetEncryptor(enc)
		} else {
			c.log.Warn().Err(eerr).Msg("audio encryptor init failed, streaming undecrypted")
		}
	}
	c.mu.Unlock()
	return nil
}

// setup opens the client's audio UDP socket, sends SETUP, and parses
// the receiver's reply to learn its own audio port.
func (c *Client) setup() error {
	audioConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return Wrap("setup", err)
	}
	clientPort := audioConn.LocalAddr().(*net.UDPAddr).Port

	req := rtsp.NewRequest("SETUP", "rtsp://"+c.serverIP+"/"+strconv.FormatUint(c.sessionID, 10))
	req.Set("Transport", fmt.Sprintf("RTP/AVP/UDP;unicast;interleaved=0-1;mode=record;control_port=%d;timing_port=%d;client_port=%d", clientPort, clientPort, clientPort))

	resp, err := c.roundTrip(req)
	if err != nil {
		audioConn.Close()
		return Wrap("setup", err)
	}

	if token, ok := resp.Get("Session"); ok {
		c.rtspToken = token
	}
	serverPort := clientPort
	if transport, ok := resp.Get("Transport"); ok {
		if p, ok := parseTransportField(transport, "server_port"); ok {
			serverPort = p
		}
	}

	serverAudio, err := net.ResolveUDPAddr("udp", net.JoinHostPort(c.serverIP, strconv.Itoa(serverPort)))
	if err != nil {
		audioConn.Close()
		return Wrap("setup", err)
	}

	c.mu.Lock()
	c.audioConn = audioConn
	c.serverAudio = serverAudio
	c.mu.Unlock()
	return nil
}

func parseTransportField(transport, field string) (int, bool) {
	for _, part := range strings.Split(transport, ";") {
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 && kv[0] == field {
			// client_port/server_port sometimes carry a "N-N" pair; take the first.
			valStr := strings.SplitN(kv[1], "-", 2)[0]
			n, err := strconv.Atoi(valStr)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// record sends RECORD, which starts the stream clock; the first
// packet sent afterward must carry the RTP marker bit.
func (c *Client) record() error {
	req := rtsp.NewRequest("RECORD", "rtsp://"+c.serverIP+"/"+strconv.FormatUint(c.sessionID, 10))
	req.Set("Range", "npt=0-")
	req.Set("RTP-Info", "seq=0;rtptime=0")
	if _, err := c.roundTrip(req); err != nil {
		return Wrap("record", err)
	}
	c.mu.Lock()
	if c.packetizer != nil {
		c.packetizer.SetMarkerOnNext()
	}
	c.mu.Unlock()
	return nil
}

// SetVolume sets the session volume from a linear 0.0-1.0 value, per
// the same dB conversion the receiver side applies.
func (c *Client) SetVolume(linear float64) error {
	db := session.LinearToDB(linear)
	req := rtsp.NewRequest("SET_PARAMETER", "rtsp://"+c.serverIP+"/"+strconv.FormatUint(c.sessionID, 10))
	req.Set("Content-Type", "text/parameters")
	req.Body = []byte(fmt.Sprintf("volume: %.6f\r\n", db))
	if _, err := c.roundTrip(req); err != nil {
		return Wrap("set_volume", err)
	}
	return nil
}

// PlayFile announces, sets up, records, and streams path's raw audio
// frames (already in the wire sample format: 16-bit/44.1kHz/stereo
// interleaved PCM) to the receiver over UDP.
func (c *Client) PlayFile(path string) error {
	if err := c.announce(); err != nil {
		return err
	}
	if err := c.setup(); err != nil {
		return err
	}
	if err := c.record(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return Wrap("play_file", err)
	}
	defer f.Close()

	c.mu.Lock()
	packetizer := c.packetizer
	audioConn := c.audioConn
	serverAudio := c.serverAudio
	c.mu.Unlock()

	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			packetizer.AddAudio(buf[:n])
			for _, pkt := range packetizer.Build() {
				if _, werr := audioConn.WriteToUDP(pkt, serverAudio); werr != nil {
					return Wrap("play_file", werr)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Wrap("play_file", err)
		}
	}

	packetizer.Flush()
	for _, pkt := range packetizer.Build() {
		if _, werr := audioConn.WriteToUDP(pkt, serverAudio); werr != nil {
			return Wrap("play_file", werr)
		}
	}
	if err := packetizer.Err(); err != nil {
		return Wrap("play_file", err)
	}
	return nil
}

// HandleDisconnect runs the reconnection supervisor against the
// address this client was originally connected to, replacing its
// control connection in place on success. It is a no-op if the most
// recent disconnect was caused by Stop.
func (c *Client) HandleDisconnect(ctx context.Context) error {
	return c.reconnect.OnDisconnect(ctx, func(ctx context.Context) error {
		fresh, err := Connect(ctx, c.lastConnected, c.log)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.conn.Close()
		c.conn = fresh.conn
		c.decoder = fresh.decoder
		c.cseq = 0
		c.rtspToken = ""
		c.pairVerified = false
		c.mu.Unlock()
		return nil
	})
}

// Stop tears the session down and closes the connection. The client
// is not usable afterward; this also disables any pending
// reconnection attempt, since this is a user-initiated disconnect.
func (c *Client) Stop() error {
	c.reconnect.NotifyUserDisconnect()

	req := rtsp.NewRequest("TEARDOWN", "rtsp://"+c.serverIP+"/"+strconv.FormatUint(c.sessionID, 10))
	_, err := c.roundTrip(req)

	c.mu.Lock()
	if c.audioConn != nil {
		c.audioConn.Close()
	}
	c.conn.Close()
	c.mu.Unlock()

	if err != nil {
		return Wrap("stop", err)
	}
	return nil
}
