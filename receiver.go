package raopx

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raopx/raopx/crypto"
	"github.com/raopx/raopx/jitter"
	"github.com/raopx/raopx/keystore"
	"github.com/raopx/raopx/mdns"
	raopxmetrics "github.com/raopx/raopx/metrics"
	"github.com/raopx/raopx/pairing"
	"github.com/raopx/raopx/ptp"
	"github.com/raopx/raopx/rtp"
	"github.com/raopx/raopx/rtsp"
	"github.com/raopx/raopx/sdp"
	"github.com/raopx/raopx/session"
	"github.com/raopx/raopx/tlv8"
	"github.com/rs/zerolog"
)

// defaultSetupUsername is the fixed SRP username HAP pair-setup always
// uses; the real secret is the setup code, not the username.
var defaultSetupUsername = []byte("Pair-Setup")

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	Name       string // friendly device name, advertised over mDNS
	ListenAddr string // RTSP control listen address, e.g. ":5000"
	SessionCfg session.Config

	JitterTargetMS int
	JitterMaxMS    int
	Advertise      bool

	// RecordTo, when set, receives the raw PCM pulled from the jitter
	// buffer. Platform audio sinks are an external collaborator this
	// module doesn't implement, so a file is the one observable output.
	RecordTo string

	// KeystoreDir, when non-empty, enables AirPlay 2 pairing: the
	// receiver's own identity and every paired controller's long-term
	// public key are persisted under this directory. Empty disables
	// pair-setup/pair-verify, which are then answered 501; legacy
	// auth-setup is served either way.
	KeystoreDir string

	// SetupCode is the SRP password pair-setup's M1-M4 exchange
	// verifies the controller against.
	SetupCode string

	// PTPListen, when non-empty, binds the IEEE 1588 event (319) and
	// general (320) UDP ports on that address and runs this receiver
	// as a PTP BMCA participant. The node's clock is not fed into the
	// jitter buffer or any session coordinator. Empty (the default)
	// disables PTP.
	PTPListen string

	// PTPPeers lists the other group members' addresses Announce,
	// Sync, and Follow_Up traffic is addressed to.
	PTPPeers []string
}

// DefaultReceiverConfig mirrors the reference receiver's jitter defaults.
func DefaultReceiverConfig(name, listenAddr string) ReceiverConfig {
	return ReceiverConfig{
		Name:           name,
		ListenAddr:     listenAddr,
		SessionCfg:     session.DefaultConfig(),
		JitterTargetMS: 200,
		JitterMaxMS:    1000,
		Advertise:      true,
		KeystoreDir:    "raopx-keystore",
		SetupCode:      "3939",
	}
}

// Receiver is a thin AirPlay 1 (RAOP) receiver: it accepts one RTSP
// control connection at a time, negotiates ANNOUNCE/SETUP/RECORD, and
// reassembles the UDP audio stream through an adaptive jitter buffer.
type Receiver struct {
	cfg ReceiverConfig
	log zerolog.Logger

	manager    *session.Manager
	reg        *raopxmetrics.Registry
	advertiser *mdns.Advertiser

	identity pairing.LongTermIdentity
	keystore *keystore.Store

	ptpTransport  *ptp.UDPTransport
	ptpNode       *ptp.Node
	ptpClockIdent uint64

	mu          sync.Mutex
	alac        sdp.ALACFormat
	haveALAC    bool
	audioConn   *net.UDPConn
	buf         *jitter.Buffer
	recordFile  *os.File
	listenAddr  net.Addr
	authSetupDH *crypto.X25519KeyPair

	ready chan struct{}
	stop  chan struct{}
}

// NewReceiver constructs a Receiver, registering its metrics against
// reg (typically prometheus.DefaultRegisterer).
func NewReceiver(cfg ReceiverConfig, reg prometheus.Registerer, log zerolog.Logger) (*Receiver, error) {
	m, err := raopxmetrics.NewRegistry(reg)
	if err != nil {
		return nil, Wrap("new_receiver", err)
	}

	var identity pairing.LongTermIdentity
	var ks *keystore.Store
	if cfg.KeystoreDir != "" {
		identity, err = buildPairingIdentity(cfg.KeystoreDir)
		if err != nil {
			return nil, Wrap("new_receiver", err)
		}
		ks, err = keystore.NewStore(cfg.KeystoreDir)
		if err != nil {
			return nil, Wrap("new_receiver", err)
		}
	}

	var clockIdent uint64
	if cfg.PTPListen != "" {
		idBuf := make([]byte, 8)
		if _, err := cryptorand.Read(idBuf); err != nil {
			return nil, Wrap("new_receiver", err)
		}
		clockIdent = binary.BigEndian.Uint64(idBuf)
	}

	return &Receiver{
		cfg:           cfg,
		log:           log.With().Str("component", "receiver").Logger(),
		manager:       session.NewManager(cfg.SessionCfg, log),
		reg:           m,
		identity:      identity,
		keystore:      ks,
		ptpClockIdent: clockIdent,
		ready:         make(chan struct{}),
		stop:          make(chan struct{}),
	}, nil
}

// Addr blocks until Run has bound its listener, then returns its
// address. Useful for tests and for logging the port chosen when
// ListenAddr uses an OS-assigned ":0" port.
func (r *Receiver) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-r.ready:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.listenAddr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run listens for RTSP connections and advertises the service (if
// configured) until ctx is canceled.
func (r *Receiver) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.ListenAddr)
	if err != nil {
		return Wrap("receiver_listen", err)
	}
	defer ln.Close()

	r.mu.Lock()
	r.listenAddr = ln.Addr()
	r.mu.Unlock()
	close(r.ready)

	go r.manager.Run(r.stop)
	defer close(r.stop)

	if r.cfg.PTPListen != "" {
		if err := r.startPTP(ctx); err != nil {
			r.log.Warn().Err(err).Msg("ptp startup failed, continuing without clock sync")
		} else {
			defer r.ptpTransport.Close()
		}
	}

	if r.cfg.Advertise {
		if err := r.startAdvertising(ctx, ln.Addr()); err != nil {
			r.log.Warn().Err(err).Msg("mDNS advertisement failed, continuing without it")
		}
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	r.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return Wrap("receiver_accept", err)
		}
		go r.handleConn(ctx, conn)
	}
}

func (r *Receiver) startAdvertising(ctx context.Context, addr net.Addr) error {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	adv, err := mdns.NewAdvertiser(r.log)
	if err != nil {
		return err
	}
	r.advertiser = adv

	txt := mdns.RAOPTxt{
		CommonTxt: mdns.CommonTxt{
			DeviceID: r.cfg.Name,
			Features: mdns.Features(0).String(),
		},
		TxtVers:     "1",
		Channels:    "2",
		Codecs:      "0,1",
		Encryptions: "0",
		SampleRate:  "44100",
		SampleSize:  "16",
	}
	if err := adv.AdvertiseRAOP(r.cfg.Name, port, txt); err != nil {
		return err
	}

	go func() {
		if err := adv.Start(ctx); err != nil {
			r.log.Warn().Err(err).Msg("mDNS responder stopped")
		}
	}()
	return nil
}

// startPTP binds the event/general UDP ports and launches this
// receiver as a PTP BMCA participant, starting as a master candidate
// and settling into Master or Slave once other group members'
// Announce traffic (if any) is observed.
func (r *Receiver) startPTP(ctx context.Context) error {
	transport, err := ptp.NewUDPTransport(r.cfg.PTPListen)
	if err != nil {
		return err
	}

	priorities := ptp.LocalPriorities{Priority1: 128, Priority2: 128, ClockIdentity: r.ptpClockIdent}
	node := ptp.NewNode(transport, priorities, ptp.NewClock(r.ptpClockIdent), r.log)

	r.ptpTransport = transport
	r.ptpNode = node

	peers := func() []string { return r.cfg.PTPPeers }
	go func() {
		if err := ptp.RunNode(ctx, node, transport, peers, r.ptpClockIdent, r.log); err != nil && ctx.Err() == nil {
			r.log.Warn().Err(err).Msg("ptp node loop stopped")
		}
	}()
	return nil
}

// Close stops any running mDNS advertisement and ends the active session.
func (r *Receiver) Close() {
	if r.advertiser != nil {
		r.advertiser.Close()
	}
	r.manager.EndSession("receiver closed")
	r.mu.Lock()
	if r.audioConn != nil {
		r.audioConn.Close()
	}
	if r.recordFile != nil {
		r.recordFile.Close()
	}
	r.mu.Unlock()
}

func (r *Receiver) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	clientAddr := conn.RemoteAddr().String()
	log := r.log.With().Str("client", clientAddr).Logger()
	defer r.manager.EndSession("connection closed")

	pc := newPairingConn(r.identity, r.keystore)
	var sess *session.Session

	dec := rtsp.NewDecoder(conn)
	var writer io.Writer = conn

	for {
		req, err := dec.ReadMessage()
		if err != nil {
			return
		}
		r.manager.Touch()

		// POST (pair-setup/pair-verify/auth-setup) precedes any
		// streaming session, so it is dispatched before one is
		// lazily started below.
		if req.Method == "POST" {
			resp, upgraded := r.dispatchPairing(pc, req, conn)
			if _, err := writer.Write(resp.Encode()); err != nil {
				return
			}
			if upgraded != nil {
				dec = rtsp.NewDecoder(upgraded)
				writer = upgraded
			}
			continue
		}

		if sess == nil {
			sess, err = r.manager.StartSession(session.ProtocolAP1, clientAddr)
			if err != nil {
				log.Warn().Err(err).Msg("rejecting connection")
				return
			}
		}

		resp := r.dispatch(sess, req, pc)
		if _, err := writer.Write(resp.Encode()); err != nil {
			return
		}
		if req.Method == "TEARDOWN" {
			return
		}
	}
}

// dispatchPairing routes a POST request to the pair-setup, pair-verify,
// or legacy auth-setup handler by URI suffix, enforcing the
// failed-attempts lockout across all three. It returns a non-nil
// net.Conn only when pair-verify just completed: the caller must write
// the returned (still-plaintext) response first, then switch every
// subsequent read/write on the connection through it.
func (r *Receiver) dispatchPairing(pc *pairingConn, req *rtsp.Message, rawConn net.Conn) (*rtsp.Message, net.Conn) {
	if locked, remaining := pc.locked(); locked {
		resp := errorResponse(req, 503, "Service Unavailable")
		resp.Set("Retry-After", strconv.Itoa(int(remaining/time.Second)+1))
		return resp, nil
	}

	switch {
	case strings.HasSuffix(req.URI, "/pair-setup"):
		return r.handlePairSetup(pc, req), nil
	case strings.HasSuffix(req.URI, "/pair-verify"):
		return r.handlePairVerify(pc, req, rawConn)
	case strings.HasSuffix(req.URI, "/auth-setup"):
		return r.handleAuthSetup(req), nil
	default:
		return errorResponse(req, 501, "Not Implemented"), nil
	}
}

func (r *Receiver) handlePairSetup(pc *pairingConn, req *rtsp.Message) *rtsp.Message {
	if r.keystore == nil {
		return errorResponse(req, 501, "Not Implemented")
	}
	body, err := decodeTLVBody(req)
	if err != nil {
		return errorResponse(req, 400, "Bad Request")
	}
	state, ok := body.GetByte(tlv8.TagState)
	if !ok {
		return errorResponse(req, 400, "Bad Request")
	}

	var respTLV tlv8.Container
	switch state {
	case 1:
		if pc.setupServer == nil {
			pc.setupServer = pairing.NewSetupServer(pc.identity)
		}
		respTLV, err = pc.setupServer.ProcessM1AndBuildM2(body, defaultSetupUsername, []byte(r.cfg.SetupCode))
	case 3:
		if pc.setupServer == nil {
			return errorResponse(req, 400, "Bad Request")
		}
		respTLV, err = pc.setupServer.ProcessM3AndBuildM4(body)
	case 5:
		if pc.setupServer == nil {
			return errorResponse(req, 400, "Bad Request")
		}
		respTLV, err = pc.setupServer.ProcessM5AndBuildM6(body)
		if err == nil {
			peerID, peerLTPK := pc.setupServer.PeerIdentity()
			pc.justPairedID = peerID
			pc.justPairedLTPK = peerLTPK
			saveErr := r.keystore.Save(&keystore.PairingKeys{
				Identifier:       string(pc.identity.Identifier),
				SecretKey:        pc.identity.Keys.PrivateKeyBytes(),
				PublicKey:        pc.identity.Keys.PublicKey(),
				DeviceIdentifier: string(peerID),
				DevicePublicKey:  peerLTPK,
			})
			if saveErr != nil {
				r.log.Warn().Err(saveErr).Msg("persisting paired identity failed")
			}
		}
	default:
		return errorResponse(req, 400, "Bad Request")
	}

	if err != nil {
		pc.recordFailure()
		return r.pairingErrorResponse(req, err)
	}

	resp := rtsp.NewResponse(200, "OK")
	resp.Set("CSeq", cseqOf(req))
	resp.Set("Content-Type", pairingContentType)
	resp.Body = tlv8.Encode(respTLV)
	return resp
}

func (r *Receiver) handlePairVerify(pc *pairingConn, req *rtsp.Message, rawConn net.Conn) (*rtsp.Message, net.Conn) {
	if r.keystore == nil {
		return errorResponse(req, 501, "Not Implemented"), nil
	}
	body, err := decodeTLVBody(req)
	if err != nil {
		return errorResponse(req, 400, "Bad Request"), nil
	}
	state, ok := body.GetByte(tlv8.TagState)
	if !ok {
		return errorResponse(req, 400, "Bad Request"), nil
	}

	switch state {
	case 1:
		vs, err := pairing.NewVerifyServer(pc.identity)
		if err != nil {
			return errorResponse(req, 500, "Internal Error"), nil
		}
		pc.verifyServer = vs
		m2, err := vs.ProcessM1AndBuildM2(body)
		if err != nil {
			pc.recordFailure()
			return r.pairingErrorResponse(req, err), nil
		}
		resp := rtsp.NewResponse(200, "OK")
		resp.Set("CSeq", cseqOf(req))
		resp.Set("Content-Type", pairingContentType)
		resp.Body = tlv8.Encode(m2)
		return resp, nil

	case 3:
		if pc.verifyServer == nil {
			return errorResponse(req, 400, "Bad Request"), nil
		}
		m4, err := pc.verifyServer.ProcessM3AndBuildM4(body, pc.peerLookup)
		if err != nil {
			pc.recordFailure()
			return r.pairingErrorResponse(req, err), nil
		}

		writeKey, readKey := pc.verifyServer.Keys()
		codec, err := rtsp.NewHAPCodec(writeKey, readKey)
		if err != nil {
			return errorResponse(req, 500, "Internal Error"), nil
		}
		audioKey, err := deriveAudioKey(writeKey)
		if err != nil {
			return errorResponse(req, 500, "Internal Error"), nil
		}
		pc.verified = true
		pc.audioKey = audioKey

		resp := rtsp.NewResponse(200, "OK")
		resp.Set("CSeq", cseqOf(req))
		resp.Set("Content-Type", pairingContentType)
		resp.Body = tlv8.Encode(m4)
		return resp, rtsp.NewHAPConn(rawConn, codec)

	default:
		return errorResponse(req, 400, "Bad Request"), nil
	}
}

func (r *Receiver) handleAuthSetup(req *rtsp.Message) *rtsp.Message {
	if _, err := pairing.ParseAuthSetupRequest(req.Body); err != nil {
		return errorResponse(req, 400, "Bad Request")
	}

	r.mu.Lock()
	if r.authSetupDH == nil {
		dh, err := crypto.GenerateX25519()
		if err != nil {
			r.mu.Unlock()
			return errorResponse(req, 500, "Internal Error")
		}
		r.authSetupDH = dh
	}
	ownPub := r.authSetupDH.PublicKey()
	r.mu.Unlock()

	resp := rtsp.NewResponse(200, "OK")
	resp.Set("CSeq", cseqOf(req))
	resp.Body = pairing.AuthSetupResponseTLV(ownPub)
	return resp
}

// pairingErrorResponse classifies a pairing failure into 403 Forbidden
// (the exchange authenticated against the wrong secret or an unknown
// peer) or 400 Bad Request (anything else — malformed TLV8, an
// out-of-sequence state byte).
func (r *Receiver) pairingErrorResponse(req *rtsp.Message, err error) *rtsp.Message {
	wrapped := Wrap("pairing", err)
	if wrapped.Kind == KindCrypto || wrapped.Kind == KindAuthentication {
		return errorResponse(req, 403, "Forbidden")
	}
	return errorResponse(req, 400, "Bad Request")
}

func (r *Receiver) dispatch(sess *session.Session, req *rtsp.Message, pc *pairingConn) *rtsp.Message {
	state := ap1ToRTSPState(sess.AP1State())
	if err := rtsp.CheckMethod(state, req); err != nil {
		return errorResponse(req, 455, "Method Not Valid In This State")
	}

	var err error
	switch req.Method {
	case "OPTIONS":
		resp := rtsp.NewResponse(200, "OK")
		resp.Set("CSeq", cseqOf(req))
		resp.Set("Public", strings.Join(rtsp.AllMethods, ", "))
		return resp
	case "ANNOUNCE":
		err = r.handleAnnounce(sess, req)
	case "SETUP":
		return r.handleSetup(sess, req, pc)
	case "RECORD":
		err = sess.SetAP1State(session.AP1Streaming)
	case "PAUSE":
		err = sess.SetAP1State(session.AP1Paused)
	case "FLUSH":
		r.mu.Lock()
		if r.buf != nil {
			r.buf.FlushTo(r.buf.PlaybackPosition())
		}
		r.mu.Unlock()
	case "SET_PARAMETER":
		r.handleSetParameter(req)
	case "GET_PARAMETER":
	case "TEARDOWN":
		err = sess.SetAP1State(session.AP1Teardown)
	default:
		return errorResponse(req, 501, "Not Implemented")
	}

	if err != nil {
		return errorResponse(req, 400, "Bad Request")
	}
	resp := rtsp.NewResponse(200, "OK")
	resp.Set("CSeq", cseqOf(req))
	return resp
}

func (r *Receiver) handleAnnounce(sess *session.Session, req *rtsp.Message) error {
	sd := sdp.SessionDescription{}
	if err := sdp.Unmarshal(req.Body, &sd); err != nil {
		return err
	}
	params, err := sdp.ParseRAOPAnnounce(sd)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.alac = params.ALAC
	r.haveALAC = true
	r.mu.Unlock()

	return sess.SetAP1State(session.AP1Announced)
}

func (r *Receiver) handleSetup(sess *session.Session, req *rtsp.Message, pc *pairingConn) *rtsp.Message {
	audioPort, controlPort, timingPort := r.manager.AllocatePorts()

	audioConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: int(audioPort)})
	if err != nil {
		return errorResponse(req, 500, "Internal Error")
	}

	r.mu.Lock()
	if r.audioConn != nil {
		r.audioConn.Close()
	}
	r.audioConn = audioConn
	alac := r.alac
	haveALAC := r.haveALAC
	if r.cfg.RecordTo != "" && r.recordFile == nil {
		if f, ferr := os.Create(r.cfg.RecordTo); ferr == nil {
			r.recordFile = f
		}
	}
	r.mu.Unlock()

	channels := alacChannels
	sampleRate := uint32(alacSampleRate)
	if haveALAC {
		channels = alac.Channels
		sampleRate = uint32(alac.SampleRate)
	}
	buf := jitter.NewBuffer(sampleRate, channels, r.cfg.JitterTargetMS, r.cfg.JitterMaxMS)
	r.mu.Lock()
	r.buf = buf
	r.mu.Unlock()

	var decryptor *rtp.Encryptor
	if pc.verified {
		if enc, derr := rtp.NewChaCha20Encryptor(pc.audioKey[:]); derr == nil {
			decryptor = enc
		} else {
			r.log.Warn().Err(derr).Msg("audio decryptor init failed, streaming undecrypted")
		}
	}
	go r.readAudio(audioConn, buf, sess.ID, decryptor)

	if err := sess.SetAP1State(session.AP1Setup); err != nil {
		audioConn.Close()
		return errorResponse(req, 455, "Method Not Valid In This State")
	}

	resp := rtsp.NewResponse(200, "OK")
	resp.Set("CSeq", cseqOf(req))
	resp.Set("Session", sess.ID)
	resp.Set("Transport", fmt.Sprintf("RTP/AVP/UDP;unicast;server_port=%d;control_port=%d;timing_port=%d", audioPort, controlPort, timingPort))
	return resp
}

func (r *Receiver) handleSetParameter(req *rtsp.Message) {
	body := string(req.Body)
	if !strings.HasPrefix(strings.TrimSpace(body), "volume:") {
		return
	}
	fields := strings.SplitN(body, ":", 2)
	if len(fields) != 2 {
		return
	}
	db, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return
	}
	r.manager.SetVolumeDB(db)
}

// readAudio pulls RTP packets off conn until it is closed, decoding
// (trivially, since platform codecs are out of scope here: the raw
// wire payload is treated as already-PCM frames) and feeding them to
// buf, periodically pulling decoded audio out to RecordTo.
func (r *Receiver) readAudio(conn *net.UDPConn, buf *jitter.Buffer, sessionID string, decryptor *rtp.Encryptor) {
	defer conn.Close()
	pkt := make([]byte, 2048)

	pullTicker := time.NewTicker(20 * time.Millisecond)
	defer pullTicker.Stop()
	go func() {
		lastFramesLost := 0
		for range pullTicker.C {
			r.mu.Lock()
			active := r.buf == buf
			f := r.recordFile
			r.mu.Unlock()
			if !active {
				return
			}
			samples := buf.Pull(alacFramesPerPacket)
			if f != nil {
				writeSamplesLE(f, samples)
			}
			if lost := buf.FramesLost(); lost > lastFramesLost {
				for i := 0; i < lost-lastFramesLost; i++ {
					r.reg.IncJitterUnderrun(sessionID)
				}
				lastFramesLost = lost
			}
			r.reg.SetJitterDepth(sessionID, buf.DepthFrames())
		}
	}()

	for {
		n, _, err := conn.ReadFromUDP(pkt)
		if err != nil {
			return
		}
		hdr, err := rtp.ParseHeader(pkt[:n])
		if err != nil {
			continue
		}
		payload := pkt[rtp.HeaderLen:n]
		if decryptor != nil {
			plain, derr := decryptor.Unprotect(hdr.SequenceNumber, pkt[:rtp.HeaderLen], payload)
			if derr != nil {
				continue
			}
			payload = plain
		}
		samples := bytesToSamplesLE(payload)
		buf.Push(hdr.SequenceNumber, jitter.Frame{Timestamp: hdr.Timestamp, Samples: samples})
		r.manager.Touch()
	}
}

func writeSamplesLE(f *os.File, samples []int16) {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[2*i] = byte(s)
		b[2*i+1] = byte(s >> 8)
	}
	f.Write(b)
}

func bytesToSamplesLE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

func cseqOf(req *rtsp.Message) string {
	v, _ := req.Get("CSeq")
	return v
}

func errorResponse(req *rtsp.Message, code int, reason string) *rtsp.Message {
	resp := rtsp.NewResponse(code, reason)
	resp.Set("CSeq", cseqOf(req))
	return resp
}

// ap1ToRTSPState maps the session package's AP1State onto the RTSP
// layer's method-allowed table states.
func ap1ToRTSPState(s session.AP1State) rtsp.SessionState {
	switch s {
	case session.AP1Connected:
		return rtsp.StatePaired
	case session.AP1Announced:
		return rtsp.StateAnnounced
	case session.AP1Setup:
		return rtsp.StateSetup
	case session.AP1Streaming:
		return rtsp.StateStreaming
	case session.AP1Paused:
		return rtsp.StatePaused
	default:
		return rtsp.StateTeardown
	}
}
