package raopx

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raopx/raopx/rtp"
	"github.com/raopx/raopx/rtsp"
	"github.com/raopx/raopx/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplesLERoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[2*i] = byte(s)
		b[2*i+1] = byte(s >> 8)
	}
	assert.Equal(t, samples, bytesToSamplesLE(b))
}

func TestAP1ToRTSPStateMapping(t *testing.T) {
	assert.Equal(t, rtsp.StateAnnounced, ap1ToRTSPState(session.AP1Announced))
	assert.Equal(t, rtsp.StateSetup, ap1ToRTSPState(session.AP1Setup))
	assert.Equal(t, rtsp.StateStreaming, ap1ToRTSPState(session.AP1Streaming))
	assert.Equal(t, rtsp.StatePaused, ap1ToRTSPState(session.AP1Paused))
	assert.Equal(t, rtsp.StateTeardown, ap1ToRTSPState(session.AP1Teardown))
}

func newTestReceiver(t *testing.T, recordTo string) *Receiver {
	t.Helper()
	cfg := DefaultReceiverConfig("test-receiver", "127.0.0.1:0")
	cfg.Advertise = false
	cfg.RecordTo = recordTo
	r, err := NewReceiver(cfg, prometheus.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestReceiverFullHandshakeAndAudio(t *testing.T) {
	recordPath := t.TempDir() + "/out.pcm"
	r := newTestReceiver(t, recordPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	addr, err := r.Addr(ctx)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	dec := rtsp.NewDecoder(conn)

	roundTrip := func(req *rtsp.Message, cseq int) *rtsp.Message {
		req.Set("CSeq", strconv.Itoa(cseq))
		_, werr := conn.Write(req.Encode())
		require.NoError(t, werr)
		resp, rerr := dec.ReadMessage()
		require.NoError(t, rerr)
		return resp
	}

	sdpBody := "v=0\r\n" +
		"o=iTunes 123 1 IN IP4 127.0.0.1\r\n" +
		"s=iTunes\r\n" +
		"c=IN IP4 127.0.0.1\r\n" +
		"t=0 0\r\n" +
		"m=audio 0 RTP/AVP 96\r\n" +
		"a=rtpmap:96 AppleLossless\r\n" +
		"a=fmtp:96 352 0 16 40 10 14 2 255 0 0 44100\r\n"

	announce := rtsp.NewRequest("ANNOUNCE", "rtsp://127.0.0.1/123")
	announce.Body = []byte(sdpBody)
	resp := roundTrip(announce, 1)
	assert.Equal(t, 200, resp.StatusCode)

	setup := rtsp.NewRequest("SETUP", "rtsp://127.0.0.1/123")
	setup.Set("Transport", "RTP/AVP/UDP;unicast;client_port=6100")
	resp = roundTrip(setup, 2)
	require.Equal(t, 200, resp.StatusCode)
	transport, ok := resp.Get("Transport")
	require.True(t, ok)
	serverPort, ok := parseTransportField(transport, "server_port")
	require.True(t, ok)

	record := rtsp.NewRequest("RECORD", "rtsp://127.0.0.1/123")
	resp = roundTrip(record, 3)
	assert.Equal(t, 200, resp.StatusCode)

	audioConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	require.NoError(t, err)
	defer audioConn.Close()
	serverAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(serverPort)))
	require.NoError(t, err)

	packetizer := rtp.NewPacketizer(96, 352, 4, 1, 0)
	packetizer.AddAudio(make([]byte, 352*4))
	for _, pkt := range packetizer.Build() {
		_, err := audioConn.WriteToUDP(pkt, serverAddr)
		require.NoError(t, err)
	}

	setParam := rtsp.NewRequest("SET_PARAMETER", "rtsp://127.0.0.1/123")
	setParam.Set("Content-Type", "text/parameters")
	setParam.Body = []byte("volume: -15.000000\r\n")
	resp = roundTrip(setParam, 4)
	assert.Equal(t, 200, resp.StatusCode)

	teardown := rtsp.NewRequest("TEARDOWN", "rtsp://127.0.0.1/123")
	resp = roundTrip(teardown, 5)
	assert.Equal(t, 200, resp.StatusCode)

	time.Sleep(100 * time.Millisecond)
	r.Close()
	cancel()
	<-done

	_, err = os.Stat(recordPath)
	assert.NoError(t, err)
}
