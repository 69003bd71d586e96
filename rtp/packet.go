// Package rtp implements the AirPlay/RAOP RTP audio transport: packet
// header layout, extended-sequence tracking (RFC 1889 Appendix A.2),
// the three encryption modes, the control-port message types (sync,
// retransmit, timing, PTP announce), and the audio packetizer.
package rtp

import (
	"fmt"

	pionrtp "github.com/pion/rtp"
)

// Payload types used on the RAOP/AirPlay audio and control channels.
const (
	PayloadTypeRealtimeAudio = 0x60
	PayloadTypeBufferedAudio = 0x61
	PayloadTypeSync          = 0x54
	PayloadTypeRetransmitReq = 0x55
	PayloadTypeRetransmitRsp = 0x56
	PayloadTypeTimingReq     = 0x52
	PayloadTypeTimingRsp     = 0x53
	PayloadTypePTPAnnounce   = 0xD7
)

// HeaderLen is the fixed 12-byte RTP header size; AirPlay never uses
// CSRC entries or header extensions on the audio path.
const HeaderLen = 12

// Header is the 12-byte RTP header AirPlay uses: V=2, P=0, X=0, CC=0
// always. It mirrors pion/rtp.Header, trimmed to the fields this
// transport ever populates.
type Header struct {
	Marker         bool
	PayloadType    byte
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

func (h Header) toPion() pionrtp.Header {
	return pionrtp.Header{
		Version:        2,
		Marker:         h.Marker,
		PayloadType:    h.PayloadType,
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}
}

func fromPion(h pionrtp.Header) Header {
	return Header{
		Marker:         h.Marker,
		PayloadType:    h.PayloadType,
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}
}

// Marshal encodes the header into a 12-byte buffer using pion/rtp's
// RFC 3550 header codec.
func (h Header) Marshal() []byte {
	buf, err := h.toPion().Marshal()
	if err != nil {
		// AirPlay headers never carry CSRC/extensions, so this path, which
		// only fails on those, is unreachable; keep a safe fallback.
		return make([]byte, HeaderLen)
	}
	return buf
}

// ParseHeader decodes the first bytes of buf as an RTP header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, fmt.Errorf("rtp: header too short, got %d bytes", len(buf))
	}
	var ph pionrtp.Header
	if err := ph.Unmarshal(buf); err != nil {
		return Header{}, fmt.Errorf("rtp: malformed header: %w", err)
	}
	return fromPion(ph), nil
}

// MarshalPacket encodes a full RTP packet (header + payload) in one
// call, for callers that already have pion/rtp's richer Packet type
// (e.g. when interoperating with other pion-based components).
func MarshalPacket(h Header, payload []byte) ([]byte, error) {
	pkt := pionrtp.Packet{Header: h.toPion(), Payload: payload}
	return pkt.Marshal()
}
