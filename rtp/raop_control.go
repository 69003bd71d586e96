package rtp

import (
	"encoding/binary"
	"fmt"
)

// SyncSequence is the fixed sequence number value RAOP/AirPlay senders
// place in every sync packet.
const SyncSequence = 0x0007

// SyncPacketLen is the fixed wire size of a sync packet: a 4-byte
// flags/payload-type/sequence preamble, the 4-byte RTP timestamp, the
// 8-byte NTP timestamp, and the 4-byte next RTP timestamp.
const SyncPacketLen = 20

// SyncPacket is the control-port time-base announcement (payload type
// 0x54) a sender emits periodically so receivers can map RTP
// timestamps to wall-clock NTP time.
type SyncPacket struct {
	ExtensionFirst bool // set on the first sync after RECORD/FLUSH
	RTPTimestamp   uint32
	NTPTimestamp   uint64 // 64-bit fixed-point seconds since 1900
	NextTimestamp  uint32
}

// Marshal encodes a sync packet to its 20-byte wire form.
func (s SyncPacket) Marshal() []byte {
	buf := make([]byte, SyncPacketLen)
	buf[0] = 0x80
	if s.ExtensionFirst {
		buf[0] |= 0x10 // X bit
	}
	buf[1] = 0x80 | PayloadTypeSync // marker always set on sync
	binary.BigEndian.PutUint16(buf[2:4], SyncSequence)
	binary.BigEndian.PutUint32(buf[4:8], s.RTPTimestamp)
	binary.BigEndian.PutUint64(buf[8:16], s.NTPTimestamp)
	binary.BigEndian.PutUint32(buf[16:20], s.NextTimestamp)
	return buf
}

// ParseSyncPacket decodes a 20-byte sync packet.
func ParseSyncPacket(buf []byte) (SyncPacket, error) {
	if len(buf) < SyncPacketLen {
		return SyncPacket{}, fmt.Errorf("rtp: sync packet too short, got %d bytes", len(buf))
	}
	return SyncPacket{
		ExtensionFirst: buf[0]&0x10 != 0,
		RTPTimestamp:   binary.BigEndian.Uint32(buf[4:8]),
		NTPTimestamp:   binary.BigEndian.Uint64(buf[8:16]),
		NextTimestamp:  binary.BigEndian.Uint32(buf[16:20]),
	}, nil
}

// RetransmitRequestLen is the fixed wire size of a retransmit request:
// 12-byte header + 4-byte body.
const RetransmitRequestLen = 16

// RetransmitRequest (payload type 0x55) asks the sender to resend a
// run of lost packets, starting at SeqStart for Count packets.
type RetransmitRequest struct {
	SeqStart uint16
	Count    uint16
}

// Marshal encodes a retransmit request, wrapped in an RTP-like header
// carrying the given sequence number.
func (r RetransmitRequest) Marshal(seq uint16) []byte {
	buf := make([]byte, RetransmitRequestLen)
	buf[0] = 0x80
	buf[1] = 0x80 | PayloadTypeRetransmitReq
	binary.BigEndian.PutUint16(buf[2:4], seq)
	binary.BigEndian.PutUint16(buf[12:14], r.SeqStart)
	binary.BigEndian.PutUint16(buf[14:16], r.Count)
	return buf
}

// ParseRetransmitRequest decodes the 4-byte body following the RTP-like
// header of a retransmit request.
func ParseRetransmitRequest(buf []byte) (RetransmitRequest, error) {
	if len(buf) < RetransmitRequestLen {
		return RetransmitRequest{}, fmt.Errorf("rtp: retransmit request too short, got %d bytes", len(buf))
	}
	return RetransmitRequest{
		SeqStart: binary.BigEndian.Uint16(buf[12:14]),
		Count:    binary.BigEndian.Uint16(buf[14:16]),
	}, nil
}

// RetransmitResponseHeaderLen is the size of a retransmit response's
// own framing (an outer RTP-like header wrapping the original lost
// packet verbatim, payload type 0x56).
const RetransmitResponseHeaderLen = HeaderLen

// WrapRetransmitResponse wraps an originally-sent packet (header +
// payload, as it was first transmitted) for retransmission, per the
// retransmit-response payload type.
func WrapRetransmitResponse(seq uint16, original []byte) []byte {
	out := make([]byte, RetransmitResponseHeaderLen+len(original))
	out[0] = 0x80
	out[1] = 0x80 | PayloadTypeRetransmitRsp
	binary.BigEndian.PutUint16(out[2:4], seq)
	copy(out[RetransmitResponseHeaderLen:], original)
	return out
}

// PTPAnnounceLen is the fixed wire size of a PTP time-announce packet.
//
// The header's own timestamp field (bytes 4..8) carries the current
// RTP timestamp, so the body holds only the PTP timestamp, the next
// RTP timestamp, and a grandmaster identity truncated to its low 32
// bits — the remaining bytes to reach the fixed 28-byte wire size.
const PTPAnnounceLen = 28

// PTPAnnouncePacket (payload type 0xD7) ties an RTP timestamp to the
// PTP clock's grandmaster time, for multi-room synchronization.
type PTPAnnouncePacket struct {
	RTPTimestamp        uint32
	PTPTimestamp        uint64 // compact AirPlay 48.16 fixed-point form
	NextTimestamp       uint32
	GrandmasterIdentity uint32
}

// Marshal encodes a PTP time-announce packet to its 28-byte wire form.
func (p PTPAnnouncePacket) Marshal(seq uint16) []byte {
	buf := make([]byte, PTPAnnounceLen)
	buf[0] = 0x80
	buf[1] = PayloadTypePTPAnnounce
	binary.BigEndian.PutUint16(buf[2:4], seq)
	binary.BigEndian.PutUint32(buf[4:8], p.RTPTimestamp)
	binary.BigEndian.PutUint64(buf[12:20], p.PTPTimestamp)
	binary.BigEndian.PutUint32(buf[20:24], p.NextTimestamp)
	binary.BigEndian.PutUint32(buf[24:28], p.GrandmasterIdentity)
	return buf
}

// ParsePTPAnnouncePacket decodes a 28-byte PTP time-announce packet.
func ParsePTPAnnouncePacket(buf []byte) (PTPAnnouncePacket, error) {
	if len(buf) < PTPAnnounceLen {
		return PTPAnnouncePacket{}, fmt.Errorf("rtp: PTP announce packet too short, got %d bytes", len(buf))
	}
	return PTPAnnouncePacket{
		RTPTimestamp:        binary.BigEndian.Uint32(buf[4:8]),
		PTPTimestamp:        binary.BigEndian.Uint64(buf[12:20]),
		NextTimestamp:       binary.BigEndian.Uint32(buf[20:24]),
		GrandmasterIdentity: binary.BigEndian.Uint32(buf[24:28]),
	}, nil
}

// TimingRequestLen and TimingResponseLen are the fixed wire sizes of
// the PTP-adjacent one-shot timing exchange used by legacy RAOP
// (AirPlay 1) clients that do not implement full IEEE 1588: header +
// three 64-bit NTP-style timestamps.
const (
	TimingRequestLen  = HeaderLen + 24
	TimingResponseLen = HeaderLen + 24
)

// TimingPacket is the body of both timing messages: a request (payload
// type 0x52) carries the client's origin timestamp; a response (0x53)
// echoes it back with the receive and transmit timestamps the peer
// recorded.
type TimingPacket struct {
	OriginTimestamp  uint64
	ReceiveTimestamp uint64
	TransmitTimestamp uint64
}

// Marshal encodes a timing request or response to its fixed wire form.
func (t TimingPacket) Marshal(seq uint16, payloadType byte) []byte {
	buf := make([]byte, HeaderLen+24)
	buf[0] = 0x80
	buf[1] = 0x80 | payloadType
	binary.BigEndian.PutUint16(buf[2:4], seq)
	binary.BigEndian.PutUint64(buf[HeaderLen:HeaderLen+8], t.OriginTimestamp)
	binary.BigEndian.PutUint64(buf[HeaderLen+8:HeaderLen+16], t.ReceiveTimestamp)
	binary.BigEndian.PutUint64(buf[HeaderLen+16:HeaderLen+24], t.TransmitTimestamp)
	return buf
}

// ParseTimingPacket decodes a timing request or response body.
func ParseTimingPacket(buf []byte) (TimingPacket, error) {
	if len(buf) < HeaderLen+24 {
		return TimingPacket{}, fmt.Errorf("rtp: timing packet too short, got %d bytes", len(buf))
	}
	return TimingPacket{
		OriginTimestamp:   binary.BigEndian.Uint64(buf[HeaderLen : HeaderLen+8]),
		ReceiveTimestamp:  binary.BigEndian.Uint64(buf[HeaderLen+8 : HeaderLen+16]),
		TransmitTimestamp: binary.BigEndian.Uint64(buf[HeaderLen+16 : HeaderLen+24]),
	}, nil
}
