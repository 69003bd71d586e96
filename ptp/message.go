package ptp

import (
	"encoding/binary"
	"fmt"
)

// MessageType identifies the IEEE 1588 message body layout.
type MessageType byte

const (
	MessageSync      MessageType = 0x00
	MessageDelayReq  MessageType = 0x01
	MessageFollowUp  MessageType = 0x08
	MessageDelayResp MessageType = 0x09
	MessageAnnounce  MessageType = 0x0B
)

// HeaderLen is the fixed 34-byte IEEE 1588 message header.
const HeaderLen = 34

// PortIdentity is an 8-byte clock identity plus 2-byte port number,
// the 10-byte "source port identity" carried in every header.
type PortIdentity struct {
	ClockIdentity uint64
	PortNumber    uint16
}

// Marshal encodes the port identity to its 10-byte wire form.
func (p PortIdentity) Marshal() []byte {
	buf := make([]byte, 10)
	binary.BigEndian.PutUint64(buf[0:8], p.ClockIdentity)
	binary.BigEndian.PutUint16(buf[8:10], p.PortNumber)
	return buf
}

// ParsePortIdentity decodes a 10-byte port identity.
func ParsePortIdentity(buf []byte) (PortIdentity, error) {
	if len(buf) < 10 {
		return PortIdentity{}, errShort("port identity", 10, len(buf))
	}
	return PortIdentity{
		ClockIdentity: binary.BigEndian.Uint64(buf[0:8]),
		PortNumber:    binary.BigEndian.Uint16(buf[8:10]),
	}, nil
}

// Header is the common 34-byte IEEE 1588 message header.
type Header struct {
	MessageType          MessageType
	TransportSpecific    byte // high nibble of byte 0
	Flags                uint16
	CorrectionField      int64
	SourcePortIdentity   PortIdentity
	SequenceID           uint16
	ControlField         byte
	LogMessageInterval   int8
}

// Marshal encodes the header to its fixed 34-byte wire form.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = (h.TransportSpecific << 4) | byte(h.MessageType)&0x0F
	buf[1] = 0x02 // version 2
	binary.BigEndian.PutUint16(buf[4:6], h.Flags)
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.CorrectionField))
	copy(buf[20:30], h.SourcePortIdentity.Marshal())
	binary.BigEndian.PutUint16(buf[30:32], h.SequenceID)
	buf[32] = h.ControlField
	buf[33] = byte(h.LogMessageInterval)
	return buf
}

// ParseHeader decodes a 34-byte IEEE 1588 message header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, errShort("header", HeaderLen, len(buf))
	}
	srcPort, err := ParsePortIdentity(buf[20:30])
	if err != nil {
		return Header{}, err
	}
	return Header{
		MessageType:        MessageType(buf[0] & 0x0F),
		TransportSpecific:  buf[0] >> 4,
		Flags:              binary.BigEndian.Uint16(buf[4:6]),
		CorrectionField:    int64(binary.BigEndian.Uint64(buf[8:16])),
		SourcePortIdentity: srcPort,
		SequenceID:         binary.BigEndian.Uint16(buf[30:32]),
		ControlField:       buf[32],
		LogMessageInterval: int8(buf[33]),
	}, nil
}

// TimestampBody is the body of Sync, Follow_Up, and Delay_Req: a single
// 10-byte origin timestamp.
type TimestampBody struct {
	OriginTimestamp Timestamp
}

func (b TimestampBody) Marshal() []byte { return b.OriginTimestamp.Marshal() }

func ParseTimestampBody(buf []byte) (TimestampBody, error) {
	ts, err := ParseTimestamp(buf)
	return TimestampBody{OriginTimestamp: ts}, err
}

// DelayRespBody carries the master's receive timestamp of the
// Delay_Req plus the requesting port's identity.
type DelayRespBody struct {
	ReceiveTimestamp    Timestamp
	RequestingPortIdentity PortIdentity
}

func (b DelayRespBody) Marshal() []byte {
	buf := make([]byte, 0, 20)
	buf = append(buf, b.ReceiveTimestamp.Marshal()...)
	buf = append(buf, b.RequestingPortIdentity.Marshal()...)
	return buf
}

func ParseDelayRespBody(buf []byte) (DelayRespBody, error) {
	if len(buf) < 20 {
		return DelayRespBody{}, errShort("delay resp body", 20, len(buf))
	}
	ts, err := ParseTimestamp(buf[0:10])
	if err != nil {
		return DelayRespBody{}, err
	}
	port, err := ParsePortIdentity(buf[10:20])
	if err != nil {
		return DelayRespBody{}, err
	}
	return DelayRespBody{ReceiveTimestamp: ts, RequestingPortIdentity: port}, nil
}

// AnnounceBody carries the origin timestamp, grandmaster identity, and
// the two BMCA priority fields.
type AnnounceBody struct {
	OriginTimestamp     Timestamp
	GrandmasterIdentity uint64
	Priority1           byte
	Priority2           byte
}

func (b AnnounceBody) Marshal() []byte {
	buf := make([]byte, 20)
	copy(buf[0:10], b.OriginTimestamp.Marshal())
	binary.BigEndian.PutUint64(buf[10:18], b.GrandmasterIdentity)
	buf[18] = b.Priority1
	buf[19] = b.Priority2
	return buf
}

func ParseAnnounceBody(buf []byte) (AnnounceBody, error) {
	if len(buf) < 20 {
		return AnnounceBody{}, errShort("announce body", 20, len(buf))
	}
	ts, err := ParseTimestamp(buf[0:10])
	if err != nil {
		return AnnounceBody{}, err
	}
	return AnnounceBody{
		OriginTimestamp:     ts,
		GrandmasterIdentity: binary.BigEndian.Uint64(buf[10:18]),
		Priority1:           buf[18],
		Priority2:           buf[19],
	}, nil
}

// CompactMessageLen is the fixed size of the abbreviated 24-byte
// AirPlay variant carried on the event port in place of a full
// IEEE 1588 message.
const CompactMessageLen = 24

// CompactMessage is AirPlay's trimmed event-port encoding: message
// type, sequence id, and a single compact timestamp, with no full
// port-identity or correction field.
type CompactMessage struct {
	MessageType MessageType
	SequenceID  uint16
	Timestamp   uint64 // compact 48.16 fixed-point form
}

// Marshal encodes the compact message to its 24-byte wire form.
func (c CompactMessage) Marshal() []byte {
	buf := make([]byte, CompactMessageLen)
	buf[0] = byte(c.MessageType)
	binary.BigEndian.PutUint16(buf[2:4], c.SequenceID)
	binary.BigEndian.PutUint64(buf[4:12], c.Timestamp)
	return buf
}

// ParseCompactMessage decodes a 24-byte compact AirPlay PTP message.
func ParseCompactMessage(buf []byte) (CompactMessage, error) {
	if len(buf) < CompactMessageLen {
		return CompactMessage{}, errShort("compact message", CompactMessageLen, len(buf))
	}
	return CompactMessage{
		MessageType: MessageType(buf[0]),
		SequenceID:  binary.BigEndian.Uint16(buf[2:4]),
		Timestamp:   binary.BigEndian.Uint64(buf[4:12]),
	}, nil
}

func (t MessageType) String() string {
	switch t {
	case MessageSync:
		return "sync"
	case MessageDelayReq:
		return "delay_req"
	case MessageFollowUp:
		return "follow_up"
	case MessageDelayResp:
		return "delay_resp"
	case MessageAnnounce:
		return "announce"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}
