package rtsp

import (
	"encoding/binary"
	"fmt"
	"unicode"
)

// DmapTag is a 4-character DMAP content code, used by the
// /ctrl-int remote-control and now-playing metadata exchange.
type DmapTag [4]byte

var (
	DmapItemName       = DmapTag{'m', 'i', 'n', 'm'}
	DmapSongArtist     = DmapTag{'a', 's', 'a', 'r'}
	DmapSongAlbum      = DmapTag{'a', 's', 'a', 'l'}
	DmapSongGenre      = DmapTag{'a', 's', 'g', 'n'}
	DmapSongTrackNum   = DmapTag{'a', 's', 't', 'n'}
	DmapSongDiscNum    = DmapTag{'a', 's', 'd', 'n'}
	DmapSongYear       = DmapTag{'a', 's', 'y', 'r'}
	DmapSongTime       = DmapTag{'a', 's', 't', 'm'}
	DmapListing        = DmapTag{'m', 'l', 'c', 'l'}
	DmapListingItem    = DmapTag{'m', 'l', 'i', 't'}
	DmapDatabaseSongs  = DmapTag{'a', 'd', 'b', 's'}
)

func (t DmapTag) String() string {
	return string(t[:])
}

var containerTags = map[DmapTag]bool{
	DmapListing:       true,
	DmapListingItem:   true,
	DmapDatabaseSongs: true,
}

func (t DmapTag) isContainer() bool {
	return containerTags[t]
}

var intTags = map[DmapTag]bool{
	DmapSongTrackNum: true,
	DmapSongDiscNum:  true,
	DmapSongYear:     true,
	DmapSongTime:     true,
}

// DmapValue is the decoded payload of one DMAP entry.
type DmapValue struct {
	String    string
	Int       int64
	Container []DmapItem
	Raw       []byte
	Kind      DmapKind
}

// DmapKind discriminates which field of DmapValue is populated.
type DmapKind int

const (
	DmapKindString DmapKind = iota
	DmapKindInt
	DmapKindContainer
	DmapKindRaw
)

// DmapItem pairs a tag with its decoded value.
type DmapItem struct {
	Tag   DmapTag
	Value DmapValue
}

// DmapEncoder builds a DMAP byte stream one tag at a time.
type DmapEncoder struct {
	buf []byte
}

// EncodeString appends a string-valued tag.
func (e *DmapEncoder) EncodeString(tag DmapTag, value string) {
	e.writeHeader(tag, len(value))
	e.buf = append(e.buf, value...)
}

// EncodeInt appends an integer-valued tag, choosing the smallest
// big-endian width (1, 2, 4, or 8 bytes) that represents it.
func (e *DmapEncoder) EncodeInt(tag DmapTag, value int64) {
	switch {
	case value >= 0 && value <= 255:
		e.writeHeader(tag, 1)
		e.buf = append(e.buf, byte(value))
	case value >= -32768 && value <= 32767:
		e.writeHeader(tag, 2)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(value)))
		e.buf = append(e.buf, b[:]...)
	case value >= -2147483648 && value <= 2147483647:
		e.writeHeader(tag, 4)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(value)))
		e.buf = append(e.buf, b[:]...)
	default:
		e.writeHeader(tag, 8)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(value))
		e.buf = append(e.buf, b[:]...)
	}
}

// EncodeContainer encodes a nested sequence of tags under a single
// container tag (e.g. DmapListing wrapping DmapListingItem entries).
func (e *DmapEncoder) EncodeContainer(tag DmapTag, encode func(*DmapEncoder)) {
	var inner DmapEncoder
	encode(&inner)
	e.writeHeader(tag, len(inner.buf))
	e.buf = append(e.buf, inner.buf...)
}

func (e *DmapEncoder) writeHeader(tag DmapTag, length int) {
	e.buf = append(e.buf, tag[:]...)
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(length))
	e.buf = append(e.buf, lenBytes[:]...)
}

// Bytes returns the encoded stream.
func (e *DmapEncoder) Bytes() []byte {
	return e.buf
}

// DecodeDmap parses a DMAP byte stream into a flat top-level item
// list, recursing into known container tags.
func DecodeDmap(data []byte) ([]DmapItem, error) {
	return parseDmapContainer(data)
}

func parseDmapContainer(data []byte) ([]DmapItem, error) {
	var items []DmapItem
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, fmt.Errorf("rtsp: dmap: truncated entry header")
		}
		var tag DmapTag
		copy(tag[:], data[:4])
		length := binary.BigEndian.Uint32(data[4:8])
		data = data[8:]
		if uint64(length) > uint64(len(data)) {
			return nil, fmt.Errorf("rtsp: dmap: tag %q claims %d bytes, only %d remain", tag, length, len(data))
		}
		valueBytes := data[:length]
		data = data[length:]

		var value DmapValue
		if tag.isContainer() {
			inner, err := parseDmapContainer(valueBytes)
			if err != nil {
				return nil, err
			}
			value = DmapValue{Kind: DmapKindContainer, Container: inner}
		} else {
			value = parseDmapValue(tag, valueBytes)
		}
		items = append(items, DmapItem{Tag: tag, Value: value})
	}
	return items, nil
}

func parseDmapValue(tag DmapTag, b []byte) DmapValue {
	if intTags[tag] {
		var n int64
		switch len(b) {
		case 1:
			n = int64(b[0])
		case 2:
			n = int64(int16(binary.BigEndian.Uint16(b)))
		case 4:
			n = int64(int32(binary.BigEndian.Uint32(b)))
		case 8:
			n = int64(binary.BigEndian.Uint64(b))
		default:
			return DmapValue{Kind: DmapKindRaw, Raw: append([]byte{}, b...)}
		}
		return DmapValue{Kind: DmapKindInt, Int: n}
	}

	if isPrintableUTF8(b) {
		return DmapValue{Kind: DmapKindString, String: string(b)}
	}
	return DmapValue{Kind: DmapKindRaw, Raw: append([]byte{}, b...)}
}

func isPrintableUTF8(b []byte) bool {
	for _, r := range string(b) {
		if r == unicode.ReplacementChar {
			return false
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
