// Package tlv8 implements the type-length-value wire format HomeKit
// pairing messages are built from: an 8-bit type tag, an 8-bit length,
// and a value. Values over 255 bytes are split across consecutive
// chunks sharing the same tag; Decode re-concatenates them in order.
package tlv8

import "fmt"

// Tag identifies a TLV8 field. Values are stable across the pairing
// protocol variants (transient, setup, verify).
type Tag byte

const (
	TagMethod        Tag = 0x00
	TagIdentifier    Tag = 0x01
	TagSalt          Tag = 0x02
	TagPublicKey     Tag = 0x03
	TagProof         Tag = 0x04
	TagEncryptedData Tag = 0x05
	TagState         Tag = 0x06
	TagError         Tag = 0x07
	TagRetryDelay    Tag = 0x08
	TagCertificate   Tag = 0x09
	TagSignature     Tag = 0x0A
	TagPermissions   Tag = 0x0B
	TagFragmentData  Tag = 0x0C
	TagFragmentLast  Tag = 0x0D
	TagSessionID     Tag = 0x0E
	TagFlags         Tag = 0x13
	TagSeparator     Tag = 0xFF
)

const chunkSize = 255

// Item is a single decoded (or to-be-encoded) TLV8 field.
type Item struct {
	Tag   Tag
	Value []byte
}

// Container is an ordered sequence of TLV8 items, the unit pairing
// messages are built and parsed as.
type Container []Item

// Get returns the value of the first item with the given tag.
func (c Container) Get(tag Tag) ([]byte, bool) {
	for _, item := range c {
		if item.Tag == tag {
			return item.Value, true
		}
	}
	return nil, false
}

// GetByte returns a single-byte item's value as a byte (used for
// Method/State/Error, which are always one byte wide).
func (c Container) GetByte(tag Tag) (byte, bool) {
	v, ok := c.Get(tag)
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

// Add appends an item to the container.
func (c *Container) Add(tag Tag, value []byte) {
	*c = append(*c, Item{Tag: tag, Value: value})
}

// AddByte appends a single-byte item.
func (c *Container) AddByte(tag Tag, value byte) {
	c.Add(tag, []byte{value})
}

// Encode serializes the container, fragmenting any value longer than
// 255 bytes into consecutive same-tag chunks. A zero-length value is
// still encoded as a two-byte [tag, 0] entry.
func Encode(c Container) []byte {
	var out []byte
	for _, item := range c {
		out = append(out, encodeItem(item.Tag, item.Value)...)
	}
	return out
}

func encodeItem(tag Tag, value []byte) []byte {
	if len(value) == 0 {
		return []byte{byte(tag), 0}
	}
	var out []byte
	for len(value) > 0 {
		n := len(value)
		if n > chunkSize {
			n = chunkSize
		}
		out = append(out, byte(tag), byte(n))
		out = append(out, value[:n]...)
		value = value[n:]
	}
	return out
}

// Decode parses a buffer of concatenated TLV8 entries into a
// Container, merging consecutive same-tag chunks into a single item
// in first-seen order. A malformed trailing entry (length byte claims
// more bytes than remain) is an error.
func Decode(buf []byte) (Container, error) {
	var out Container

	for len(buf) > 0 {
		if len(buf) < 2 {
			return nil, fmt.Errorf("tlv8: truncated entry header")
		}
		tag := Tag(buf[0])
		length := int(buf[1])
		buf = buf[2:]
		if length > len(buf) {
			return nil, fmt.Errorf("tlv8: entry for tag 0x%02x claims %d bytes, only %d remain", tag, length, len(buf))
		}
		value := buf[:length]
		buf = buf[length:]

		if n := len(out); n > 0 && out[n-1].Tag == tag {
			// Continuation of a fragmented value: merge into the
			// immediately preceding chunk of the same tag.
			out[n-1].Value = append(out[n-1].Value, value...)
			continue
		}

		item := Item{Tag: tag, Value: append([]byte{}, value...)}
		out = append(out, item)
	}
	return out, nil
}
