package rtp

// Packetizer slices raw PCM (or already-encoded ALAC/AAC frames) into
// fixed-size audio packets, zero-padding a partial tail chunk,
// advancing sequence and timestamp atomically with each emit. A new
// Packetizer is created per stream; it owns its own sequence and
// timestamp state.
type Packetizer struct {
	payloadType     byte
	framesPerPacket int
	frameBytes      int // bytes per audio frame (channels * bytes_per_sample)
	ssrc            uint32

	seq Sequencer
	ts  uint32

	pending       []byte
	built         [][]byte
	markerPending bool

	encryptor *Encryptor
	err       error
}

// NewPacketizer builds a packetizer for a stream with the given
// payload type, frame geometry, and SSRC. The sequence number starts
// from a random value; the first packet's timestamp is initialTimestamp.
func NewPacketizer(payloadType byte, framesPerPacket, frameBytes int, ssrc uint32, initialTimestamp uint32) *Packetizer {
	return &Packetizer{
		payloadType:     payloadType,
		framesPerPacket: framesPerPacket,
		frameBytes:      frameBytes,
		ssrc:            ssrc,
		seq:             NewSequencer(),
		ts:              initialTimestamp,
	}
}

// SetEncryptor arms payload encryption for every packet emitted from
// this point on. A nil encryptor (the default) leaves payloads
// unencrypted. Returns the packetizer for chaining.
func (p *Packetizer) SetEncryptor(enc *Encryptor) *Packetizer {
	p.encryptor = enc
	return p
}

// Err returns the first error raised by an armed Encryptor while
// building packets, if any. AddAudio/Flush keep running after an error
// so callers can drain Build and stop cleanly; check Err after a
// streaming loop ends.
func (p *Packetizer) Err() error {
	return p.err
}

// PacketBytes is the fixed payload size of one audio packet.
func (p *Packetizer) PacketBytes() int {
	return p.framesPerPacket * p.frameBytes
}

// AddAudio appends raw audio bytes to the packetizer's pending buffer,
// slicing out and queuing any full packets it can now build. Returns
// the packetizer for chaining.
func (p *Packetizer) AddAudio(b []byte) *Packetizer {
	p.pending = append(p.pending, b...)
	packetBytes := p.PacketBytes()
	for len(p.pending) >= packetBytes {
		p.emit(p.pending[:packetBytes])
		p.pending = p.pending[packetBytes:]
	}
	return p
}

// Flush zero-pads any remaining partial chunk and emits it as a final
// packet, clearing pending state.
func (p *Packetizer) Flush() *Packetizer {
	if len(p.pending) == 0 {
		return p
	}
	packetBytes := p.PacketBytes()
	padded := make([]byte, packetBytes)
	copy(padded, p.pending)
	p.emit(padded)
	p.pending = nil
	return p
}

func (p *Packetizer) emit(payload []byte) {
	h := Header{
		Marker:         p.markerPending,
		PayloadType:    p.payloadType,
		SequenceNumber: p.seq.NextSeqNumber(),
		Timestamp:      p.ts,
		SSRC:           p.ssrc,
	}
	p.markerPending = false
	headerBytes := h.Marshal()

	if p.encryptor != nil {
		protected, err := p.encryptor.Protect(h.SequenceNumber, headerBytes, payload)
		if err != nil {
			if p.err == nil {
				p.err = err
			}
			p.ts += uint32(p.framesPerPacket)
			return
		}
		payload = protected
	}

	pkt := make([]byte, 0, HeaderLen+len(payload))
	pkt = append(pkt, headerBytes...)
	pkt = append(pkt, payload...)
	p.built = append(p.built, pkt)
	p.ts += uint32(p.framesPerPacket)
}

// SetMarkerOnNext causes the next emitted packet to carry the marker
// bit, as required on the first packet after RECORD/FLUSH.
func (p *Packetizer) SetMarkerOnNext() {
	p.markerPending = true
}

// Build returns every wire packet assembled since the last Build call
// and clears the internal queue.
func (p *Packetizer) Build() [][]byte {
	out := p.built
	p.built = nil
	return out
}
