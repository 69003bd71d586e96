package jitter

import "sort"

// State is the adaptive jitter buffer's playback state.
type State int

const (
	Buffering State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "buffering"
}

// ConcealmentFrameSamples is the number of silence samples (per
// channel) synthesized in place of a missing frame.
const ConcealmentFrameSamples = 352

// Frame is one decoded audio frame, keyed by its RTP timestamp.
type Frame struct {
	Timestamp uint32
	Samples   []int16 // interleaved, Channels samples per audio frame
}

// Buffer is a timestamp-keyed adaptive jitter buffer with packet-loss
// concealment. Frames are reassembled in timestamp order regardless of
// arrival order; gaps are detected from RTP sequence numbers on push
// and concealed with silence on pull.
type Buffer struct {
	SampleRate    uint32
	Channels      int
	TargetDepthMS int
	MaxDepthMS    int

	state            State
	frames           map[uint32]Frame
	playbackPosition uint32
	haveLastSeq      bool
	lastSeq          uint16

	packetsLost  int
	framesLost   int
}

// NewBuffer constructs an empty jitter buffer starting in Buffering
// state.
func NewBuffer(sampleRate uint32, channels, targetDepthMS, maxDepthMS int) *Buffer {
	return &Buffer{
		SampleRate:    sampleRate,
		Channels:      channels,
		TargetDepthMS: targetDepthMS,
		MaxDepthMS:    maxDepthMS,
		state:         Buffering,
		frames:        make(map[uint32]Frame),
	}
}

// State reports the buffer's current Buffering/Playing state.
func (b *Buffer) State() State { return b.state }

// PacketsLost returns the cumulative count of sequence-number gaps
// detected across all Push calls.
func (b *Buffer) PacketsLost() int { return b.packetsLost }

// FramesLost returns the cumulative count of concealment frames
// synthesized across all Pull calls.
func (b *Buffer) FramesLost() int { return b.framesLost }

// PlaybackPosition returns the RTP timestamp of the next frame Pull
// will attempt to consume.
func (b *Buffer) PlaybackPosition() uint32 { return b.playbackPosition }

// DepthFrames returns the number of frames currently buffered, a
// packet-count proxy for the jitter.buffer_depth_packets metric.
func (b *Buffer) DepthFrames() int { return len(b.frames) }

// Push records a decoded frame, detecting sequence gaps against the
// previous push and dropping the oldest buffered frames if the
// buffer's depth has exceeded MaxDepthMS.
func (b *Buffer) Push(seq uint16, frame Frame) {
	if b.haveLastSeq {
		gap := seq - b.lastSeq - 1
		if gap > 0 && gap < 0x8000 { // ignore apparent negative (reordered) gaps
			b.packetsLost += int(gap)
		}
	} else {
		b.playbackPosition = frame.Timestamp
	}
	b.haveLastSeq = true
	b.lastSeq = seq

	b.frames[frame.Timestamp] = frame

	for b.depthMS() > b.MaxDepthMS {
		if !b.dropOldest() {
			break
		}
	}

	if b.state == Buffering && b.depthMS() >= b.TargetDepthMS {
		b.state = Playing
	}
}

// Pull consumes nFrames worth of samples. While Buffering it returns
// silence without touching buffered state. Once Playing, it consumes
// the frame at the current playback position, concealing a missing
// frame with ConcealmentFrameSamples of silence and counting it as
// lost.
func (b *Buffer) Pull(nFrames int) []int16 {
	out := make([]int16, nFrames*b.Channels)
	if b.state == Buffering {
		return out
	}

	frame, ok := b.frames[b.playbackPosition]
	if !ok {
		b.framesLost++
		b.playbackPosition += ConcealmentFrameSamples
		return out
	}

	delete(b.frames, frame.Timestamp)
	copy(out, frame.Samples)
	b.playbackPosition += uint32(len(frame.Samples) / max(b.Channels, 1))
	return out
}

// FlushTo drops every buffered frame older than ts and resets the
// playback position to ts.
func (b *Buffer) FlushTo(ts uint32) {
	for k := range b.frames {
		if k < ts {
			delete(b.frames, k)
		}
	}
	b.playbackPosition = ts
}

// depthMS computes the buffered duration in milliseconds from the
// span between the playback position and one timestamp past the last
// buffered sample.
func (b *Buffer) depthMS() int {
	if len(b.frames) == 0 {
		return 0
	}
	endTS := b.latestFrameEnd()
	if endTS <= b.playbackPosition {
		return 0
	}
	span := endTS - b.playbackPosition
	return int(uint64(span) * 1000 / uint64(b.SampleRate))
}

func (b *Buffer) latestFrameEnd() uint32 {
	var end uint32
	for ts, f := range b.frames {
		frameEnd := ts + uint32(len(f.Samples)/max(b.Channels, 1))
		if frameEnd > end {
			end = frameEnd
		}
	}
	return end
}

func (b *Buffer) dropOldest() bool {
	if len(b.frames) == 0 {
		return false
	}
	keys := make([]uint32, 0, len(b.frames))
	for k := range b.frames {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	delete(b.frames, keys[0])
	return true
}
