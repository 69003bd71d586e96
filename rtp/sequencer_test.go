package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerInOrder(t *testing.T) {
	var s Sequencer
	s.InitSeq(100)
	require.NoError(t, s.UpdateSeq(101))
	require.NoError(t, s.UpdateSeq(102))
	assert.Equal(t, uint64(102), s.ReadExtendedSeq())
}

func TestSequencerWrapAround(t *testing.T) {
	var s Sequencer
	s.InitSeq(65534)
	require.NoError(t, s.UpdateSeq(65535))
	require.NoError(t, s.UpdateSeq(0))
	assert.Equal(t, uint64(65536), s.ReadExtendedSeq())
}

func TestSequencerLargeJumpRejectedThenAccepted(t *testing.T) {
	var s Sequencer
	s.InitSeq(100)
	err := s.UpdateSeq(60000)
	assert.ErrorIs(t, err, ErrSequenceBad)

	// The next sequential packet after the jump resyncs the tracker.
	require.NoError(t, s.UpdateSeq(60001))
	assert.Equal(t, uint64(60001), s.ReadExtendedSeq())
}

func TestSequencerNextSeqNumberWraps(t *testing.T) {
	var s Sequencer
	s.InitSeq(65535)
	next := s.NextSeqNumber()
	assert.Equal(t, uint16(0), next)
	assert.Equal(t, uint64(65536), s.ReadExtendedSeq())
}

func TestNewSequencerProducesUsableState(t *testing.T) {
	s := NewSequencer()
	first := s.NextSeqNumber()
	second := s.NextSeqNumber()
	assert.Equal(t, first+1, second)
}
