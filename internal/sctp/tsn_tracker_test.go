package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTSNTrackerInOrder(t *testing.T) {
	tr := newTSNTracker(100)
	assert.False(t, tr.Receive(100))
	assert.False(t, tr.Receive(101))
	assert.False(t, tr.Receive(102))
	assert.Equal(t, uint32(102), tr.CumulativeTSNAck())
	assert.Empty(t, tr.GapAckBlocks())
}

func TestTSNTrackerGapsAndFill(t *testing.T) {
	tr := newTSNTracker(1)
	tr.Receive(1)
	tr.Receive(3)
	tr.Receive(4)
	tr.Receive(7)

	assert.Equal(t, uint32(1), tr.CumulativeTSNAck())
	blocks := tr.GapAckBlocks()
	assert.Equal(t, []GapAckBlock{{Start: 2, End: 3}, {Start: 6, End: 6}}, blocks)

	// Filling the gap at TSN 2 should fold 1..4 into the cumulative point,
	// leaving only the isolated block at 7.
	tr.Receive(2)
	assert.Equal(t, uint32(4), tr.CumulativeTSNAck())
	assert.Equal(t, []GapAckBlock{{Start: 3, End: 3}}, tr.GapAckBlocks())
}

func TestTSNTrackerDuplicates(t *testing.T) {
	tr := newTSNTracker(1)
	tr.Receive(1)
	assert.True(t, tr.Receive(1))
	tr.Receive(3)
	assert.True(t, tr.Receive(3))

	dup := tr.DuplicateTSNs()
	assert.ElementsMatch(t, []uint32{1, 3}, dup)
	assert.Empty(t, tr.DuplicateTSNs())
}

func TestTSNTrackerWraparound(t *testing.T) {
	tr := newTSNTracker(0xFFFFFFFE)
	tr.Receive(0xFFFFFFFE)
	tr.Receive(0xFFFFFFFF)
	tr.Receive(0)
	assert.Equal(t, uint32(0), tr.CumulativeTSNAck())
}
