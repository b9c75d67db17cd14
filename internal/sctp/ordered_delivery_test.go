package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedDeliveryInSequence(t *testing.T) {
	d := newOrderedDelivery()
	ready := d.Accept(&ReassembledMessage{StreamSeq: 0, Data: []byte("a")})
	assert.Len(t, ready, 1)
}

func TestOrderedDeliveryBuffersAndDrains(t *testing.T) {
	d := newOrderedDelivery()

	ready := d.Accept(&ReassembledMessage{StreamSeq: 0, Data: []byte("a")})
	assert.Equal(t, []*ReassembledMessage{{StreamSeq: 0, Data: []byte("a")}}, ready)

	// seq 2 completes before seq 1: must buffer, not deliver.
	ready = d.Accept(&ReassembledMessage{StreamSeq: 2, Data: []byte("c")})
	assert.Empty(t, ready)

	// seq 1 arrives: unblocks both 1 and the buffered 2, in order.
	ready = d.Accept(&ReassembledMessage{StreamSeq: 1, Data: []byte("b")})
	assert.Len(t, ready, 2)
	assert.Equal(t, uint16(1), ready[0].StreamSeq)
	assert.Equal(t, uint16(2), ready[1].StreamSeq)
}

func TestOrderedDeliveryDropsStaleDuplicate(t *testing.T) {
	d := newOrderedDelivery()
	d.Accept(&ReassembledMessage{StreamSeq: 0})
	ready := d.Accept(&ReassembledMessage{StreamSeq: 0})
	assert.Empty(t, ready)
}
