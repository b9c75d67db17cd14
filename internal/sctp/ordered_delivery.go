package sctp

import "github.com/lanikai/rtcdc/internal/serial"

// maxBufferedMessages bounds how many completed-but-out-of-sequence messages
// one stream's orderedDelivery buffer holds at once.
const maxBufferedMessages = 1000

// orderedDelivery enforces strictly increasing stream-sequence delivery for
// one ordered stream. Fragment reassembly alone only guarantees a message's
// own fragments were contiguous; it says nothing about the relative order in
// which separate messages on the same stream finish reassembling, since
// their fragments can interleave with other streams' or arrive gapped (spec
// §5, scenario S5). Accept buffers early completions and releases them once
// every lower sequence number has been delivered.
type orderedDelivery struct {
	expected uint16
	pending  map[uint16]*ReassembledMessage
}

func newOrderedDelivery() *orderedDelivery {
	return &orderedDelivery{pending: make(map[uint16]*ReassembledMessage)}
}

// Accept folds in a newly completed message and returns, in order, every
// message now ready for delivery (possibly none, possibly msg itself plus
// any it unblocked).
func (d *orderedDelivery) Accept(msg *ReassembledMessage) []*ReassembledMessage {
	if msg.StreamSeq != d.expected {
		if serial.Less16(msg.StreamSeq, d.expected) {
			return nil // stale duplicate, already delivered
		}
		if len(d.pending) >= maxBufferedMessages {
			return nil // peer is misbehaving; drop rather than grow unbounded
		}
		d.pending[msg.StreamSeq] = msg
		return nil
	}

	var ready []*ReassembledMessage
	ready = append(ready, msg)
	d.expected++
	for {
		next, ok := d.pending[d.expected]
		if !ok {
			break
		}
		delete(d.pending, d.expected)
		ready = append(ready, next)
		d.expected++
	}
	return ready
}
