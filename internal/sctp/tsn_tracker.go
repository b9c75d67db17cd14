package sctp

import (
	"sort"

	"github.com/lanikai/rtcdc/internal/serial"
)

// maxDuplicateTSNs bounds how many duplicate TSNs a single SACK reports,
// RFC 4960 doesn't fix a number but real stacks cap it to keep SACKs small;
// the pack's pion/sctp reference caps at the same figure.
const maxDuplicateTSNs = 16

// tsnTracker accumulates received DATA chunk TSNs on one side of an
// association and produces the cumulative-ack-point plus gap-ack-block
// report a SACK chunk needs, per RFC 4960 §3.3.4/§6.2.
type tsnTracker struct {
	cumulativeTSN uint32 // highest TSN such that it and everything before it has arrived
	received      map[uint32]struct{}
	duplicates    []uint32
}

func newTSNTracker(initialTSN uint32) *tsnTracker {
	return &tsnTracker{
		cumulativeTSN: initialTSN - 1, // nothing received yet; next expected is initialTSN
		received:      make(map[uint32]struct{}),
	}
}

// Receive records the arrival of tsn, returning true if it had already been
// seen (a retransmission the peer didn't need to send).
func (t *tsnTracker) Receive(tsn uint32) (duplicate bool) {
	if serial.LessOrEqual32(tsn, t.cumulativeTSN) {
		// Already folded into the cumulative ack point; a pure duplicate.
		if len(t.duplicates) < maxDuplicateTSNs {
			t.duplicates = append(t.duplicates, tsn)
		}
		return true
	}
	if _, ok := t.received[tsn]; ok {
		if len(t.duplicates) < maxDuplicateTSNs {
			t.duplicates = append(t.duplicates, tsn)
		}
		return true
	}
	t.received[tsn] = struct{}{}
	t.advanceCumulative()
	return false
}

// advanceCumulative folds any contiguous run starting at cumulativeTSN+1
// into the cumulative ack point, discarding them from the gap set.
func (t *tsnTracker) advanceCumulative() {
	for {
		next := t.cumulativeTSN + 1
		if _, ok := t.received[next]; !ok {
			return
		}
		delete(t.received, next)
		t.cumulativeTSN = next
	}
}

// CumulativeTSNAck is the value to place in a SACK's Cumulative TSN Ack field.
func (t *tsnTracker) CumulativeTSNAck() uint32 {
	return t.cumulativeTSN
}

// GapAckBlocks reports every contiguous run of received-but-not-yet-
// cumulative TSNs, as offsets from CumulativeTSNAck.
func (t *tsnTracker) GapAckBlocks() []GapAckBlock {
	if len(t.received) == 0 {
		return nil
	}
	tsns := make([]uint32, 0, len(t.received))
	for tsn := range t.received {
		tsns = append(tsns, tsn)
	}
	sort.Slice(tsns, func(i, j int) bool { return serial.Less32(tsns[i], tsns[j]) })

	var blocks []GapAckBlock
	base := t.cumulativeTSN
	start := tsns[0]
	end := tsns[0]
	for _, tsn := range tsns[1:] {
		if tsn == end+1 {
			end = tsn
			continue
		}
		blocks = append(blocks, GapAckBlock{Start: uint16(start - base), End: uint16(end - base)})
		start, end = tsn, tsn
	}
	blocks = append(blocks, GapAckBlock{Start: uint16(start - base), End: uint16(end - base)})
	return blocks
}

// DuplicateTSNs returns and clears the duplicate TSNs accumulated since the
// last SACK, per the "report once" guidance of RFC 4960 §6.2.
func (t *tsnTracker) DuplicateTSNs() []uint32 {
	dup := t.duplicates
	t.duplicates = nil
	return dup
}

// SACK builds the SackChunk this tracker's current state implies. rwnd is
// the receiver's currently advertised window in bytes.
func (t *tsnTracker) SACK(rwnd uint32) *SackChunk {
	return &SackChunk{
		CumulativeTSNAck: t.CumulativeTSNAck(),
		AdvertisedRwnd:   rwnd,
		GapAckBlocks:     t.GapAckBlocks(),
		DuplicateTSNs:    t.DuplicateTSNs(),
	}
}
