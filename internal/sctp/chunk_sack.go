package sctp

import "github.com/lanikai/rtcdc/internal/packet"

const sackFixedSize = 12

// GapAckBlock reports a contiguous run of received TSNs above
// CumulativeTSNAck, both offsets relative to it, RFC 4960 §3.3.4.
type GapAckBlock struct {
	Start uint16
	End   uint16
}

// SackChunk acknowledges received DATA chunks, including any gaps in the
// sequence and any TSNs received more than once.
type SackChunk struct {
	CumulativeTSNAck uint32
	AdvertisedRwnd   uint32
	GapAckBlocks     []GapAckBlock
	DuplicateTSNs    []uint32
}

func (c *SackChunk) Type() ChunkType { return ctSack }
func (c *SackChunk) Flags() uint8    { return 0 }

func (c *SackChunk) marshalValue() []byte {
	size := sackFixedSize + 4*len(c.GapAckBlocks) + 4*len(c.DuplicateTSNs)
	w := packet.NewWriterSize(size)
	w.WriteUint32(c.CumulativeTSNAck)
	w.WriteUint32(c.AdvertisedRwnd)
	w.WriteUint16(uint16(len(c.GapAckBlocks)))
	w.WriteUint16(uint16(len(c.DuplicateTSNs)))
	for _, b := range c.GapAckBlocks {
		w.WriteUint16(b.Start)
		w.WriteUint16(b.End)
	}
	for _, tsn := range c.DuplicateTSNs {
		w.WriteUint32(tsn)
	}
	return w.Bytes()
}

func (c *SackChunk) unmarshalValue(flags uint8, value []byte) error {
	if len(value) < sackFixedSize {
		return ErrInsufficientData
	}
	r := packet.NewReader(value)
	c.CumulativeTSNAck = r.ReadUint32()
	c.AdvertisedRwnd = r.ReadUint32()
	numGapBlocks := int(r.ReadUint16())
	numDup := int(r.ReadUint16())

	if err := r.CheckRemaining(4*numGapBlocks + 4*numDup); err != nil {
		return ErrInsufficientData
	}
	c.GapAckBlocks = make([]GapAckBlock, numGapBlocks)
	for i := range c.GapAckBlocks {
		c.GapAckBlocks[i] = GapAckBlock{Start: r.ReadUint16(), End: r.ReadUint16()}
	}
	c.DuplicateTSNs = make([]uint32, numDup)
	for i := range c.DuplicateTSNs {
		c.DuplicateTSNs[i] = r.ReadUint32()
	}
	return nil
}
