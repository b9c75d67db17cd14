package sctp

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/lanikai/rtcdc/internal/packet"
)

const packetHeaderSize = 12

// castagnoliTable is computed once and shared by every checksum call.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Packet is a decoded SCTP packet: the 12-byte common header plus its
// back-to-back chunks.
type Packet struct {
	SourcePort      uint16
	DestinationPort uint16
	VerificationTag uint32
	Chunks          []Chunk
}

// Marshal encodes the packet and computes its CRC-32C checksum in place.
func (p *Packet) Marshal() []byte {
	raw := make([]byte, packetHeaderSize)
	binary.BigEndian.PutUint16(raw[0:2], p.SourcePort)
	binary.BigEndian.PutUint16(raw[2:4], p.DestinationPort)
	binary.BigEndian.PutUint32(raw[4:8], p.VerificationTag)
	// raw[8:12] (checksum) stays zero until computed below.

	for _, c := range p.Chunks {
		raw = append(raw, marshalChunk(c)...)
	}

	checksum := checksum(raw)
	binary.LittleEndian.PutUint32(raw[8:12], checksum)
	return raw
}

// Unmarshal decodes a packet from raw bytes, validating the CRC-32C
// checksum against the field carried in the common header.
func Unmarshal(raw []byte) (*Packet, error) {
	if len(raw) < packetHeaderSize {
		return nil, ErrInsufficientData
	}

	theirChecksum := binary.LittleEndian.Uint32(raw[8:12])
	ourChecksum := checksum(raw)
	if theirChecksum != ourChecksum {
		return nil, &ChecksumMismatchError{Expected: ourChecksum, Actual: theirChecksum}
	}

	r := packet.NewReader(raw)
	p := &Packet{
		SourcePort:      r.ReadUint16(),
		DestinationPort: r.ReadUint16(),
		VerificationTag: r.ReadUint32(),
	}
	r.Skip(4) // checksum, already validated

	offset := packetHeaderSize
	for offset < len(raw) {
		if len(raw)-offset < chunkHeaderSize {
			return nil, ErrInsufficientData
		}
		c, consumed, err := unmarshalChunk(raw[offset:])
		if err != nil {
			// A single undecodable chunk doesn't invalidate a packet whose
			// checksum already validated: the chunks decoded before it are
			// returned along with the error, and the association processes
			// those and drops the rest. The loop stops here since the
			// length field is the only way to know where the next chunk
			// starts, and it may itself be wrong.
			return p, err
		}
		p.Chunks = append(p.Chunks, c)
		offset += consumed
	}
	return p, nil
}

// checksum computes CRC-32C over raw with the checksum field (bytes 8:12)
// treated as zero, without copying or mutating the packet.
func checksum(raw []byte) uint32 {
	var zero [4]byte
	sum := crc32.Update(0, castagnoliTable, raw[0:8])
	sum = crc32.Update(sum, castagnoliTable, zero[:])
	sum = crc32.Update(sum, castagnoliTable, raw[12:])
	return sum
}
