package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTripChunk(t *testing.T, c Chunk) Chunk {
	raw := marshalChunk(c)
	decoded, consumed, err := unmarshalChunk(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), consumed)
	return decoded
}

func TestInitChunkRoundTrip(t *testing.T) {
	c := &InitChunk{
		isAck:           false,
		InitiateTag:     0xdeadbeef,
		AdvertisedRwnd:  131072,
		OutboundStreams: 4,
		InboundStreams:  8,
		InitialTSN:      42,
	}
	decoded := roundTripChunk(t, c).(*InitChunk)
	assert.Equal(t, ctInit, decoded.Type())
	assert.Equal(t, c.InitiateTag, decoded.InitiateTag)
	assert.Equal(t, c.OutboundStreams, decoded.OutboundStreams)
	assert.Equal(t, c.InboundStreams, decoded.InboundStreams)
	assert.Equal(t, c.InitialTSN, decoded.InitialTSN)
}

func TestInitAckCarriesStateCookie(t *testing.T) {
	c := &InitChunk{
		isAck:       true,
		InitiateTag: 7,
		InitialTSN:  1,
		StateCookie: []byte("opaque-cookie-bytes"),
	}
	decoded := roundTripChunk(t, c).(*InitChunk)
	assert.Equal(t, ctInitAck, decoded.Type())
	assert.Equal(t, c.StateCookie, decoded.StateCookie)
}

func TestInitAckMissingStateCookieIsInvalid(t *testing.T) {
	c := &InitChunk{isAck: true, InitiateTag: 7}
	raw := marshalChunk(c)
	_, _, err := unmarshalChunk(raw)
	assert.Error(t, err)
}

func TestDataChunkFlagsRoundTrip(t *testing.T) {
	c := &DataChunk{
		Begin:           true,
		End:             false,
		Unordered:       true,
		TSN:             99,
		StreamID:        3,
		StreamSeq:       1,
		PayloadProtocol: 53,
		UserData:        []byte("hello"),
	}
	decoded := roundTripChunk(t, c).(*DataChunk)
	assert.True(t, decoded.Begin)
	assert.False(t, decoded.End)
	assert.True(t, decoded.Unordered)
	assert.Equal(t, c.TSN, decoded.TSN)
	assert.Equal(t, c.UserData, decoded.UserData)
}

func TestSackChunkWithGapsAndDuplicates(t *testing.T) {
	c := &SackChunk{
		CumulativeTSNAck: 10,
		AdvertisedRwnd:   4096,
		GapAckBlocks:     []GapAckBlock{{Start: 2, End: 3}, {Start: 5, End: 5}},
		DuplicateTSNs:    []uint32{11, 13},
	}
	decoded := roundTripChunk(t, c).(*SackChunk)
	assert.Equal(t, c.CumulativeTSNAck, decoded.CumulativeTSNAck)
	assert.Equal(t, c.GapAckBlocks, decoded.GapAckBlocks)
	assert.Equal(t, c.DuplicateTSNs, decoded.DuplicateTSNs)
}

func TestHeartbeatEchoesInfoVerbatim(t *testing.T) {
	c := &HeartbeatChunk{Info: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	decoded := roundTripChunk(t, c).(*HeartbeatChunk)
	assert.Equal(t, c.Info, decoded.Info)

	ack := &HeartbeatChunk{isAck: true, Info: decoded.Info}
	decodedAck := roundTripChunk(t, ack).(*HeartbeatChunk)
	assert.Equal(t, ctHeartbeatAck, decodedAck.Type())
	assert.Equal(t, c.Info, decodedAck.Info)
}

func TestAbortChunkCauses(t *testing.T) {
	c := &AbortChunk{NoTCB: true, Causes: []ErrorCause{{Code: causeProtocolViolation, Info: []byte("bad")}}}
	decoded := roundTripChunk(t, c).(*AbortChunk)
	assert.True(t, decoded.NoTCB)
	require.Len(t, decoded.Causes, 1)
	assert.Equal(t, causeProtocolViolation, decoded.Causes[0].Code)
}

func TestShutdownSequenceChunks(t *testing.T) {
	shutdown := roundTripChunk(t, &ShutdownChunk{CumulativeTSNAck: 55}).(*ShutdownChunk)
	assert.Equal(t, uint32(55), shutdown.CumulativeTSNAck)

	roundTripChunk(t, &ShutdownAckChunk{})
	complete := roundTripChunk(t, &ShutdownCompleteChunk{NoTCB: true}).(*ShutdownCompleteChunk)
	assert.True(t, complete.NoTCB)
}

func TestCookieEchoAckRoundTrip(t *testing.T) {
	echo := roundTripChunk(t, &CookieEchoChunk{Cookie: []byte("state-cookie")}).(*CookieEchoChunk)
	assert.Equal(t, []byte("state-cookie"), echo.Cookie)
	roundTripChunk(t, &CookieAckChunk{})
}

func TestUnmarshalChunkRejectsShortBuffer(t *testing.T) {
	_, _, err := unmarshalChunk([]byte{1, 2})
	assert.Error(t, err)
}
