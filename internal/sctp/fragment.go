package sctp

import "github.com/lanikai/rtcdc/internal/serial"

// maxFragmentGroups bounds how many partially-reassembled messages a stream
// keeps in flight at once; a peer that starts many Begin fragments without
// ever sending an End can otherwise grow this set without bound.
const maxFragmentGroups = 1000

// fragmentGroup accumulates the DATA chunks of one (possibly unfragmented)
// message as they arrive, keyed by their stream sequence number for ordered
// delivery or insertion order for unordered streams. Chunks are buffered by
// TSN regardless of arrival order; a group completes once its chunks cover
// the contiguous TSN range from the Begin fragment to an End fragment.
type fragmentGroup struct {
	streamSeq       uint16
	payloadProtocol uint32
	chunks          map[uint32]*DataChunk // keyed by TSN
	beginTSN        uint32
	endTSN          uint32
	haveBegin       bool
	haveEnd         bool
}

// fragmentAssembler reassembles DATA chunk fragments into complete messages
// for a single stream, in the order callers insert them via Add.
type fragmentAssembler struct {
	groups    map[uint16]*fragmentGroup // ordered, by stream sequence
	unordered []*fragmentGroup          // unordered groups, matched by contiguous TSN
	insertSeq []uint16                  // oldest-first eviction order for groups
}

func newFragmentAssembler() *fragmentAssembler {
	return &fragmentAssembler{groups: make(map[uint16]*fragmentGroup)}
}

// ReassembledMessage is one complete, in-order user message.
type ReassembledMessage struct {
	StreamSeq       uint16
	PayloadProtocol uint32
	Unordered       bool
	Data            []byte
}

// Add folds one DATA chunk into its fragment group, returning a complete
// message if the chunk completed its group's contiguous TSN range.
func (a *fragmentAssembler) Add(c *DataChunk) (*ReassembledMessage, error) {
	if c.Unordered {
		return a.addUnordered(c)
	}
	return a.addOrdered(c)
}

func (a *fragmentAssembler) addOrdered(c *DataChunk) (*ReassembledMessage, error) {
	g, ok := a.groups[c.StreamSeq]
	if !ok {
		if len(a.groups) >= maxFragmentGroups {
			a.evictOldest()
		}
		g = &fragmentGroup{streamSeq: c.StreamSeq, chunks: make(map[uint32]*DataChunk)}
		a.groups[c.StreamSeq] = g
		a.insertSeq = append(a.insertSeq, c.StreamSeq)
	}
	msg, done, err := foldFragment(g, c, false)
	if err != nil {
		return nil, err
	}
	if done {
		delete(a.groups, c.StreamSeq)
		a.removeFromInsertSeq(c.StreamSeq)
	}
	return msg, nil
}

func (a *fragmentAssembler) addUnordered(c *DataChunk) (*ReassembledMessage, error) {
	for i, g := range a.unordered {
		if c.Begin && g.haveBegin {
			continue
		}
		if !c.Begin && g.haveEnd {
			continue
		}
		msg, done, err := foldFragment(g, c, true)
		if err != nil {
			return nil, err
		}
		if done {
			a.unordered = append(a.unordered[:i], a.unordered[i+1:]...)
		}
		return msg, nil
	}

	g := &fragmentGroup{chunks: make(map[uint32]*DataChunk)}
	msg, done, err := foldFragment(g, c, true)
	if err != nil {
		return nil, err
	}
	if !done {
		if len(a.unordered) >= maxFragmentGroups {
			a.unordered = a.unordered[1:]
		}
		a.unordered = append(a.unordered, g)
	}
	return msg, nil
}

// foldFragment inserts c into g by TSN, independent of the order fragments
// arrive in, and assembles the message once g holds every TSN from its
// Begin fragment through an End fragment. A single fragment with both
// flags set is itself a complete, unfragmented message.
func foldFragment(g *fragmentGroup, c *DataChunk, unordered bool) (*ReassembledMessage, bool, error) {
	g.chunks[c.TSN] = c
	g.payloadProtocol = c.PayloadProtocol

	if c.Begin {
		g.haveBegin = true
		g.beginTSN = c.TSN
	}
	if c.End {
		g.haveEnd = true
		g.endTSN = c.TSN
	}

	if !g.haveBegin || !g.haveEnd {
		return nil, false, nil
	}

	span := serial.Diff32(g.endTSN, g.beginTSN)
	if span < 0 {
		return nil, false, ErrInvalidFormat
	}
	required := int(span) + 1
	if len(g.chunks) < required {
		return nil, false, nil
	}

	data := make([]byte, 0, required*len(c.UserData))
	tsn := g.beginTSN
	for i := 0; i < required; i++ {
		chunk, ok := g.chunks[tsn]
		if !ok {
			return nil, false, nil
		}
		data = append(data, chunk.UserData...)
		tsn++
	}

	return &ReassembledMessage{
		StreamSeq:       g.streamSeq,
		PayloadProtocol: g.payloadProtocol,
		Unordered:       unordered,
		Data:            data,
	}, true, nil
}

func (a *fragmentAssembler) evictOldest() {
	if len(a.insertSeq) == 0 {
		return
	}
	oldest := a.insertSeq[0]
	a.insertSeq = a.insertSeq[1:]
	delete(a.groups, oldest)
}

func (a *fragmentAssembler) removeFromInsertSeq(seq uint16) {
	for i, s := range a.insertSeq {
		if s == seq {
			a.insertSeq = append(a.insertSeq[:i], a.insertSeq[i+1:]...)
			return
		}
	}
}
