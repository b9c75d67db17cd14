package sctp

import (
	"time"

	"github.com/lanikai/rtcdc/internal/serial"
)

// RTO bounds and RTT estimator gains, RFC 4960 §6.3.1.
const (
	rtoInitial = 3 * time.Second
	rtoMin     = 1 * time.Second
	rtoMax     = 60 * time.Second

	rttAlpha = 0.125
	rttBeta  = 0.25
)

// maxAssociationRetransmits is the fatal retransmit ceiling (Association.Max.Retrans
// in RFC 4960 §8.2) after which the association is considered failed.
const maxAssociationRetransmits = 10

// rtoEstimator tracks the smoothed RTT/RTTVAR and the resulting
// retransmission timeout, per RFC 4960 §6.3.1.
type rtoEstimator struct {
	srtt    time.Duration
	rttvar  time.Duration
	rto     time.Duration
	sampled bool
}

func newRTOEstimator() *rtoEstimator {
	return &rtoEstimator{rto: rtoInitial}
}

// Sample folds one new RTT measurement into the estimator. Measurements
// from retransmitted DATA chunks must never be used (Karn's algorithm),
// which is why callers only invoke Sample for first-attempt acknowledgments.
func (e *rtoEstimator) Sample(rtt time.Duration) {
	if !e.sampled {
		e.srtt = rtt
		e.rttvar = rtt / 2
		e.sampled = true
	} else {
		delta := e.srtt - rtt
		if delta < 0 {
			delta = -delta
		}
		e.rttvar = time.Duration((1-rttBeta)*float64(e.rttvar) + rttBeta*float64(delta))
		e.srtt = time.Duration((1-rttAlpha)*float64(e.srtt) + rttAlpha*float64(rtt))
	}

	e.rto = e.srtt + 4*e.rttvar
	if e.rto < rtoMin {
		e.rto = rtoMin
	}
	if e.rto > rtoMax {
		e.rto = rtoMax
	}
}

// Backoff doubles the RTO after an expired retransmission timer, per
// RFC 4960 §6.3.3 rule E2.
func (e *rtoEstimator) Backoff() {
	e.rto *= 2
	if e.rto > rtoMax {
		e.rto = rtoMax
	}
}

func (e *rtoEstimator) RTO() time.Duration { return e.rto }

// pendingChunk is one DATA chunk awaiting acknowledgment.
type pendingChunk struct {
	chunk        *DataChunk
	sentAt       time.Time
	retransmits  int
	isRetransmit bool
}

// congestionController implements the slow-start / congestion-avoidance
// window growth of RFC 4960 §7.2, scoped to a single destination address
// (this stack never multihomes, so one instance per association suffices).
type congestionController struct {
	mtu            uint32
	cwnd           uint32
	ssthresh       uint32
	bytesInFlight  uint32
	bytesAckedThisWindow uint32
}

func newCongestionController(mtu uint32) *congestionController {
	// RFC 4960 §7.2.1: cwnd = min(4*MTU, max(2*MTU, 4380)).
	floor := 2 * mtu
	if floor < 4380 {
		floor = 4380
	}
	cwnd := 4 * mtu
	if floor < cwnd {
		cwnd = floor
	}
	return &congestionController{
		mtu:      mtu,
		cwnd:     cwnd,
		ssthresh: 1 << 30,
	}
}

func (c *congestionController) CanSend(size uint32) bool {
	return c.bytesInFlight+size <= c.cwnd
}

func (c *congestionController) OnSend(size uint32) {
	c.bytesInFlight += size
}

// OnAck folds a cumulative-ack advance of ackedBytes into the window,
// growing cwnd per whichever phase (slow-start or congestion-avoidance)
// the controller is currently in.
func (c *congestionController) OnAck(ackedBytes uint32) {
	if ackedBytes > c.bytesInFlight {
		ackedBytes = c.bytesInFlight
	}
	c.bytesInFlight -= ackedBytes

	if c.cwnd <= c.ssthresh {
		// Slow start: grow by the bytes acked, at most one MTU per ack.
		grow := ackedBytes
		if grow > c.mtu {
			grow = c.mtu
		}
		c.cwnd += grow
		return
	}

	// Congestion avoidance: grow by at most one MTU per RTT, tracked here
	// as "one MTU per cwnd bytes acked".
	c.bytesAckedThisWindow += ackedBytes
	if c.bytesAckedThisWindow >= c.cwnd {
		c.bytesAckedThisWindow -= c.cwnd
		c.cwnd += c.mtu
	}
}

// OnRetransmitTimeout sets ssthresh to half the window (at least 4 MTU) and
// collapses cwnd to one MTU, per RFC 4960 §7.2.3.
func (c *congestionController) OnRetransmitTimeout() {
	c.ssthresh = c.cwnd / 2
	if c.ssthresh < 4*c.mtu {
		c.ssthresh = 4 * c.mtu
	}
	c.cwnd = c.mtu
	c.bytesAckedThisWindow = 0
}

// retransmitQueue tracks unacknowledged outbound DATA chunks keyed by TSN,
// driving both the RTO estimator and the congestion controller as SACKs
// arrive and as the retransmission timer fires. Chunks that don't fit the
// current congestion window are held in unsent, in TSN order, rather than
// dropped; they are admitted once Ready reports room for them.
type retransmitQueue struct {
	pending map[uint32]*pendingChunk
	unsent  []*DataChunk
	rto     *rtoEstimator
	cc      *congestionController
}

func newRetransmitQueue(mtu uint32) *retransmitQueue {
	return &retransmitQueue{
		pending: make(map[uint32]*pendingChunk),
		rto:     newRTOEstimator(),
		cc:      newCongestionController(mtu),
	}
}

func chunkSize(c *DataChunk) uint32 {
	return uint32(dataFixedSize + len(c.UserData))
}

// Send admits c into the in-flight set if the congestion window allows it
// and nothing is already waiting ahead of it; otherwise it is appended to
// unsent to preserve TSN order and admitted later via Ready. The return
// value reports only whether c should be transmitted now.
func (q *retransmitQueue) Send(c *DataChunk, now time.Time) bool {
	if len(q.unsent) > 0 || !q.cc.CanSend(chunkSize(c)) {
		q.unsent = append(q.unsent, c)
		return false
	}
	q.admit(c, now)
	return true
}

func (q *retransmitQueue) admit(c *DataChunk, now time.Time) {
	q.cc.OnSend(chunkSize(c))
	q.pending[c.TSN] = &pendingChunk{chunk: c, sentAt: now}
}

// Ready admits as many queued unsent chunks as now fit the congestion
// window, in TSN order, and returns them for transmission.
func (q *retransmitQueue) Ready(now time.Time) []*DataChunk {
	var ready []*DataChunk
	for len(q.unsent) > 0 && q.cc.CanSend(chunkSize(q.unsent[0])) {
		c := q.unsent[0]
		q.unsent = q.unsent[1:]
		q.admit(c, now)
		ready = append(ready, c)
	}
	return ready
}

// Ack removes every pending chunk up to and including cumulativeTSNAck,
// folding their acknowledgment into the RTT estimator (first-attempt chunks
// only, per Karn's algorithm) and the congestion window.
func (q *retransmitQueue) Ack(cumulativeTSNAck uint32, now time.Time) {
	var ackedBytes uint32
	for tsn, p := range q.pending {
		if serial.Greater32(tsn, cumulativeTSNAck) {
			continue
		}
		ackedBytes += chunkSize(p.chunk)
		if !p.isRetransmit {
			q.rto.Sample(now.Sub(p.sentAt))
		}
		delete(q.pending, tsn)
	}
	if ackedBytes > 0 {
		q.cc.OnAck(ackedBytes)
	}
}

// Expired returns the pending chunks whose retransmission timer has fired
// as of now, each with its retransmit count already incremented. An error
// is returned once any one of them has been retransmitted
// maxAssociationRetransmits times, signaling the association has failed.
func (q *retransmitQueue) Expired(now time.Time) ([]*DataChunk, error) {
	var expired []*DataChunk
	timedOut := false
	for _, p := range q.pending {
		if now.Sub(p.sentAt) < q.rto.RTO() {
			continue
		}
		p.retransmits++
		if p.retransmits > maxAssociationRetransmits {
			timedOut = true
			continue
		}
		p.isRetransmit = true
		p.sentAt = now
		expired = append(expired, p.chunk)
	}
	if timedOut {
		q.rto.Backoff()
		q.cc.OnRetransmitTimeout()
		return expired, ErrMaxRetransmitsExceeded
	}
	if len(expired) > 0 {
		q.rto.Backoff()
		q.cc.OnRetransmitTimeout()
	}
	return expired, nil
}

func (q *retransmitQueue) Empty() bool {
	return len(q.pending) == 0 && len(q.unsent) == 0
}
