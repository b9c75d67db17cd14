package ice

import (
	"fmt"
	"net"
)

// peerKey identifies a remote address/port pair as a validated peer.
type peerKey string

func makePeerKey(addr net.IP, port int) peerKey {
	return peerKey(fmt.Sprintf("%s:%d", addr.String(), port))
}

// peerSet is the set of remote addresses that have passed a validated
// binding request.
type peerSet map[peerKey]struct{}

func (s peerSet) add(addr net.IP, port int) {
	s[makePeerKey(addr, port)] = struct{}{}
}

func (s peerSet) contains(addr net.IP, port int) bool {
	_, ok := s[makePeerKey(addr, port)]
	return ok
}
