package stun

import "encoding/binary"

// Username returns the decoded USERNAME attribute value, if present.
func (m *Message) Username() (string, bool) {
	attr, ok := m.Get(AttrUsername)
	if !ok {
		return "", false
	}
	return string(attr.Value), true
}

// AddUsername appends a USERNAME attribute.
func (m *Message) AddUsername(username string) {
	m.Add(AttrUsername, []byte(username))
}

// Priority returns the decoded PRIORITY attribute value, if present.
func (m *Message) Priority() (uint32, bool) {
	attr, ok := m.Get(AttrPriority)
	if !ok || len(attr.Value) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(attr.Value), true
}

// AddPriority appends a PRIORITY attribute.
func (m *Message) AddPriority(p uint32) {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, p)
	m.Add(AttrPriority, v)
}

// HasUseCandidate reports whether a USE-CANDIDATE attribute is present.
func (m *Message) HasUseCandidate() bool {
	_, ok := m.Get(AttrUseCandidate)
	return ok
}

// AddUseCandidate appends a zero-length USE-CANDIDATE attribute.
func (m *Message) AddUseCandidate() {
	m.Add(AttrUseCandidate, nil)
}

// HasIceControlled reports whether an ICE-CONTROLLED attribute is present.
func (m *Message) HasIceControlled() bool {
	_, ok := m.Get(AttrIceControlled)
	return ok
}

// AddIceControlling appends an ICE-CONTROLLING attribute with the given
// tiebreaker value.
func (m *Message) AddIceControlling(tiebreaker uint64) {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, tiebreaker)
	m.Add(AttrIceControlling, v)
}

// ErrorCode returns the decoded ERROR-CODE class*100+number and reason
// phrase, if present.
func (m *Message) ErrorCode() (code int, reason string, ok bool) {
	attr, found := m.Get(AttrErrorCode)
	if !found || len(attr.Value) < 4 {
		return 0, "", false
	}
	code = int(attr.Value[2])*100 + int(attr.Value[3])
	reason = string(attr.Value[4:])
	return code, reason, true
}
