// Package liveness decides whether an entity is online from the time it was last heard from.
//
// Online is derived, never stored: a record stays online until its TTL lapses, so a crashed
// server keeps accepting players for up to one TTL window.
package liveness

import "time"

type Policy struct {
	TTL time.Duration
	Now func() time.Time
}

func NewPolicy(ttl time.Duration) Policy {
	return Policy{TTL: ttl, Now: time.Now}
}

// IsOnline reports whether now - lastContact <= TTL. The boundary is inclusive.
func (p Policy) IsOnline(lastContact time.Time) bool {
	return IsOnline(lastContact, p.CurrentTime(), p.TTL)
}

// Cutoff is the oldest lastContact that still counts as online.
func (p Policy) Cutoff() time.Time {
	return p.CurrentTime().Add(-p.TTL)
}

// CurrentTime reads the policy clock, falling back to time.Now.
func (p Policy) CurrentTime() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func IsOnline(lastContact, now time.Time, ttl time.Duration) bool {
	return now.Sub(lastContact) <= ttl
}
