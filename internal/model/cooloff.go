package model

import "time"

// CooloffRecord is a temporary exclusion applied to an account nickname
// after a failed purchase attempt of a penalty-triggering kind. The row
// is keyed by nickname: a repeat offense increments Count and pushes
// ExpiresAt further out instead of inserting a second row. Expired
// records stay in storage as an audit trail but are ignored by reads.
type CooloffRecord struct {
	Nickname  string    // account_cooloff.account_nickname (unique)
	Reason    string    // error code that triggered the exclusion
	Count     int       // number of offenses so far, never decremented
	CreatedAt time.Time // time of the most recent offense
	ExpiresAt time.Time // exclusion holds while ExpiresAt > now
}

// Active reports whether the exclusion still holds at the given time.
func (r CooloffRecord) Active(now time.Time) bool {
	return r.ExpiresAt.After(now)
}
