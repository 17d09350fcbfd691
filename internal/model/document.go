package model

import "time"

// Versioned is implemented by documents written with optimistic locking.
type Versioned interface {
	DocVersion() int
	// NextVersion bumps the version and stamps the update time before a write.
	NextVersion(now time.Time)
}

var (
	_ Versioned = (*Dorm)(nil)
	_ Versioned = (*Blog)(nil)
)
