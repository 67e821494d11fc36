package otp

import "time"

// Code is a stored one-time login code. Digest holds the keyed hash of the
// (phone, code) pair, never the digits themselves.
type Code struct {
	ID        int64
	Phone     string
	Digest    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// IssueResult is returned by Issue. DebugCode carries the raw digits only
// when no delivery channel is configured.
type IssueResult struct {
	Code      string
	DebugCode string
	ExpiresAt time.Time
}
