package directory

import "time"

// User is a phone-identified account. AvatarURL is nil until one is set.
type User struct {
	ID        int64
	Phone     string
	Username  string
	AvatarURL *string
	LastSeen  time.Time
}
