package pairing

import "time"

// Contact is another user the caller shares a chat with.
type Contact struct {
	ID        int64
	Username  string
	Phone     string
	AvatarURL *string
	LastSeen  time.Time
	ChatID    int64
}

// AddResult is returned by AddContact.
type AddResult struct {
	ChatID  int64
	Created bool
	Contact Contact
}
