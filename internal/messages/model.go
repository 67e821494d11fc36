package messages

import "time"

// Message is a single chat message.
type Message struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Content   string
	CreatedAt time.Time
	IsRead    bool
}

// Entry is a message as seen by a particular reader.
type Entry struct {
	Message
	SenderUsername string
	IsMine         bool
}
