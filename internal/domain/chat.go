package domain

import "time"

// ChatMessage is one entry of a room's append-only chat log. The sender
// fields are stamped server-side; clients never self-report identity.
type ChatMessage struct {
	SenderID   UserID    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}
