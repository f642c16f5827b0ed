package models

import "time"

// Message is the atomic unit of a conversation. It carries text, an
// image URL, or both, and is immutable once appended to a log.
type Message struct {
	ID        string    `json:"id"`              // ULID
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"` // public URL of uploaded content
	Sender    string    `json:"sender"`          // username of the author
	Timestamp time.Time `json:"timestamp"`       // assigned at write time, RFC 3339
}
