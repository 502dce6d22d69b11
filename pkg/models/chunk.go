package models

import (
	"fmt"
	"time"
)

// Chunk is a retrievable unit of text. SourceIndex is its position within the
// document it was split from.
type Chunk struct {
	Text        string `json:"text"`
	SourceIndex int    `json:"source_index"`
}

// MessageTimeLayout is the timestamp layout of exported chat transcripts,
// e.g. "24/02/2019, 11:27:29".
const MessageTimeLayout = "02/01/2006, 15:04:05"

// Message is one transcript line.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
}

// String renders the message in its transcript line form.
func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(MessageTimeLayout), m.Author, m.Text)
}

// Session is a run of messages whose consecutive gaps stay within a threshold.
type Session []Message
