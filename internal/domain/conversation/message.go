package conversation

import "time"

type Source string

const (
	SourceTyped      Source = "typed"
	SourceScreenshot Source = "screenshot"
)

func (s Source) Valid() bool {
	return s == SourceTyped || s == SourceScreenshot
}

// Message is immutable once appended to a Record.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is the append-only history owned by one user. Insertion order is
// chronological order.
type Record struct {
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot copies the message slice so the caller cannot reach stored state.
func (r *Record) Snapshot() []Message {
	if r == nil || len(r.Messages) == 0 {
		return []Message{}
	}
	out := make([]Message, len(r.Messages))
	copy(out, r.Messages)
	return out
}
