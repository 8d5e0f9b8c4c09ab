package core

import "slices"

// MessageBuffer is the ordered in-memory history of one channel.
// It is not safe for concurrent use; Channel guards it with its lock so
// that an append at the tail and a history splice at the head never
// interleave.
type MessageBuffer struct {
	messages []*Message
}

// Append adds msg at the tail.
func (b *MessageBuffer) Append(msg *Message) {
	b.messages = append(b.messages, msg)
}

// Prepend splices page in front of the current head. page must be ordered
// oldest to newest.
func (b *MessageBuffer) Prepend(page []*Message) {
	if len(page) == 0 {
		return
	}
	merged := make([]*Message, 0, len(page)+len(b.messages))
	merged = append(merged, page...)
	b.messages = append(merged, b.messages...)
}

// Trim drops the oldest messages until at most max remain and returns the
// removed ones. A negative max means unlimited.
func (b *MessageBuffer) Trim(max int) []*Message {
	if max < 0 || len(b.messages) <= max {
		return nil
	}
	excess := len(b.messages) - max
	removed := slices.Clone(b.messages[:excess])
	n := copy(b.messages, b.messages[excess:])
	clear(b.messages[n:])
	b.messages = b.messages[:n]
	return removed
}

func (b *MessageBuffer) Len() int { return len(b.messages) }

// Last returns the newest message or nil.
func (b *MessageBuffer) Last() *Message {
	if len(b.messages) == 0 {
		return nil
	}
	return b.messages[len(b.messages)-1]
}

// Tail returns up to n newest messages, oldest first. The slice is a copy;
// the messages are shared.
func (b *MessageBuffer) Tail(n int) []*Message {
	if n < 0 || n > len(b.messages) {
		n = len(b.messages)
	}
	return slices.Clone(b.messages[len(b.messages)-n:])
}

// Find returns the message with the given id.
func (b *MessageBuffer) Find(id int64) *Message {
	for _, m := range b.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}
