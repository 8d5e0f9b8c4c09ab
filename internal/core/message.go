package core

import "time"

// MessageType classifies a channel message.
type MessageType string

const (
	MessageTypeMessage MessageType = "message"
	MessageTypeAction  MessageType = "action"
	MessageTypeNotice  MessageType = "notice"
	MessageTypeJoin    MessageType = "join"
	MessageTypePart    MessageType = "part"
	MessageTypeQuit    MessageType = "quit"
	MessageTypeNick    MessageType = "nick"
	MessageTypeMode    MessageType = "mode"
	MessageTypeTopic   MessageType = "topic"
	MessageTypeKick    MessageType = "kick"
	MessageTypeError   MessageType = "error"
)

// IncreasesUnread reports whether messages of this type count towards the
// unread badge by default.
func (t MessageType) IncreasesUnread() bool {
	switch t {
	case MessageTypeMessage, MessageTypeAction, MessageTypeNotice, MessageTypeError:
		return true
	default:
		return false
	}
}

// Indexable reports whether the durable message index keeps this type.
func (t MessageType) Indexable() bool {
	return t == MessageTypeMessage || t == MessageTypeAction
}

// Preview is a link or image preview attached to a message.
// Thumb references a cached resource and is cleared once released.
type Preview struct {
	Type  string
	Link  string
	Thumb string
}

// Message is the domain model for a single channel line.
type Message struct {
	ID        int64
	Type      MessageType
	Time      time.Time
	From      string
	Text      string
	Highlight bool
	Self      bool
	Preview   *Preview
}

// Clone returns a deep copy safe to hand to other goroutines.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Preview != nil {
		p := *m.Preview
		c.Preview = &p
	}
	return &c
}

func cloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
