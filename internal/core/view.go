package core

// ViewMessageLimit caps the history sent with a channel snapshot.
const ViewMessageLimit = 100

// ChannelView is the snapshot of a channel sent to sessions. It never
// carries the member list; sessions ask for it explicitly.
type ChannelView struct {
	ID          int64
	Name        string
	Key         string
	Topic       string
	Type        ChannelType
	FirstUnread int64
	Unread      int
	Highlight   int
	Messages    []*Message
}

// ToView builds the snapshot of c. The live channel is only read.
func ToView(c *Channel) ChannelView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChannelView{
		ID:          c.ID,
		Name:        c.name,
		Key:         c.key,
		Topic:       c.topic,
		Type:        c.Type,
		FirstUnread: c.firstUnread,
		Unread:      c.unread,
		Highlight:   c.highlight,
		Messages:    cloneMessages(c.messages.Tail(ViewMessageLimit)),
	}
}

// NetworkView is the snapshot of one network and its channels.
type NetworkView struct {
	ID       string
	Name     string
	Host     string
	Nick     string
	Channels []ChannelView
}
