package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ChannelType distinguishes joined channels from queries and synthetic views.
type ChannelType string

const (
	ChannelTypeChannel ChannelType = "channel"
	ChannelTypeLobby   ChannelType = "lobby"
	ChannelTypeQuery   ChannelType = "query"
	ChannelTypeSpecial ChannelType = "special"
)

func (t ChannelType) valid() bool {
	switch t {
	case ChannelTypeChannel, ChannelTypeLobby, ChannelTypeQuery, ChannelTypeSpecial:
		return true
	default:
		return false
	}
}

// Services are the shared collaborators every channel reaches.
type Services struct {
	Options    Options
	ChannelIDs *IDAllocator
	MessageIDs *IDAllocator
	// Writeback receives write-through requests. Nil disables them.
	Writeback WriteThrough
	// Previews releases thumbnails of evicted messages. May be nil.
	Previews PreviewCache
	// Thumbnails accepts prefetched thumbnails. May be nil.
	Thumbnails ThumbnailStore
	// History serves older pages. Nil disables history loading.
	History HistorySource
	Log     *zerolog.Logger
}

func (s *Services) validate() error {
	if s == nil {
		return errors.New("services are required")
	}
	if s.ChannelIDs == nil || s.MessageIDs == nil {
		return errors.New("channel and message id allocators are required")
	}
	return s.Options.Validate()
}

func (s *Services) logger() *zerolog.Logger {
	if s.Log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return s.Log
}

// Binding ties a channel to the network and account that own it. Write
// through is skipped for channels without a binding.
type Binding struct {
	Account     string
	Log         bool
	NetworkID   string
	NetworkName string
	NetworkHost string
}

// ChannelConfig describes a channel to create.
type ChannelConfig struct {
	Name  string
	Key   string
	Topic string
	// Type defaults to ChannelTypeChannel.
	Type ChannelType
}

// Counters are the read markers of a channel.
type Counters struct {
	FirstUnread int64
	Unread      int
	Highlight   int
}

// Channel is the state of one joined channel, query or synthetic view.
// Mutations come from the owning network's loop; the lock additionally
// guards against history merges running on loader goroutines and readers
// building views.
type Channel struct {
	ID   int64
	Type ChannelType

	mu          sync.Mutex
	name        string
	key         string
	topic       string
	messages    MessageBuffer
	users       *Roster
	firstUnread int64
	unread      int
	highlight   int
	binding     *Binding

	svc *Services
	log zerolog.Logger
}

// NewChannel validates cfg, applies defaults and allocates a fresh id.
func NewChannel(svc *Services, cfg ChannelConfig) (*Channel, error) {
	if err := svc.validate(); err != nil {
		return nil, fmt.Errorf("new channel: %w", err)
	}
	if cfg.Type == "" {
		cfg.Type = ChannelTypeChannel
	}
	if !cfg.Type.valid() {
		return nil, fmt.Errorf("new channel: unknown type %q", cfg.Type)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("new channel: %w: name is required", ErrBadRequest)
	}

	id := svc.ChannelIDs.Next()
	return &Channel{
		ID:    id,
		Type:  cfg.Type,
		name:  cfg.Name,
		key:   cfg.Key,
		topic: cfg.Topic,
		users: NewRoster(),
		svc:   svc,
		log:   svc.logger().With().Int64("channel_id", id).Str("channel", cfg.Name).Logger(),
	}, nil
}

func (c *Channel) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Channel) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

func (c *Channel) SetTopic(topic string) {
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
}

func (c *Channel) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

func (c *Channel) SetKey(key string) {
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
}

// Rename changes the display name, used when a query partner changes nick.
func (c *Channel) Rename(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// Bind attaches the channel to its owning network.
func (c *Channel) Bind(b Binding) {
	c.mu.Lock()
	c.binding = &b
	c.mu.Unlock()
}

// Counters returns a snapshot of the read markers.
func (c *Channel) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{FirstUnread: c.firstUnread, Unread: c.unread, Highlight: c.highlight}
}

// Len returns how many messages are retained in memory.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages.Len()
}

// Messages returns copies of every retained message, oldest first.
func (c *Channel) Messages() []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneMessages(c.messages.Tail(-1))
}

// FindMessage returns a copy of the retained message with id.
func (c *Channel) FindMessage(id int64) (*Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.messages.Find(id)
	return m.Clone(), m != nil
}

// PushMessage records msg and delivers it to every attached session.
//
// Delivery happens before anything is handed to persistence, and
// persistence is queued, never awaited. A session that has this channel in
// foreground suppresses unread and highlight accounting for the push.
func (c *Channel) PushMessage(sessions SessionSet, msg *Message, increasesUnread bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.ID == 0 {
		msg.ID = c.svc.MessageIDs.Next()
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}

	isOpen := sessions != nil && sessions.IsChannelOpen(c.ID)

	ev := &Event{Kind: EventMessage, Channel: c.ID, Message: msg.Clone()}
	if (increasesUnread || msg.Highlight) && !isOpen {
		c.unread++
		unread := c.unread
		ev.Unread = &unread
	}

	if sessions != nil {
		if err := runSafely("emit message", func() error {
			sessions.Emit(ev)
			return nil
		}); err != nil {
			c.log.Error().Err(err).Int64("message_id", msg.ID).Msg("deliver message")
		}
	}

	c.messages.Append(msg)

	// Public sessions vanish with the page, nothing is written through.
	if !c.svc.Options.Public {
		c.writeThrough(msg)
	}

	c.trim()

	if msg.Self {
		// The user's own message means everything up to here was seen.
		c.firstUnread = 0
		c.highlight = 0
	} else if !isOpen {
		if c.firstUnread == 0 {
			c.firstUnread = msg.ID
		}
		if msg.Highlight {
			c.highlight++
		}
	}
}

func (c *Channel) writeThrough(msg *Message) {
	if c.binding == nil || c.svc.Writeback == nil {
		return
	}
	req := WriteRequest{
		Binding: *c.binding,
		Channel: c.name,
		Type:    c.Type,
		Message: msg.Clone(),
	}
	if err := runSafely("write through", func() error {
		if !c.svc.Writeback.Enqueue(req) {
			return ErrWritebackFull
		}
		return nil
	}); err != nil {
		c.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("message not persisted")
	}
}

func (c *Channel) trim() {
	removed := c.messages.Trim(c.svc.Options.MaxHistory)
	if len(removed) == 0 || !c.svc.Options.releasesOnTrim() {
		return
	}
	if err := runSafely("release previews", func() error {
		ReleasePreviews(c.svc.Previews, removed)
		return nil
	}); err != nil {
		c.log.Error().Err(err).Int("removed", len(removed)).Msg("release trimmed previews")
	}
}

// MarkRead clears the badge after a session opened the channel. The first
// unread marker moves to the newest retained message.
func (c *Channel) MarkRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread = 0
	c.highlight = 0
	c.firstUnread = 0
	if last := c.messages.Last(); last != nil {
		c.firstUnread = last.ID
	}
}

// Destroy releases every retained preview and detaches the channel from
// its network. Further pushes are kept in memory only.
func (c *Channel) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := runSafely("release previews", func() error {
		ReleasePreviews(c.svc.Previews, c.messages.Tail(-1))
		return nil
	}); err != nil {
		c.log.Error().Err(err).Msg("release previews on destroy")
	}
	c.binding = nil
}

// SetUser inserts or overwrites a member.
func (c *Channel) SetUser(u *User) {
	c.mu.Lock()
	c.users.SetUser(u)
	c.mu.Unlock()
}

// RemoveUser deletes a member.
func (c *Channel) RemoveUser(u *User) {
	c.mu.Lock()
	c.users.RemoveUser(u)
	c.mu.Unlock()
}

// FindUser returns a copy of the tracked member.
func (c *Channel) FindUser(nick string) (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users.FindUser(nick)
	if !ok {
		return User{}, false
	}
	return *u, true
}

// GetUser returns the tracked member or a placeholder with only the nick.
func (c *Channel) GetUser(nick string) User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.users.GetUser(nick)
}

// RenameUser moves a member to a new nick.
func (c *Channel) RenameUser(oldNick, newNick string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users.RenameUser(oldNick, newNick)
}

// ResetUsers replaces the member list, e.g. after a NAMES reply.
func (c *Channel) ResetUsers(users []User) {
	c.mu.Lock()
	c.users.Reset(users)
	c.mu.Unlock()
}

// SortedUsers returns the members ordered for display.
func (c *Channel) SortedUsers(prefix []string) []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users.SortedUsers(prefix)
}
