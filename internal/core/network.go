package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultPrefix is the member prefix order assumed until the server says
// otherwise.
var DefaultPrefix = []string{"~", "&", "@", "%", "+"}

// NetworkConfig describes one IRC network of an account.
type NetworkConfig struct {
	// ID is generated when empty.
	ID     string
	Name   string
	Host   string
	Nick   string
	Prefix []string
}

// Network owns the channels of one IRC connection. Every mutation of its
// channels happens on the goroutine running Run, in the order commands
// were submitted.
type Network struct {
	ID   uuid.UUID
	Name string
	Host string

	account  *Account
	svc      *Services
	commands chan *Command

	mu       sync.RWMutex
	nick     string
	prefix   []string
	channels []*Channel

	log zerolog.Logger
}

// NewNetwork creates a network with its lobby channel and attaches it to
// account.
func NewNetwork(svc *Services, account *Account, cfg NetworkConfig) (*Network, error) {
	if err := svc.validate(); err != nil {
		return nil, fmt.Errorf("new network: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("new network: %w: account is required", ErrBadRequest)
	}
	if cfg.Name == "" || cfg.Host == "" || cfg.Nick == "" {
		return nil, fmt.Errorf("new network: %w: name, host and nick are required", ErrBadRequest)
	}

	id := uuid.New()
	if cfg.ID != "" {
		parsed, err := uuid.Parse(cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("new network %s: parse id: %w", cfg.Name, err)
		}
		id = parsed
	}
	prefix := cfg.Prefix
	if len(prefix) == 0 {
		prefix = DefaultPrefix
	}

	n := &Network{
		ID:       id,
		Name:     cfg.Name,
		Host:     cfg.Host,
		account:  account,
		svc:      svc,
		commands: make(chan *Command, 64),
		nick:     cfg.Nick,
		prefix:   append([]string(nil), prefix...),
		log:      account.log.With().Str("network", cfg.Name).Logger(),
	}

	if _, err := n.addChannel(cfg.Name, ChannelTypeLobby); err != nil {
		return nil, fmt.Errorf("new network %s: %w", cfg.Name, err)
	}
	account.addNetwork(n)
	return n, nil
}

// Nick returns the nickname the bouncer uses on this network.
func (n *Network) Nick() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.nick
}

// Prefix returns the member prefix symbols, highest privilege first.
func (n *Network) Prefix() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]string(nil), n.prefix...)
}

// Lobby returns the network's server window.
func (n *Network) Lobby() *Channel {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.channels[0]
}

// Channels returns the network's channels, lobby first.
func (n *Network) Channels() []*Channel {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Channel, len(n.channels))
	copy(out, n.channels)
	return out
}

// Channel looks up a channel by id.
func (n *Network) Channel(id int64) (*Channel, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return nil, false
}

// ChannelByName looks up a channel case-insensitively.
func (n *Network) ChannelByName(name string) (*Channel, bool) {
	key := FoldNick(name)
	for _, ch := range n.Channels() {
		if ch.Type != ChannelTypeLobby && FoldNick(ch.Name()) == key {
			return ch, true
		}
	}
	return nil, false
}

// View snapshots the network and all its channels.
func (n *Network) View() NetworkView {
	channels := n.Channels()
	views := make([]ChannelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, ToView(ch))
	}
	return NetworkView{
		ID:       n.ID.String(),
		Name:     n.Name,
		Host:     n.Host,
		Nick:     n.Nick(),
		Channels: views,
	}
}

// Submit queues cmd for the network loop.
func (n *Network) Submit(ctx context.Context, cmd *Command) error {
	select {
	case n.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues cmd without waiting. It reports false when the queue
// is full.
func (n *Network) TrySubmit(cmd *Command) bool {
	select {
	case n.commands <- cmd:
		return true
	default:
		return false
	}
}

// Run applies submitted commands until ctx is done, then destroys every
// channel.
func (n *Network) Run(ctx context.Context) {
	defer n.close()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-n.commands:
			err := runSafely("network command", func() error {
				return n.apply(ctx, cmd)
			})
			if err != nil {
				n.reportError(cmd, err)
			}
		}
	}
}

func (n *Network) reportError(cmd *Command, err error) {
	var coreErr *CoreError
	if cmd.Session != nil && errors.As(err, &coreErr) {
		cmd.Session.Deliver(errorEvent(coreErr))
		return
	}
	n.log.Warn().Err(err).Int("kind", int(cmd.Kind)).Str("target", cmd.Target).Msg("command failed")
}

func (n *Network) close() {
	n.mu.Lock()
	channels := n.channels
	n.mu.Unlock()
	for _, ch := range channels {
		ch.Destroy()
	}
}

func (n *Network) apply(ctx context.Context, cmd *Command) error {
	switch cmd.Kind {
	case CommandJoin:
		return n.handleJoin(cmd)
	case CommandPart:
		return n.handlePart(cmd)
	case CommandQuit:
		n.handleQuit(cmd)
		return nil
	case CommandNick:
		n.handleNick(cmd)
		return nil
	case CommandMode:
		return n.handleMode(cmd)
	case CommandTopic:
		return n.handleTopic(cmd)
	case CommandNames:
		return n.handleNames(cmd)
	case CommandMessage:
		return n.handleMessage(cmd)
	case CommandOpenChannel:
		return n.handleOpen(cmd)
	case CommandLoadMore:
		return n.handleLoadMore(ctx, cmd)
	case CommandListUsers:
		return n.handleListUsers(cmd)
	case CommandInput:
		return n.handleInput(cmd)
	default:
		return fmt.Errorf("%w: unknown command kind %d", ErrBadRequest, cmd.Kind)
	}
}

func (n *Network) isSelf(nick string) bool {
	return FoldNick(nick) == FoldNick(n.Nick())
}

func (n *Network) binding() Binding {
	return Binding{
		Account:     n.account.Name,
		Log:         n.account.Log,
		NetworkID:   n.ID.String(),
		NetworkName: n.Name,
		NetworkHost: n.Host,
	}
}

func (n *Network) addChannel(name string, typ ChannelType) (*Channel, error) {
	ch, err := NewChannel(n.svc, ChannelConfig{Name: name, Type: typ})
	if err != nil {
		return nil, err
	}
	ch.Bind(n.binding())

	n.mu.Lock()
	n.channels = append(n.channels, ch)
	n.mu.Unlock()

	if typ != ChannelTypeLobby {
		view := ToView(ch)
		n.account.Sessions.Emit(&Event{Kind: EventJoin, Channel: ch.ID, Network: n.ID.String(), View: &view})
	}
	return ch, nil
}

// ensureChannel returns the named channel, creating it when missing.
func (n *Network) ensureChannel(name string, typ ChannelType) (*Channel, error) {
	if ch, ok := n.ChannelByName(name); ok {
		return ch, nil
	}
	return n.addChannel(name, typ)
}

func (n *Network) removeChannel(ch *Channel) {
	n.mu.Lock()
	for i, c := range n.channels {
		if c == ch {
			n.channels = append(n.channels[:i], n.channels[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	ch.Destroy()
	n.account.Sessions.Emit(&Event{Kind: EventPart, Channel: ch.ID})
}

func (n *Network) lookupTarget(target string) (*Channel, error) {
	ch, ok := n.ChannelByName(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, target)
	}
	return ch, nil
}

func (n *Network) sessionChannel(cmd *Command) (*Channel, error) {
	ch, ok := n.Channel(cmd.Channel)
	if !ok {
		return nil, coreError(ErrCodeChannelNotFound, fmt.Sprintf("channel %d not found", cmd.Channel))
	}
	return ch, nil
}

func (n *Network) push(ch *Channel, msg *Message) {
	ch.PushMessage(n.account.Sessions, msg, !msg.Self && msg.Type.IncreasesUnread())
}

func (n *Network) handleJoin(cmd *Command) error {
	self := n.isSelf(cmd.Nick)
	var (
		ch  *Channel
		err error
	)
	if self {
		ch, err = n.ensureChannel(cmd.Target, ChannelTypeChannel)
		if err != nil {
			return err
		}
		if cmd.Text != "" {
			ch.SetKey(cmd.Text)
		}
	} else if ch, err = n.lookupTarget(cmd.Target); err != nil {
		return err
	}

	ch.SetUser(&User{Nick: cmd.Nick, Mode: cmd.Mode})
	n.push(ch, &Message{Type: MessageTypeJoin, From: cmd.Nick, Self: self})
	return nil
}

func (n *Network) handlePart(cmd *Command) error {
	ch, err := n.lookupTarget(cmd.Target)
	if err != nil {
		return err
	}
	if n.isSelf(cmd.Nick) {
		n.removeChannel(ch)
		return nil
	}
	ch.RemoveUser(&User{Nick: cmd.Nick})
	n.push(ch, &Message{Type: MessageTypePart, From: cmd.Nick, Text: cmd.Text})
	return nil
}

func (n *Network) handleQuit(cmd *Command) {
	for _, ch := range n.Channels() {
		u, ok := ch.FindUser(cmd.Nick)
		if !ok {
			continue
		}
		ch.RemoveUser(&u)
		n.push(ch, &Message{Type: MessageTypeQuit, From: cmd.Nick, Text: cmd.Text})
	}
}

func (n *Network) handleNick(cmd *Command) {
	self := n.isSelf(cmd.Nick)
	if self {
		n.mu.Lock()
		n.nick = cmd.NewNick
		n.mu.Unlock()
		n.push(n.Lobby(), &Message{Type: MessageTypeNick, From: cmd.Nick, Text: cmd.NewNick, Self: true})
	}

	for _, ch := range n.Channels() {
		if ch.Type == ChannelTypeQuery && FoldNick(ch.Name()) == FoldNick(cmd.Nick) {
			ch.Rename(cmd.NewNick)
		}
		if !ch.RenameUser(cmd.Nick, cmd.NewNick) {
			continue
		}
		n.push(ch, &Message{Type: MessageTypeNick, From: cmd.Nick, Text: cmd.NewNick, Self: self})
	}
}

func (n *Network) handleMode(cmd *Command) error {
	ch, err := n.lookupTarget(cmd.Target)
	if err != nil {
		return err
	}
	if u, ok := ch.FindUser(cmd.Nick); ok {
		u.Mode = cmd.Mode
		ch.SetUser(&u)
	}
	n.push(ch, &Message{Type: MessageTypeMode, From: cmd.Message.From, Text: cmd.Text})
	return nil
}

func (n *Network) handleTopic(cmd *Command) error {
	ch, err := n.lookupTarget(cmd.Target)
	if err != nil {
		return err
	}
	ch.SetTopic(cmd.Text)
	n.push(ch, &Message{Type: MessageTypeTopic, From: cmd.Nick, Text: cmd.Text, Self: n.isSelf(cmd.Nick)})
	n.account.Sessions.Emit(&Event{Kind: EventTopic, Channel: ch.ID, Topic: cmd.Text})
	return nil
}

func (n *Network) handleNames(cmd *Command) error {
	ch, err := n.lookupTarget(cmd.Target)
	if err != nil {
		return err
	}
	ch.ResetUsers(cmd.Users)
	n.account.Sessions.Emit(&Event{Kind: EventNames, Channel: ch.ID, Users: ch.SortedUsers(n.Prefix())})
	return nil
}

func (n *Network) handleMessage(cmd *Command) error {
	msg := cmd.Message
	if msg.Type == "" {
		msg.Type = MessageTypeMessage
	}
	msg.Self = msg.Self || n.isSelf(msg.From)

	var (
		ch  *Channel
		err error
	)
	switch {
	case cmd.Target == "":
		ch = n.Lobby()
	case n.isSelf(cmd.Target):
		// Private message to us lands in a query named after the sender.
		ch, err = n.ensureChannel(msg.From, ChannelTypeQuery)
	case isChannelName(cmd.Target):
		ch, err = n.lookupTarget(cmd.Target)
	default:
		ch, err = n.ensureChannel(cmd.Target, ChannelTypeQuery)
	}
	if err != nil {
		return err
	}

	if !msg.Self {
		msg.Highlight = msg.Highlight ||
			ch.Type == ChannelTypeQuery ||
			n.account.Highlights.Match(msg.Text, n.Nick())
	}

	n.attachThumbnail(&msg, cmd)
	n.push(ch, &msg)
	return nil
}

func (n *Network) attachThumbnail(msg *Message, cmd *Command) {
	opts := n.svc.Options
	if msg.Preview == nil || len(cmd.Thumbnail) == 0 || n.svc.Thumbnails == nil {
		return
	}
	if !opts.Prefetch || !opts.PrefetchStorage {
		return
	}
	preview := *msg.Preview
	ref, err := n.svc.Thumbnails.Store(cmd.Thumbnail, cmd.ThumbnailExt)
	if err != nil {
		n.log.Warn().Err(err).Str("link", preview.Link).Msg("store preview thumbnail")
		return
	}
	preview.Thumb = ref
	msg.Preview = &preview
}

func (n *Network) handleOpen(cmd *Command) error {
	ch, err := n.sessionChannel(cmd)
	if err != nil {
		return err
	}
	if cmd.Session != nil {
		cmd.Session.SetOpenChannel(ch.ID)
	}
	ch.MarkRead()
	n.account.Sessions.EmitExcept(cmd.Session, &Event{Kind: EventOpen, Channel: ch.ID})
	return nil
}

func (n *Network) handleLoadMore(ctx context.Context, cmd *Command) error {
	ch, err := n.sessionChannel(cmd)
	if err != nil {
		return err
	}
	if cmd.Session != nil && !cmd.Session.AllowHistory() {
		return coreError(ErrCodeRateLimited, "too many history requests")
	}
	ch.LoadMessages(ctx, n.account.Sessions, cmd.Offset)
	return nil
}

func (n *Network) handleListUsers(cmd *Command) error {
	ch, err := n.sessionChannel(cmd)
	if err != nil {
		return err
	}
	if cmd.Session == nil {
		return nil
	}
	cmd.Session.Deliver(&Event{Kind: EventNames, Channel: ch.ID, Users: ch.SortedUsers(n.Prefix())})
	return nil
}

func (n *Network) handleInput(cmd *Command) error {
	ch, err := n.sessionChannel(cmd)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return coreError(ErrCodeBadRequest, "text is required")
	}
	msg := &Message{Type: MessageTypeMessage, From: n.Nick(), Text: text, Self: true}
	if action, ok := strings.CutPrefix(text, "/me "); ok {
		msg.Type = MessageTypeAction
		msg.Text = action
	}
	n.push(ch, msg)
	return nil
}

func isChannelName(name string) bool {
	return name != "" && strings.ContainsRune("#&+!", rune(name[0]))
}
