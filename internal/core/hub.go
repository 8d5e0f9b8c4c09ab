package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Hub attaches sessions to accounts and routes their requests to the
// network owning the addressed channel.
type Hub struct {
	accounts   map[string]*Account
	register   chan *Session
	unregister chan *Session
	commands   chan *Command
	done       chan struct{}
	log        *zerolog.Logger
}

// NewHub creates a hub over a fixed set of accounts.
func NewHub(accounts []*Account, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	byName := make(map[string]*Account, len(accounts))
	for _, a := range accounts {
		byName[a.Name] = a
	}
	return &Hub{
		accounts:   byName,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		commands:   make(chan *Command, 64),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Account looks up an account by name.
func (h *Hub) Account(name string) (*Account, bool) {
	a, ok := h.accounts[name]
	return a, ok
}

// Accounts returns all accounts sorted by name.
func (h *Hub) Accounts() []*Account {
	out := make([]*Account, 0, len(h.accounts))
	for _, a := range h.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Networks returns every network of every account.
func (h *Hub) Networks() []*Network {
	var out []*Network
	for _, a := range h.Accounts() {
		out = append(out, a.Networks()...)
	}
	return out
}

// RegisterSession attaches s to its account. The session receives an
// init event, or an error event if the account is unknown.
func (h *Hub) RegisterSession(s *Session) {
	select {
	case h.register <- s:
	case <-h.done:
	}
}

// UnregisterSession detaches s.
func (h *Hub) UnregisterSession(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Ingest hands a decoded IRC event to the addressed network.
func (h *Hub) Ingest(ctx context.Context, account, networkID string, cmd *Command) error {
	a, ok := h.accounts[account]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	n, ok := a.Network(networkID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, networkID)
	}
	return n.Submit(ctx, cmd)
}

// Run processes registrations and session requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			h.attach(ctx, s)
		case s := <-h.unregister:
			h.detach(s)
		case cmd := <-h.commands:
			h.route(cmd)
		}
	}
}

func (h *Hub) attach(ctx context.Context, s *Session) {
	a, ok := h.accounts[s.Account]
	if !ok {
		s.Deliver(errorEvent(coreError(ErrCodeUnauthorized, "unknown account")))
		return
	}
	if !a.Sessions.Add(s) {
		return
	}
	s.Deliver(&Event{Kind: EventInit, Networks: a.Views()})
	h.log.Debug().Str("session_id", s.ID).Str("account", a.Name).Int("sessions", a.Sessions.Len()).Msg("session attached")

	go h.pump(ctx, s)
}

func (h *Hub) detach(s *Session) {
	a, ok := h.accounts[s.Account]
	if !ok {
		return
	}
	if a.Sessions.Remove(s) {
		h.log.Debug().Str("session_id", s.ID).Str("account", a.Name).Msg("session detached")
	}
}

// pump forwards a session's requests into the hub loop until the session
// closes its command channel.
func (h *Hub) pump(ctx context.Context, s *Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-s.Commands:
			if !ok {
				return
			}
			cmd.Session = s
			select {
			case h.commands <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) route(cmd *Command) {
	s := cmd.Session
	a, ok := h.accounts[s.Account]
	if !ok {
		return
	}
	n, _, ok := a.NetworkOf(cmd.Channel)
	if !ok {
		s.Deliver(errorEvent(coreError(ErrCodeChannelNotFound, fmt.Sprintf("channel %d not found", cmd.Channel))))
		return
	}
	// The hub serves every account; a busy network must not stall it.
	if !n.TrySubmit(cmd) {
		h.log.Warn().Str("session_id", s.ID).Str("network", n.Name).Msg("network queue full, dropping session command")
		s.Deliver(errorEvent(coreError(ErrCodeRateLimited, "network busy")))
	}
}
