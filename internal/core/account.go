package core

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// AccountConfig describes one bouncer account.
type AccountConfig struct {
	Name       string
	Log        bool
	Highlights []string
}

// Account is one bouncer user: its networks and attached sessions.
type Account struct {
	Name       string
	Log        bool
	Sessions   *SessionRegistry
	Highlights *Highlighter

	mu       sync.RWMutex
	networks []*Network
	log      zerolog.Logger
}

// NewAccount builds an account with no networks and no sessions.
func NewAccount(cfg AccountConfig, logger *zerolog.Logger) (*Account, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("new account: %w: name is required", ErrBadRequest)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sub := logger.With().Str("account", cfg.Name).Logger()
	return &Account{
		Name:       cfg.Name,
		Log:        cfg.Log,
		Sessions:   NewSessionRegistry(&sub),
		Highlights: NewHighlighter(cfg.Highlights),
		log:        sub,
	}, nil
}

// Networks returns the account's networks in configuration order.
func (a *Account) Networks() []*Network {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Network, len(a.networks))
	copy(out, a.networks)
	return out
}

// Network looks up a network by id.
func (a *Account) Network(id string) (*Network, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, n := range a.networks {
		if n.ID.String() == id {
			return n, true
		}
	}
	return nil, false
}

// NetworkOf finds the network owning a channel id.
func (a *Account) NetworkOf(channelID int64) (*Network, *Channel, bool) {
	for _, n := range a.Networks() {
		if ch, ok := n.Channel(channelID); ok {
			return n, ch, true
		}
	}
	return nil, nil, false
}

// Views snapshots every network for a session init.
func (a *Account) Views() []NetworkView {
	networks := a.Networks()
	out := make([]NetworkView, 0, len(networks))
	for _, n := range networks {
		out = append(out, n.View())
	}
	return out
}

func (a *Account) addNetwork(n *Network) {
	a.mu.Lock()
	a.networks = append(a.networks, n)
	a.mu.Unlock()
}
