package core

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Session is one attached client connection of an account.
type Session struct {
	ID       string
	Account  string
	Commands chan *Command
	Events   chan *Event

	openChannel atomic.Int64
	history     *rate.Limiter
}

// NewSession constructs a session with initialized channels. historyRate
// and historyBurst throttle history requests; a non-positive rate disables
// throttling.
func NewSession(id, account string, historyRate float64, historyBurst int) *Session {
	limit := rate.Inf
	if historyRate > 0 {
		limit = rate.Limit(historyRate)
	}
	if historyBurst <= 0 {
		historyBurst = 1
	}
	return &Session{
		ID:       id,
		Account:  account,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 64),
		history:  rate.NewLimiter(limit, historyBurst),
	}
}

// OpenChannel returns the id of the channel in foreground, or 0.
func (s *Session) OpenChannel() int64 { return s.openChannel.Load() }

// SetOpenChannel records which channel this session shows.
func (s *Session) SetOpenChannel(id int64) { s.openChannel.Store(id) }

// AllowHistory reports whether another history page may be requested now.
func (s *Session) AllowHistory() bool { return s.history.Allow() }

// Deliver queues ev without blocking. Returns false if the session is not
// keeping up and the event was dropped.
func (s *Session) Deliver(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}

// SessionSet is what channel state needs from the owning account's
// attached sessions.
type SessionSet interface {
	// IsChannelOpen reports whether any session has the channel in foreground.
	IsChannelOpen(channelID int64) bool
	// Emit delivers ev to every attached session, fire-and-forget.
	Emit(ev *Event)
}

// SessionRegistry tracks the sessions attached to one account.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *zerolog.Logger
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry(logger *zerolog.Logger) *SessionRegistry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		log:      logger,
	}
}

// Add attaches s. Returns true if newly added.
func (r *SessionRegistry) Add(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return false
	}
	r.sessions[s.ID] = s
	return true
}

// Remove detaches s. Returns true if removed.
func (r *SessionRegistry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; !exists {
		return false
	}
	delete(r.sessions, s.ID)
	return true
}

// Len returns the number of attached sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) IsChannelOpen(channelID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.OpenChannel() == channelID {
			return true
		}
	}
	return false
}

func (r *SessionRegistry) Emit(ev *Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if !s.Deliver(ev) {
			// Slow consumer; the transport resyncs it on reconnect.
			r.log.Warn().Str("session_id", s.ID).Stringer("event", ev.Kind).Msg("dropped event for slow session")
		}
	}
}

// EmitExcept delivers ev to every session other than skip.
func (r *SessionRegistry) EmitExcept(skip *Session, ev *Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s == skip {
			continue
		}
		if !s.Deliver(ev) {
			r.log.Warn().Str("session_id", s.ID).Stringer("event", ev.Kind).Msg("dropped event for slow session")
		}
	}
}
