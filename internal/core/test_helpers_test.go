package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vovakirdan/loungecore/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustDone(t *testing.T, done <-chan struct{}) {
	t.Helper()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("operation did not finish")
	}
}

// recordingSessions is a SessionSet that keeps every emitted event.
type recordingSessions struct {
	mu     sync.Mutex
	open   map[int64]bool
	events []*Event
}

func newRecordingSessions() *recordingSessions {
	return &recordingSessions{open: make(map[int64]bool)}
}

func (r *recordingSessions) setOpen(id int64, open bool) {
	r.mu.Lock()
	r.open[id] = open
	r.mu.Unlock()
}

func (r *recordingSessions) IsChannelOpen(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open[id]
}

func (r *recordingSessions) Emit(ev *Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingSessions) snapshot() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingSessions) ofKind(kind EventKind) []*Event {
	var out []*Event
	for _, ev := range r.snapshot() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type panickingSessions struct{}

func (panickingSessions) IsChannelOpen(int64) bool { return false }
func (panickingSessions) Emit(*Event)              { panic("transport exploded") }

// recordingCache counts dereferences per thumbnail.
type recordingCache struct {
	mu    sync.Mutex
	refs  map[string]int
	order []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{refs: make(map[string]int)}
}

func (c *recordingCache) Dereference(ref string) {
	c.mu.Lock()
	c.refs[ref]++
	c.order = append(c.order, ref)
	c.mu.Unlock()
}

func (c *recordingCache) Store(data []byte, ext string) (string, error) {
	return "thumb-" + string(data) + ext, nil
}

func (c *recordingCache) released() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// recordingWriteback keeps every request instead of persisting it.
type recordingWriteback struct {
	mu       sync.Mutex
	requests []WriteRequest
	full     bool
}

func (w *recordingWriteback) Enqueue(req WriteRequest) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.full {
		return false
	}
	w.requests = append(w.requests, req)
	return true
}

func (w *recordingWriteback) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.requests)
}

// fakeHistory serves a fixed page, optionally waiting on gate first.
type fakeHistory struct {
	page  []*store.Entry
	err   error
	gate  chan struct{}
	calls chan int
}

func (f *fakeHistory) GetMessages(ctx context.Context, _, _ string, offset int) ([]*store.Entry, error) {
	if f.calls != nil {
		f.calls <- offset
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.page, f.err
}

var errStoreDown = errors.New("store down")

type testEnv struct {
	svc       *Services
	cache     *recordingCache
	writeback *recordingWriteback
}

func newTestEnv(opts Options) *testEnv {
	if opts.LobbyLogTarget == "" {
		opts.LobbyLogTarget = LogTargetHost
	}
	cache := newRecordingCache()
	wb := &recordingWriteback{}
	return &testEnv{
		svc: &Services{
			Options:    opts,
			ChannelIDs: NewIDAllocator(),
			MessageIDs: NewIDAllocator(),
			Writeback:  wb,
			Previews:   cache,
			Thumbnails: cache,
		},
		cache:     cache,
		writeback: wb,
	}
}

func (e *testEnv) channel(t *testing.T, name string, typ ChannelType) *Channel {
	t.Helper()

	ch, err := NewChannel(e.svc, ChannelConfig{Name: name, Type: typ})
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Bind(Binding{Account: "alice", Log: true, NetworkID: "net-1", NetworkName: "libera", NetworkHost: "irc.libera.chat"})
	return ch
}

func textMessage(text string) *Message {
	return &Message{Type: MessageTypeMessage, From: "bob", Text: text}
}

func withThumb(m *Message, thumb string) *Message {
	m.Preview = &Preview{Type: "image", Link: "https://example.org/" + thumb, Thumb: thumb}
	return m
}

func messageTexts(msgs []*Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func newTestAccount(t *testing.T, cfg AccountConfig) *Account {
	t.Helper()

	a, err := NewAccount(cfg, nil)
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	return a
}

func newTestNetwork(t *testing.T, env *testEnv, account *Account) *Network {
	t.Helper()

	n, err := NewNetwork(env.svc, account, NetworkConfig{Name: "libera", Host: "irc.libera.chat", Nick: "alice"})
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return n
}
