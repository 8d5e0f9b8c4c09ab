package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/loungecore/internal/store"
)

// ErrWritebackFull is reported when the write-through queue has no room.
var ErrWritebackFull = errors.New("writeback queue full")

const drainTimeout = 5 * time.Second

// LogTargetRule decides which log file a lobby channel writes to.
type LogTargetRule string

const (
	// LogTargetHost logs lobby lines under the network host. Several
	// networks on the same host share one file.
	LogTargetHost LogTargetRule = "host"
	// LogTargetName logs lobby lines under the configured network name.
	LogTargetName LogTargetRule = "name"
)

// LogTarget resolves the per-target log name for a channel.
func LogTarget(rule LogTargetRule, typ ChannelType, b Binding, channel string) string {
	if typ != ChannelTypeLobby {
		return channel
	}
	if rule == LogTargetName && b.NetworkName != "" {
		return b.NetworkName
	}
	return b.NetworkHost
}

// UserLogWriter appends messages to an account's per-target text logs.
type UserLogWriter interface {
	Write(account, networkHost, target string, msg *Message) error
}

// WriteThrough accepts persistence work without blocking the caller.
type WriteThrough interface {
	Enqueue(req WriteRequest) bool
}

// WriteRequest is one message to persist.
type WriteRequest struct {
	Binding Binding
	Channel string
	Type    ChannelType
	Message *Message
}

// Writeback drains write-through requests into the message index and the
// user log on its own goroutine. Failures are logged and dropped.
type Writeback struct {
	index   store.MessageStore
	userlog UserLogWriter
	rule    LogTargetRule
	queue   chan WriteRequest
	log     *zerolog.Logger
}

// NewWriteback builds a writeback with a queue of the given size. Either
// sink may be nil.
func NewWriteback(index store.MessageStore, userlog UserLogWriter, rule LogTargetRule, size int, logger *zerolog.Logger) *Writeback {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Writeback{
		index:   index,
		userlog: userlog,
		rule:    rule,
		queue:   make(chan WriteRequest, size),
		log:     logger,
	}
}

// Enqueue queues req. Returns false if the queue is full.
func (w *Writeback) Enqueue(req WriteRequest) bool {
	select {
	case w.queue <- req:
		return true
	default:
		return false
	}
}

// Run processes requests until ctx is done, then flushes what is already
// queued.
func (w *Writeback) Run(ctx context.Context) {
	for {
		select {
		case req := <-w.queue:
			w.write(ctx, req)
		case <-ctx.Done():
			w.drain(ctx)
			return
		}
	}
}

func (w *Writeback) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	for {
		select {
		case req := <-w.queue:
			w.write(drainCtx, req)
		default:
			return
		}
	}
}

func (w *Writeback) write(ctx context.Context, req WriteRequest) {
	msg := req.Message
	logger := w.log.With().
		Str("account", req.Binding.Account).
		Str("network", req.Binding.NetworkName).
		Str("channel", req.Channel).
		Int64("message_id", msg.ID).
		Logger()

	if w.index != nil && indexable(req.Type, msg.Type) {
		err := runSafely("index message", func() error {
			return w.index.Index(ctx, &store.Entry{
				NetworkID: req.Binding.NetworkID,
				Channel:   req.Channel,
				Time:      msg.Time,
				Type:      string(msg.Type),
				From:      msg.From,
				Text:      msg.Text,
			})
		})
		if err != nil {
			logger.Error().Err(err).Msg("index message")
		}
	}

	if w.userlog == nil || !req.Binding.Log {
		return
	}
	target := LogTarget(w.rule, req.Type, req.Binding, req.Channel)
	err := runSafely("write user log", func() error {
		return w.userlog.Write(req.Binding.Account, req.Binding.NetworkHost, target, msg)
	})
	if err != nil {
		logger.Error().Err(err).Str("target", target).Msg("write user log")
	}
}

func indexable(chType ChannelType, msgType MessageType) bool {
	return (chType == ChannelTypeChannel || chType == ChannelTypeQuery) && msgType.Indexable()
}
