package core

import (
	"context"

	"github.com/vovakirdan/loungecore/internal/store"
)

// HistorySource serves pages of persisted messages, oldest first within a
// page.
type HistorySource interface {
	GetMessages(ctx context.Context, networkID, channel string, offset int) ([]*store.Entry, error)
}

// LoadMessages fetches a page of older history starting at offset and
// splices it in front of the buffer. It returns immediately; the returned
// channel is closed once the fetch has been merged or abandoned.
//
// Failures are logged and leave the channel untouched. An empty page
// changes nothing and emits nothing.
func (c *Channel) LoadMessages(ctx context.Context, sessions SessionSet, offset int) <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	binding, name := c.binding, c.name
	c.mu.Unlock()

	source := c.svc.History
	if source == nil || binding == nil {
		close(done)
		return done
	}
	networkID := binding.NetworkID

	go func() {
		defer close(done)
		err := runSafely("load messages", func() error {
			entries, err := source.GetMessages(ctx, networkID, name, offset)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return nil
			}
			c.mergeHistory(sessions, c.messagesFromEntries(entries))
			return nil
		})
		if err != nil {
			c.log.Error().Err(err).Int("offset", offset).Msg("failed to load messages")
		}
	}()

	return done
}

// mergeHistory splices page onto whatever the head is at merge time, so
// pushes that landed while the fetch was in flight keep their place.
func (c *Channel) mergeHistory(sessions SessionSet, page []*Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages.Prepend(page)
	if c.firstUnread == 0 {
		c.firstUnread = page[len(page)-1].ID
	}

	if sessions != nil {
		sessions.Emit(&Event{Kind: EventMore, Channel: c.ID, Messages: cloneMessages(page)})
	}
}

func (c *Channel) messagesFromEntries(entries []*store.Entry) []*Message {
	page := make([]*Message, 0, len(entries))
	for _, e := range entries {
		page = append(page, &Message{
			ID:   c.svc.MessageIDs.Next(),
			Type: MessageType(e.Type),
			Time: e.Time,
			From: e.From,
			Text: e.Text,
		})
	}
	return page
}
