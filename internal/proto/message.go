package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello = "hello"
	InboundTypeOpen  = "open"
	InboundTypeMore  = "more"
	InboundTypeNames = "names"
	InboundTypeInput = "input"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Event names carried in Outbound.Event.
const (
	EventMsg   = "msg"
	EventMore  = "more"
	EventInit  = "init"
	EventJoin  = "join"
	EventPart  = "part"
	EventNames = "names"
	EventTopic = "topic"
	EventOpen  = "open"
)

// HelloData authenticates a freshly opened connection.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// ChannelData addresses a channel by id.
type ChannelData struct {
	Channel int64 `json:"channel"`
}

// MoreData asks for older history of a channel.
type MoreData struct {
	Channel int64 `json:"channel"`
	Offset  int   `json:"offset"`
}

// InputData is text typed by the user into a channel.
type InputData struct {
	Channel int64  `json:"channel"`
	Text    string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Preview is a link preview attached to a message.
type Preview struct {
	Type  string `json:"type"`
	Link  string `json:"link"`
	Thumb string `json:"thumb,omitempty"`
}

// Message is one channel message.
type Message struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Time      time.Time `json:"time"`
	From      string    `json:"from,omitempty"`
	Text      string    `json:"text,omitempty"`
	Highlight bool      `json:"highlight,omitempty"`
	Self      bool      `json:"self,omitempty"`
	Preview   *Preview  `json:"preview,omitempty"`
}

// User is a channel member.
type User struct {
	Nick string `json:"nick"`
	Mode string `json:"mode,omitempty"`
}

// Channel is the snapshot of one channel. Members are never included.
type Channel struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key,omitempty"`
	Topic       string    `json:"topic"`
	Type        string    `json:"type"`
	FirstUnread int64     `json:"firstUnread"`
	Unread      int       `json:"unread"`
	Highlight   int       `json:"highlight"`
	Messages    []Message `json:"messages"`
}

// Network is the snapshot of one network.
type Network struct {
	ID       string    `json:"uuid"`
	Name     string    `json:"name"`
	Host     string    `json:"host"`
	Nick     string    `json:"nick"`
	Channels []Channel `json:"channels"`
}

// EventMsgData delivers a new message. Unread is present only when the
// message raised the channel badge.
type EventMsgData struct {
	Channel int64   `json:"chan"`
	Msg     Message `json:"msg"`
	Unread  *int    `json:"unread,omitempty"`
}

// EventMoreData delivers a page of older history.
type EventMoreData struct {
	Channel  int64     `json:"chan"`
	Messages []Message `json:"messages"`
}

// EventInitData is the full state sent after hello.
type EventInitData struct {
	Networks []Network `json:"networks"`
}

// EventJoinData announces a new channel.
type EventJoinData struct {
	Network string  `json:"network"`
	Channel Channel `json:"chan"`
}

// EventChannelData announces a removed or opened channel.
type EventChannelData struct {
	Channel int64 `json:"chan"`
}

// EventNamesData delivers a sorted member list.
type EventNamesData struct {
	Channel int64  `json:"chan"`
	Users   []User `json:"users"`
}

// EventTopicData announces a topic change.
type EventTopicData struct {
	Channel int64  `json:"chan"`
	Topic   string `json:"topic"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
