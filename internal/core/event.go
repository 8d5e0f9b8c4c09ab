package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventMessage delivers a new channel message ("msg").
	EventMessage EventKind = iota
	// EventMore delivers a page of older history ("more").
	EventMore
	// EventInit delivers the account snapshot when a session attaches.
	EventInit
	// EventJoin announces a newly created channel.
	EventJoin
	// EventPart announces a destroyed channel.
	EventPart
	// EventNames delivers a sorted member list.
	EventNames
	// EventTopic announces a topic change.
	EventTopic
	// EventOpen tells other sessions a channel was opened and read.
	EventOpen
	// EventError notifies a session about a domain error.
	EventError
)

var eventNames = [...]string{
	EventMessage: "msg",
	EventMore:    "more",
	EventInit:    "init",
	EventJoin:    "join",
	EventPart:    "part",
	EventNames:   "names",
	EventTopic:   "topic",
	EventOpen:    "open",
	EventError:   "error",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is sent to sessions to describe what happened.
type Event struct {
	Kind    EventKind
	Channel int64
	// Message is set for EventMessage.
	Message *Message
	// Unread is set for EventMessage only when the push raised the badge.
	Unread *int
	// Messages is set for EventMore.
	Messages []*Message
	// Users is set for EventNames.
	Users []User
	// Topic is set for EventTopic.
	Topic string
	// Network and View are set for EventJoin.
	Network string
	View    *ChannelView
	// Networks is set for EventInit.
	Networks []NetworkView
	Error    *CoreError
}

func errorEvent(err *CoreError) *Event {
	return &Event{Kind: EventError, Error: err}
}
