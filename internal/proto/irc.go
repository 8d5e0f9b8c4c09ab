package proto

import "time"

// IRC event types accepted by the ingest endpoint.
const (
	IRCJoin    = "join"
	IRCPart    = "part"
	IRCQuit    = "quit"
	IRCNick    = "nick"
	IRCMode    = "mode"
	IRCTopic   = "topic"
	IRCNames   = "names"
	IRCMessage = "message"
)

// IRCEvent is a decoded IRC line posted by the connection owner of a
// network.
type IRCEvent struct {
	Type    string `json:"type" binding:"required"`
	Target  string `json:"target,omitempty"`
	Nick    string `json:"nick,omitempty"`
	NewNick string `json:"new_nick,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Key     string `json:"key,omitempty"`
	Text    string `json:"text,omitempty"`
	Users   []User `json:"users,omitempty"`

	// Message fields, used with IRCMessage.
	From        string     `json:"from,omitempty"`
	MessageType string     `json:"message_type,omitempty"`
	Time        *time.Time `json:"time,omitempty"`
	Preview     *Preview   `json:"preview,omitempty"`
	// Thumbnail is the prefetched preview image, base64 in JSON.
	Thumbnail    []byte `json:"thumbnail,omitempty"`
	ThumbnailExt string `json:"thumbnail_ext,omitempty"`
}
