package core

// CommandKind describes what a network loop is asked to do.
type CommandKind int

const (
	// CommandJoin reports a user joining a channel.
	CommandJoin CommandKind = iota
	// CommandPart reports a user leaving a channel.
	CommandPart
	// CommandQuit reports a user leaving the network.
	CommandQuit
	// CommandNick reports a nickname change.
	CommandNick
	// CommandMode reports a member prefix change.
	CommandMode
	// CommandTopic reports a topic change.
	CommandTopic
	// CommandNames replaces a channel member list.
	CommandNames
	// CommandMessage delivers a message, notice or action.
	CommandMessage

	// CommandOpenChannel is sent by a session bringing a channel to front.
	CommandOpenChannel
	// CommandLoadMore is sent by a session asking for older history.
	CommandLoadMore
	// CommandListUsers is sent by a session asking for the member list.
	CommandListUsers
	// CommandInput is sent by a session writing into a channel.
	CommandInput
)

// Command is either a decoded IRC event or a session request.
type Command struct {
	Kind CommandKind
	// Session is set for session requests.
	Session *Session
	// Channel addresses session requests.
	Channel int64
	// Target is the channel or nick an IRC event refers to.
	Target  string
	Nick    string
	NewNick string
	Mode    string
	Text    string
	Users   []User
	Offset  int
	Message Message
	// Thumbnail holds prefetched preview bytes for Message.
	Thumbnail    []byte
	ThumbnailExt string
}
