package http

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/proto"
)

// storagePrefix is where stored thumbnails are served from.
const storagePrefix = "/storage/"

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeOpen:
		var data proto.ChannelData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Channel == 0 {
			return nil, badRequest("channel is required"), nil
		}
		return &core.Command{Kind: core.CommandOpenChannel, Channel: data.Channel}, nil, nil
	case proto.InboundTypeMore:
		var data proto.MoreData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Channel == 0 {
			return nil, badRequest("channel is required"), nil
		}
		if data.Offset < 0 {
			return nil, badRequest("offset must not be negative"), nil
		}
		return &core.Command{Kind: core.CommandLoadMore, Channel: data.Channel, Offset: data.Offset}, nil, nil
	case proto.InboundTypeNames:
		var data proto.ChannelData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Channel == 0 {
			return nil, badRequest("channel is required"), nil
		}
		return &core.Command{Kind: core.CommandListUsers, Channel: data.Channel}, nil, nil
	case proto.InboundTypeInput:
		var data proto.InputData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Channel == 0 || data.Text == "" {
			return nil, badRequest("channel and text are required"), nil
		}
		return &core.Command{Kind: core.CommandInput, Channel: data.Channel, Text: data.Text}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func ircEventToCommand(ev proto.IRCEvent) (*core.Command, error) {
	cmd := &core.Command{
		Target:  ev.Target,
		Nick:    ev.Nick,
		NewNick: ev.NewNick,
		Mode:    ev.Mode,
		Text:    ev.Text,
	}
	switch ev.Type {
	case proto.IRCJoin:
		cmd.Kind = core.CommandJoin
		cmd.Text = ev.Key
	case proto.IRCPart:
		cmd.Kind = core.CommandPart
	case proto.IRCQuit:
		cmd.Kind = core.CommandQuit
	case proto.IRCNick:
		cmd.Kind = core.CommandNick
		if ev.NewNick == "" {
			return nil, fmt.Errorf("%w: new_nick is required", core.ErrBadRequest)
		}
	case proto.IRCMode:
		cmd.Kind = core.CommandMode
		cmd.Message.From = ev.From
	case proto.IRCTopic:
		cmd.Kind = core.CommandTopic
	case proto.IRCNames:
		cmd.Kind = core.CommandNames
		cmd.Users = make([]core.User, 0, len(ev.Users))
		for _, u := range ev.Users {
			cmd.Users = append(cmd.Users, core.User{Nick: u.Nick, Mode: u.Mode})
		}
	case proto.IRCMessage:
		cmd.Kind = core.CommandMessage
		cmd.Message = core.Message{
			Type: core.MessageType(ev.MessageType),
			From: ev.From,
			Text: ev.Text,
		}
		if ev.Time != nil {
			cmd.Message.Time = *ev.Time
		}
		if ev.Preview != nil {
			cmd.Message.Preview = &core.Preview{Type: ev.Preview.Type, Link: ev.Preview.Link}
			cmd.Thumbnail = ev.Thumbnail
			cmd.ThumbnailExt = ev.ThumbnailExt
		}
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", core.ErrBadRequest, ev.Type)
	}

	if needsTarget(cmd.Kind) && cmd.Target == "" {
		return nil, fmt.Errorf("%w: target is required", core.ErrBadRequest)
	}
	return cmd, nil
}

func needsTarget(kind core.CommandKind) bool {
	switch kind {
	case core.CommandJoin, core.CommandPart, core.CommandMode, core.CommandTopic, core.CommandNames:
		return true
	default:
		return false
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return eventOutbound(proto.EventMsg, proto.EventMsgData{
			Channel: event.Channel,
			Msg:     messageToProto(event.Message),
			Unread:  event.Unread,
		})
	case core.EventMore:
		return eventOutbound(proto.EventMore, proto.EventMoreData{
			Channel:  event.Channel,
			Messages: messagesToProto(event.Messages),
		})
	case core.EventInit:
		return eventOutbound(proto.EventInit, proto.EventInitData{Networks: networksToProto(event.Networks)})
	case core.EventJoin:
		data := proto.EventJoinData{Network: event.Network}
		if event.View != nil {
			data.Channel = channelToProto(*event.View)
		}
		return eventOutbound(proto.EventJoin, data)
	case core.EventPart:
		return eventOutbound(proto.EventPart, proto.EventChannelData{Channel: event.Channel})
	case core.EventOpen:
		return eventOutbound(proto.EventOpen, proto.EventChannelData{Channel: event.Channel})
	case core.EventNames:
		return eventOutbound(proto.EventNames, proto.EventNamesData{
			Channel: event.Channel,
			Users:   usersToProto(event.Users),
		})
	case core.EventTopic:
		return eventOutbound(proto.EventTopic, proto.EventTopicData{Channel: event.Channel, Topic: event.Topic})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func messageToProto(m *core.Message) proto.Message {
	if m == nil {
		return proto.Message{}
	}
	out := proto.Message{
		ID:        m.ID,
		Type:      string(m.Type),
		Time:      m.Time,
		From:      m.From,
		Text:      m.Text,
		Highlight: m.Highlight,
		Self:      m.Self,
	}
	if m.Preview != nil {
		out.Preview = &proto.Preview{Type: m.Preview.Type, Link: m.Preview.Link}
		if m.Preview.Thumb != "" {
			out.Preview.Thumb = path.Join(storagePrefix, m.Preview.Thumb)
		}
	}
	return out
}

func messagesToProto(msgs []*core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToProto(m))
	}
	return out
}

func usersToProto(users []core.User) []proto.User {
	out := make([]proto.User, 0, len(users))
	for _, u := range users {
		out = append(out, proto.User{Nick: u.Nick, Mode: u.Mode})
	}
	return out
}

func channelToProto(v core.ChannelView) proto.Channel {
	return proto.Channel{
		ID:          v.ID,
		Name:        v.Name,
		Key:         v.Key,
		Topic:       v.Topic,
		Type:        string(v.Type),
		FirstUnread: v.FirstUnread,
		Unread:      v.Unread,
		Highlight:   v.Highlight,
		Messages:    messagesToProto(v.Messages),
	}
}

func networksToProto(views []core.NetworkView) []proto.Network {
	out := make([]proto.Network, 0, len(views))
	for _, nv := range views {
		channels := make([]proto.Channel, 0, len(nv.Channels))
		for _, cv := range nv.Channels {
			channels = append(channels, channelToProto(cv))
		}
		out = append(out, proto.Network{
			ID:       nv.ID,
			Name:     nv.Name,
			Host:     nv.Host,
			Nick:     nv.Nick,
			Channels: channels,
		})
	}
	return out
}
