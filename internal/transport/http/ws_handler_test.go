package http

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/proto"
)

func TestWebSocketRejectsBadHello(t *testing.T) {
	s := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name  string
		typ   string
		hello proto.HelloData
		code  string
	}{
		{name: "invalid token", typ: proto.InboundTypeHello, hello: proto.HelloData{Token: "invalid"}, code: core.ErrCodeUnauthorized},
		{name: "protocol mismatch", typ: proto.InboundTypeHello, hello: proto.HelloData{Token: s.token(t), Protocol: proto.ProtocolVersion + 1}, code: "unsupported_version"},
		{name: "no hello", typ: proto.InboundTypeOpen, code: "hello_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := s.dial(t, ctx)
			send(t, ctx, conn, tt.typ, tt.hello)

			protoErr := readError(t, ctx, conn)
			if protoErr == nil || protoErr.Code != tt.code {
				t.Fatalf("expected %s, got %+v", tt.code, protoErr)
			}
		})
	}
}

func TestWebSocketSessionFlow(t *testing.T) {
	s := startTestServer(t)
	token := s.token(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := s.dial(t, ctx)
	send(t, ctx, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})

	var initData proto.EventInitData
	readEvent(t, ctx, conn, proto.EventInit, &initData)
	if len(initData.Networks) != 1 || initData.Networks[0].Name != "libera" {
		t.Fatalf("unexpected init: %+v", initData)
	}

	s.ingest(t, token, proto.IRCEvent{Type: proto.IRCJoin, Target: "#go", Nick: "alice"})
	var join proto.EventJoinData
	readEvent(t, ctx, conn, proto.EventJoin, &join)
	if join.Channel.Name != "#go" || join.Network != s.network.ID.String() {
		t.Fatalf("unexpected join: %+v", join)
	}
	id := join.Channel.ID

	// Own join message.
	readEvent(t, ctx, conn, proto.EventMsg, nil)

	s.ingest(t, token, proto.IRCEvent{
		Type:         proto.IRCMessage,
		Target:       "#go",
		From:         "bob",
		Text:         "look https://example.org/cat.png",
		Preview:      &proto.Preview{Type: "image", Link: "https://example.org/cat.png"},
		Thumbnail:    []byte("cat-bytes"),
		ThumbnailExt: "png",
	})
	var msg proto.EventMsgData
	readEvent(t, ctx, conn, proto.EventMsg, &msg)
	if msg.Channel != id || msg.Msg.From != "bob" || msg.Unread == nil || *msg.Unread != 1 {
		t.Fatalf("unexpected msg: %+v", msg)
	}
	if msg.Msg.Preview == nil || msg.Msg.Preview.Thumb == "" {
		t.Fatalf("expected stored thumbnail, got %+v", msg.Msg.Preview)
	}

	send(t, ctx, conn, proto.InboundTypeInput, proto.InputData{Channel: id, Text: "/me waves"})
	var self proto.EventMsgData
	readEvent(t, ctx, conn, proto.EventMsg, &self)
	if self.Msg.Type != "action" || !self.Msg.Self || self.Msg.Text != "waves" {
		t.Fatalf("unexpected self msg: %+v", self)
	}
	if self.Unread != nil || self.Msg.Preview != nil {
		t.Fatalf("self msg must not raise unread or carry a preview: %+v", self)
	}

	send(t, ctx, conn, proto.InboundTypeNames, proto.ChannelData{Channel: id})
	var names proto.EventNamesData
	readEvent(t, ctx, conn, proto.EventNames, &names)
	if names.Channel != id || len(names.Users) != 1 || names.Users[0].Nick != "alice" {
		t.Fatalf("unexpected names: %+v", names)
	}

	send(t, ctx, conn, proto.InboundTypeOpen, proto.ChannelData{Channel: 424242})
	if protoErr := readError(t, ctx, conn); protoErr.Code != core.ErrCodeChannelNotFound {
		t.Fatalf("expected channel_not_found, got %+v", protoErr)
	}

	send(t, ctx, conn, "shout", nil)
	if protoErr := readError(t, ctx, conn); protoErr.Code != "invalid_message" {
		t.Fatalf("expected invalid_message, got %+v", protoErr)
	}
}

func TestWebSocketOpenNotifiesOtherSessions(t *testing.T) {
	s := startTestServer(t)
	token := s.token(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := s.dial(t, ctx)
	b := s.dial(t, ctx)
	send(t, ctx, a, proto.InboundTypeHello, proto.HelloData{Token: token})
	send(t, ctx, b, proto.InboundTypeHello, proto.HelloData{Token: token})
	readEvent(t, ctx, a, proto.EventInit, nil)
	readEvent(t, ctx, b, proto.EventInit, nil)

	s.ingest(t, token, proto.IRCEvent{Type: proto.IRCJoin, Target: "#go", Nick: "alice"})
	var join proto.EventJoinData
	readEvent(t, ctx, a, proto.EventJoin, &join)

	send(t, ctx, a, proto.InboundTypeOpen, proto.ChannelData{Channel: join.Channel.ID})
	var open proto.EventChannelData
	readEvent(t, ctx, b, proto.EventOpen, &open)
	if open.Channel != join.Channel.ID {
		t.Fatalf("unexpected open: %+v", open)
	}
}
