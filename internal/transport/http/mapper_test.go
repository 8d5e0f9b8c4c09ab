package http

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/proto"
)

func TestIRCEventToCommand(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	cmd, err := ircEventToCommand(proto.IRCEvent{Type: proto.IRCJoin, Target: "#go", Nick: "alice", Key: "secret"})
	if err != nil || cmd.Kind != core.CommandJoin || cmd.Text != "secret" {
		t.Fatalf("unexpected join mapping: %+v err=%v", cmd, err)
	}

	cmd, err = ircEventToCommand(proto.IRCEvent{
		Type:         proto.IRCMessage,
		Target:       "#go",
		From:         "bob",
		Text:         "hi",
		MessageType:  "notice",
		Time:         &ts,
		Preview:      &proto.Preview{Type: "image", Link: "https://x/y.png", Thumb: "ignored"},
		Thumbnail:    []byte{1, 2},
		ThumbnailExt: "png",
	})
	if err != nil {
		t.Fatalf("map message: %v", err)
	}
	m := cmd.Message
	if m.Type != core.MessageTypeNotice || !m.Time.Equal(ts) || m.From != "bob" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Preview == nil || m.Preview.Thumb != "" || len(cmd.Thumbnail) != 2 {
		t.Fatalf("client supplied thumb refs must be ignored: %+v", m.Preview)
	}

	for _, ev := range []proto.IRCEvent{
		{Type: "kill"},
		{Type: proto.IRCTopic},
		{Type: proto.IRCNick, Nick: "bob"},
	} {
		if _, err := ircEventToCommand(ev); !errors.Is(err, core.ErrBadRequest) {
			t.Fatalf("%+v: expected ErrBadRequest, got %v", ev, err)
		}
	}
}

func TestInboundToCommandValidates(t *testing.T) {
	raw := func(v any) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}

	cmd, protoErr, err := inboundToCommand(proto.Inbound{Type: proto.InboundTypeMore, Data: raw(proto.MoreData{Channel: 3, Offset: 100})})
	if err != nil || protoErr != nil || cmd.Kind != core.CommandLoadMore || cmd.Offset != 100 {
		t.Fatalf("unexpected more mapping: %+v %+v %v", cmd, protoErr, err)
	}

	_, protoErr, _ = inboundToCommand(proto.Inbound{Type: proto.InboundTypeMore, Data: raw(proto.MoreData{Channel: 3, Offset: -1})})
	if protoErr == nil || protoErr.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad request for negative offset, got %+v", protoErr)
	}

	_, protoErr, _ = inboundToCommand(proto.Inbound{Type: proto.InboundTypeInput, Data: raw(proto.InputData{Channel: 3})})
	if protoErr == nil {
		t.Fatalf("expected bad request for empty input")
	}

	if _, _, err := inboundToCommand(proto.Inbound{Type: proto.InboundTypeOpen, Data: json.RawMessage(`"x"`)}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestOutboundFromMessageEvent(t *testing.T) {
	unread := 4
	out := outboundFromEvent(&core.Event{
		Kind:    core.EventMessage,
		Channel: 7,
		Unread:  &unread,
		Message: &core.Message{ID: 1, Type: core.MessageTypeMessage, From: "bob", Preview: &core.Preview{Type: "image", Thumb: "abc.png"}},
	})
	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventMsg {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	payload := out.Data.(proto.EventMsgData)
	if *payload.Unread != 4 || payload.Msg.Preview.Thumb != "/storage/abc.png" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	encoded, _ := json.Marshal(outboundFromEvent(&core.Event{Kind: core.EventMessage, Channel: 7, Message: &core.Message{ID: 2}}))
	var envelope rawOutbound
	if err := json.Unmarshal(encoded, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if _, present := data["unread"]; present {
		t.Fatalf("unread must be omitted when not raised: %s", encoded)
	}
}
