package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/loungecore/internal/proto"
)

// rawOutbound keeps event data undecoded until the event name is known.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("addr", "http://localhost:9000", "server base URL")
	account := flag.String("account", "alice", "account to log in as")
	password := flag.String("password", "", "account password")
	channel := flag.String("channel", "", "channel to write to, the first lobby when empty")
	text := flag.String("text", "hello from smoke test", "input to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := login(ctx, *base, *account, *password)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}

	var target int64
	for {
		out, err := read(ctx, conn)
		if err != nil {
			return err
		}
		switch out.Event {
		case proto.EventInit:
			var data proto.EventInitData
			if err := json.Unmarshal(out.Data, &data); err != nil {
				return fmt.Errorf("unmarshal init: %w", err)
			}
			target = pickChannel(data.Networks, *channel)
			if target == 0 {
				return errors.New("no matching channel")
			}
			fmt.Printf("init: %d networks, writing to channel %d\n", len(data.Networks), target)
			if err := send(ctx, conn, proto.InboundTypeOpen, proto.ChannelData{Channel: target}); err != nil {
				return err
			}
			if err := send(ctx, conn, proto.InboundTypeInput, proto.InputData{Channel: target, Text: *text}); err != nil {
				return err
			}
		case proto.EventMsg:
			var data proto.EventMsgData
			if err := json.Unmarshal(out.Data, &data); err != nil {
				return fmt.Errorf("unmarshal msg: %w", err)
			}
			fmt.Printf("msg: chan=%d from=%s text=%q self=%t\n", data.Channel, data.Msg.From, data.Msg.Text, data.Msg.Self)
			if data.Channel == target && data.Msg.Self {
				return nil
			}
		}
	}
}

func login(ctx context.Context, base, account, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"account": account, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login: %w", err)
	}
	return out.Token, nil
}

func pickChannel(networks []proto.Network, name string) int64 {
	for _, n := range networks {
		for _, ch := range n.Channels {
			if name == "" && ch.Type == "lobby" {
				return ch.ID
			}
			if name != "" && strings.EqualFold(ch.Name, name) {
				return ch.ID
			}
		}
	}
	return 0
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func read(ctx context.Context, conn *websocket.Conn) (rawOutbound, error) {
	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	if out.Type == proto.OutboundTypeError && out.Error != nil {
		return out, fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
	}
	return out, nil
}
