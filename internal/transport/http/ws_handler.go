package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/loungecore/internal/auth"
	"github.com/vovakirdan/loungecore/internal/config"
	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/proto"
	"github.com/vovakirdan/loungecore/internal/utils"
)

const helloTimeout = 10 * time.Second

var errHandshake = errors.New("handshake failed")

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	hub  *core.Hub
	auth *auth.Service
	cfg  *config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authService, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	account, err := h.handshake(ctx, conn)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws handshake rejected")
		conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		return
	}

	session := core.NewSession(utils.NewID("s"), account, h.cfg.HistoryRate, h.cfg.HistoryBurst)
	h.hub.RegisterSession(session)
	defer h.hub.UnregisterSession(session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newInboundLimiter(h.cfg.InboundPerMinute)
	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel()
	<-errCh
	// Only readLoop sends commands; closing stops the hub's pump.
	close(session.Commands)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake waits for hello and returns the authenticated account.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (string, error) {
	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(helloCtx, conn, &inbound); err != nil {
		return "", err
	}
	if inbound.Type != proto.InboundTypeHello {
		return "", h.reject(ctx, conn, "hello_required", "first message must be hello")
	}
	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return "", h.reject(ctx, conn, core.ErrCodeBadRequest, "invalid hello")
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return "", h.reject(ctx, conn, "unsupported_version", "unsupported protocol version")
	}
	claims, err := h.auth.ValidateToken(hello.Token)
	if err != nil {
		return "", h.reject(ctx, conn, core.ErrCodeUnauthorized, "invalid token")
	}
	return claims.Account, nil
}

func (h *WSHandler) reject(ctx context.Context, conn *websocket.Conn, code, msg string) error {
	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}); err != nil {
		return err
	}
	return errHandshake
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, limiter *inboundLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session_id", session.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			session.Deliver(&core.Event{Kind: core.EventError, Error: &core.CoreError{
				Code:    core.ErrCodeRateLimited,
				Message: "too many messages",
			}})
			continue
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			session.Deliver(&core.Event{Kind: core.EventError, Error: &core.CoreError{
				Code:    protoErr.Code,
				Message: protoErr.Msg,
			}})
			continue
		}

		select {
		case session.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event := <-session.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
