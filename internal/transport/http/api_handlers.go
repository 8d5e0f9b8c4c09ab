package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/loungecore/internal/auth"
	"github.com/vovakirdan/loungecore/internal/core"
	"github.com/vovakirdan/loungecore/internal/proto"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	authService *auth.Service
	hub         *core.Hub
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, hub *core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		hub:         hub,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Login handles account login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(req.Account, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("account", req.Account).Msg("failed to login")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("account", req.Account).Msg("account logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// Networks returns the snapshot of every network of the caller.
// GET /api/networks
func (h *APIHandlers) Networks(c *gin.Context) {
	account, ok := h.account(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, proto.EventInitData{Networks: networksToProto(account.Views())})
}

// ChannelUsers returns the sorted member list of a channel.
// GET /api/channels/:id/users
func (h *APIHandlers) ChannelUsers(c *gin.Context) {
	account, ok := h.account(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return
	}
	network, ch, ok := account.NetworkOf(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
		return
	}
	c.JSON(http.StatusOK, proto.EventNamesData{
		Channel: id,
		Users:   usersToProto(ch.SortedUsers(network.Prefix())),
	})
}

// Ingest queues a decoded IRC event for one of the caller's networks.
// POST /api/networks/:id/events
func (h *APIHandlers) Ingest(c *gin.Context) {
	var ev proto.IRCEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.log.Debug().Err(err).Msg("invalid irc event")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	cmd, err := ircEventToCommand(ev)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	account := c.GetString(ContextKeyAccount)
	networkID := c.Param("id")
	if err := h.hub.Ingest(c.Request.Context(), account, networkID, cmd); err != nil {
		if errors.Is(err, core.ErrNetworkNotFound) || errors.Is(err, core.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "network not found"})
			return
		}
		h.log.Warn().Err(err).Str("account", account).Str("network_id", networkID).Msg("failed to ingest irc event")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "network unavailable"})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *APIHandlers) account(c *gin.Context) (*core.Account, bool) {
	name := c.GetString(ContextKeyAccount)
	account, ok := h.hub.Account(name)
	if !ok {
		h.log.Error().Str("account", name).Msg("authenticated account not loaded")
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
		return nil, false
	}
	return account, true
}
