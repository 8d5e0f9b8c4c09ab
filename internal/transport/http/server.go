package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/loungecore/internal/auth"
	"github.com/vovakirdan/loungecore/internal/config"
	"github.com/vovakirdan/loungecore/internal/core"
)

// NewServer builds the HTTP server: REST API, IRC ingest, thumbnail
// storage and the session websocket.
func NewServer(hub *core.Hub, authService *auth.Service, files PreviewFiles, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, authService, files, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the websocket next to the gin engine. The websocket
// needs the raw connection, which gin's response writer does not hand out.
func NewHandler(hub *core.Hub, authService *auth.Service, files PreviewFiles, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, cfg, logger))
	mux.Handle("/", NewRouter(hub, authService, files, logger))
	return mux
}

// NewRouter builds the gin engine with every HTTP route.
func NewRouter(hub *core.Hub, authService *auth.Service, files PreviewFiles, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(authService, hub, logger)
	router.POST("/api/login", api.Login)

	authed := router.Group("/api", AuthMiddleware(authService, logger))
	authed.GET("/networks", api.Networks)
	authed.GET("/channels/:id/users", api.ChannelUsers)
	authed.POST("/networks/:id/events", api.Ingest)

	storage := NewStorageHandlers(files, logger)
	router.GET("/storage/:name", storage.Serve)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
