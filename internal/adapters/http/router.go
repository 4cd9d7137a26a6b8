package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/collabhub/realtime/internal/adapters/signal"
	"github.com/collabhub/realtime/internal/app"
	"github.com/collabhub/realtime/internal/app/emit"
	"github.com/collabhub/realtime/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// APIKeyMiddleware guards the publish API. An empty key disables the check.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(emit.APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			log.Warn().Str("module", "adapters.http").Str("path", c.FullPath()).Msg("bad api key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub) (*gin.Engine, error) {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	ctrl, err := signal.NewSignalWSController(hub, cfg)
	if err != nil {
		return nil, err
	}
	h := &Handlers{Hub: hub}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	api := r.Group("/api", APIKeyMiddleware(cfg.APIKey))
	api.POST("/broadcast", h.Broadcast)
	api.GET("/rooms", h.Rooms)
	api.GET("/rooms/:room/members", h.Members)

	log.Info().Str("module", "adapters.http").Bool("api_key", cfg.APIKey != "").Msg("router setup")
	return r, nil
}
