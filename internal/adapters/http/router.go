package http

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware gives every browser a stable token kept in the
// signed session cookie. It only labels logs; room membership is per socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func wsOptions(cfg *config.Config) signal.Options {
	return signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("HuddleSessions", store))
	r.Use(ClientTokenMiddleware())

	if st, err := os.Stat(cfg.StaticPath); err == nil && st.IsDir() {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(cfg.StaticPath, "index.html"))
		})
		log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("serving web client")
	}

	ctrl := signal.NewSignalWSController(o, wsOptions(cfg))

	api := r.Group("/api")
	api.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rooms/:id", roomInfo(o))
	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Stats())
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

// roomInfo lets a client check a code before opening a socket.
func roomInfo(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := o.Rooms.GetRoom(domain.ParseRoomID(c.Param("id")))
		if !ok || room.Closed() {
			c.JSON(http.StatusNotFound, gin.H{"kind": domain.KindRoomNotFound, "message": domain.ErrRoomNotFound.Error()})
			return
		}
		count := room.MemberCount()
		c.JSON(http.StatusOK, gin.H{
			"roomId":      room.Room().ID,
			"capacity":    room.Room().Capacity,
			"memberCount": count,
			"full":        count >= room.Room().Capacity,
		})
	}
}
