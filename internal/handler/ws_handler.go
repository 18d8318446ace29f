package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/service"
	ws "github.com/prepsala/examhall-backend/internal/websocket"
)

const pingInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams submission results to admin dashboards as they happen.
type WSHandler struct {
	rdb              *redis.Client
	dashboardService *service.DashboardService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, dashboardService *service.DashboardService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:              rdb,
		dashboardService: dashboardService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// ResultsStream godoc
// WS /ws/v1/admin/results/stream
// Upgrades to WebSocket, sends a snapshot of the current dashboard stats,
// then forwards each submission result as it is published.
func (h *WSHandler) ResultsStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	wsLog := h.log.With().Str("remote", c.ClientIP()).Logger()
	wsLog.Info().Msg("Admin connected to results stream")

	stats, err := h.dashboardService.Stats(ctx)
	if err != nil {
		ws.WriteError(conn, "failed to load dashboard snapshot")
		return
	}
	if err := ws.WriteEvent(conn, ws.EventSnapshot, stats); err != nil {
		return
	}

	sub := h.rdb.Subscribe(ctx, config.CacheKey.ResultsChannel())
	defer sub.Close()

	// Drain client frames so close frames are processed; the stream is
	// server-push only.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	events := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Admin disconnected")
			return

		case <-ctx.Done():
			return

		case msg, ok := <-events:
			if !ok {
				wsLog.Warn().Msg("Results subscription closed")
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				wsLog.Warn().Msg("Dropping malformed result event")
				continue
			}
			if err := ws.WriteRaw(conn, ws.EventResult, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing stream")
				return
			}

		case <-ticker.C:
			if err := ws.WriteEvent(conn, ws.EventPing, nil); err != nil {
				return
			}
		}
	}
}
