package http

import (
	"net/http"

	"github.com/collabhub/realtime/internal/app"
	"github.com/collabhub/realtime/internal/app/emit"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Hub *app.Hub
}

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Connections: h.Hub.Registry.Count(),
		Rooms:       h.Hub.Rooms.Len(),
	})
}

// Broadcast is the publish endpoint for emitters outside this process. The
// payload must decode as the named event; otherwise nothing is delivered.
func (h *Handlers) Broadcast(c *gin.Context) {
	var req emit.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	room, err := domain.ParseRoomKey(string(req.Room))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := domain.DecodeEvent(domain.EventName(req.Event), req.Data); err != nil {
		h.Hub.Metrics.IncRejected("bad_event")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Hub.BroadcastRaw(room, req.Event, req.Data, req.Exclude)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("broadcast")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast failed"})
		return
	}
	log.Debug().Str("module", "adapters.http").Str("room", string(room)).Str("event", req.Event).Int("sent", res.SendTo).Msg("broadcast")
	c.JSON(http.StatusOK, emit.BroadcastResponse{
		Delivered: res.SendTo,
		Dropped:   len(res.Dropped),
	})
}

func (h *Handlers) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Hub.Rooms.List()})
}

func (h *Handlers) Members(c *gin.Context) {
	room, err := domain.ParseRoomKey(c.Param("room"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room":    room,
		"members": h.Hub.Rooms.Members(room),
	})
}
