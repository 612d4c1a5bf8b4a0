// Package ws streams channel bytes over WebSocket connections.
//
// One connection attaches to one channel in one direction:
//
//	GET /channels/:id/stream?mode=read   channel bytes pushed to the client
//	GET /channels/:id/stream?mode=write  binary messages committed as writes
//
// Both directions use blocking channel operations driven by a per-connection
// context; closing the socket cancels the context and interrupts any wait in
// progress.
package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kanalhq/kanal/internal/channel"
	"github.com/kanalhq/kanal/internal/infrastructure/logging"
	"github.com/kanalhq/kanal/internal/infrastructure/monitoring"
	"github.com/kanalhq/kanal/internal/registry"
)

// readChunk bounds how many bytes one pushed message carries.
const readChunk = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is the proxy's job
	},
}

// Handler manages WebSocket stream connections.
type Handler struct {
	table   *registry.Table
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(table *registry.Table, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{
		table:   table,
		metrics: metrics,
		log:     log,
	}
}

// HandleStream upgrades the connection and pumps bytes in the requested
// direction until either side goes away.
func (h *Handler) HandleStream(c *gin.Context) {
	id, err := func() (int, error) {
		var req struct {
			ID int `uri:"id"`
		}
		if err := c.ShouldBindUri(&req); err != nil {
			return 0, err
		}
		return req.ID, nil
	}()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel id must be an integer"})
		return
	}
	ch, err := h.table.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	mode := c.DefaultQuery("mode", "read")
	if mode != "read" && mode != "write" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be read or write"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.StreamConnections.Inc()
	defer h.metrics.StreamConnections.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if mode == "read" {
		h.pumpReads(ctx, cancel, conn, id, ch)
	} else {
		h.pumpWrites(ctx, conn, id, ch)
	}
}

// pumpReads blocks on the channel and pushes each batch of bytes as one
// binary message.
func (h *Handler) pumpReads(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, id int, ch *channel.Channel) {
	// Drain control frames so pings are answered and a client close cancels
	// the blocked read instead of leaving it parked forever.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	buf := make([]byte, readChunk)
	for {
		n, err := ch.Read(ctx, buf, true)
		if err != nil {
			h.metrics.RecordRead(id, monitoring.OutcomeInterrupted, n)
			return
		}
		h.metrics.RecordRead(id, monitoring.OutcomeOK, n)
		if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
			h.log.Debug("stream reader gone", zap.Int("channel", id), zap.Error(err))
			return
		}
	}
}

// pumpWrites commits each incoming binary message as one blocking write.
func (h *Handler) pumpWrites(ctx context.Context, conn *websocket.Conn, id int, ch *channel.Channel) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("stream writer gone", zap.Int("channel", id), zap.Error(err))
			}
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		n, err := ch.Write(ctx, data, true)
		if err != nil {
			outcome := monitoring.OutcomeError
			if errors.Is(err, channel.ErrInterrupted) {
				outcome = monitoring.OutcomeInterrupted
			}
			h.metrics.RecordWrite(id, outcome, n)
			return
		}
		h.metrics.RecordWrite(id, monitoring.OutcomeOK, n)
	}
}
