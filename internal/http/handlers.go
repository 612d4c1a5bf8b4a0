package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kanalhq/kanal/internal/channel"
	"github.com/kanalhq/kanal/internal/infrastructure/logging"
	"github.com/kanalhq/kanal/internal/infrastructure/monitoring"
	"github.com/kanalhq/kanal/internal/registry"
)

// Handlers contains all HTTP handlers for the channel API.
type Handlers struct {
	table   *registry.Table
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandlers creates a new handler set.
func NewHandlers(table *registry.Table, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	return &Handlers{
		table:   table,
		metrics: metrics,
		log:     log,
	}
}

// status maps a core error to an HTTP status and a wire code.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, channel.ErrWouldBlock):
		return http.StatusConflict, "would_block"
	case errors.Is(err, channel.ErrInterrupted):
		return http.StatusRequestTimeout, "interrupted"
	case errors.Is(err, channel.ErrCapacityTooSmall):
		return http.StatusConflict, "rejected"
	case errors.Is(err, channel.ErrInvalidCapacity),
		errors.Is(err, channel.ErrInvalidCommand),
		errors.Is(err, registry.ErrInvalidMode),
		errors.Is(err, registry.ErrInvalidLimit):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, channel.ErrFault):
		return http.StatusBadRequest, "fault"
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, registry.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, registry.ErrAccess):
		return http.StatusForbidden, "access"
	}
	return http.StatusInternalServerError, "internal"
}

func fail(c *gin.Context, err error) {
	code, wire := status(err)
	c.JSON(code, gin.H{"status": wire, "error": err.Error()})
}

func (h *Handlers) channelID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid", "error": "channel id must be an integer"})
		return 0, false
	}
	return id, true
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "online",
		"service":  "kanal",
		"channels": h.table.Len(),
	})
}

// Health handles the detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"channels": h.table.Stats(),
	})
}

// ListChannels lists every channel with its fill level and opener counts.
func (h *Handlers) ListChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.table.Stats()})
}

type openRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// Open creates a handle on a channel.
func (h *Handlers) Open(c *gin.Context) {
	id, ok := h.channelID(c)
	if !ok {
		return
	}
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid", "error": err.Error()})
		return
	}
	mode, err := registry.ParseMode(req.Mode)
	if err != nil {
		fail(c, err)
		return
	}

	handle, err := h.table.Open(id, mode)
	if err != nil {
		h.metrics.RecordOpen(id, mode.String(), openOutcome(err))
		fail(c, err)
		return
	}
	h.metrics.RecordOpen(id, mode.String(), monitoring.OutcomeOK)
	h.log.Info("handle opened",
		zap.Int("channel", id),
		zap.String("mode", mode.String()),
		zap.String("handle", handle.ID))

	c.JSON(http.StatusOK, gin.H{
		"handle":  handle.ID,
		"channel": handle.Channel,
		"mode":    handle.Mode.String(),
	})
}

func openOutcome(err error) string {
	if errors.Is(err, registry.ErrBusy) {
		return monitoring.OutcomeBusy
	}
	return monitoring.OutcomeError
}

// Close releases a handle.
func (h *Handlers) Close(c *gin.Context) {
	hid := c.Param("hid")
	if err := h.table.Close(hid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": hid})
}

// Write commits the raw request body into the handle's channel. Blocking by
// default; ?nonblock=1 requests immediate-or-WouldBlock behavior.
func (h *Handlers) Write(c *gin.Context) {
	handle, err := h.table.Resolve(c.Param("hid"))
	if err != nil {
		fail(c, err)
		return
	}
	if !handle.Mode.CanWrite() {
		fail(c, registry.ErrAccess)
		return
	}
	nonblock := c.Query("nonblock") == "1" || c.Query("nonblock") == "true"

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// The source buffer died before we copied anything.
		h.metrics.RecordWrite(handle.Channel, monitoring.OutcomeError, 0)
		fail(c, channel.ErrFault)
		return
	}

	n, err := handle.Chan().Write(c.Request.Context(), body, !nonblock)
	if err != nil {
		code, wire := status(err)
		h.metrics.RecordWrite(handle.Channel, wire, n)
		// A durably written prefix is still reported alongside the error.
		c.JSON(code, gin.H{"status": wire, "bytes_written": n})
		return
	}
	h.metrics.RecordWrite(handle.Channel, monitoring.OutcomeOK, n)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "bytes_written": n})
}

type readRequest struct {
	MaxLen   int  `json:"max_len" binding:"required"`
	Nonblock bool `json:"nonblock"`
}

// Read returns up to max_len buffered bytes from the handle's channel.
func (h *Handlers) Read(c *gin.Context) {
	handle, err := h.table.Resolve(c.Param("hid"))
	if err != nil {
		fail(c, err)
		return
	}
	if !handle.Mode.CanRead() {
		fail(c, registry.ErrAccess)
		return
	}
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MaxLen < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid", "error": "max_len must be a positive integer"})
		return
	}

	buf := make([]byte, req.MaxLen)
	n, err := handle.Chan().Read(c.Request.Context(), buf, !req.Nonblock)
	if err != nil {
		code, wire := status(err)
		h.metrics.RecordRead(handle.Channel, wire, n)
		c.JSON(code, gin.H{"status": wire, "bytes": n})
		return
	}
	h.metrics.RecordRead(handle.Channel, monitoring.OutcomeOK, n)
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"bytes":  n,
		"data":   buf[:n], // serialized as base64
	})
}

// GetCapacity reads one channel's buffer capacity.
func (h *Handlers) GetCapacity(c *gin.Context) {
	h.snapshot(c, channel.CmdGetCapacity, "capacity")
}

// GetUsed reads one channel's unread byte count.
func (h *Handlers) GetUsed(c *gin.Context) {
	h.snapshot(c, channel.CmdGetUsed, "used")
}

// GetFree reads one channel's free byte count.
func (h *Handlers) GetFree(c *gin.Context) {
	h.snapshot(c, channel.CmdGetFree, "free")
}

func (h *Handlers) snapshot(c *gin.Context, cmd channel.Command, field string) {
	id, ok := h.channelID(c)
	if !ok {
		return
	}
	ch, err := h.table.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := ch.Control(cmd, 0)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": id, field: v})
}

type capacityRequest struct {
	Capacity int `json:"capacity" binding:"required"`
}

// SetCapacity resizes one channel's buffer, preserving unread bytes.
func (h *Handlers) SetCapacity(c *gin.Context) {
	id, ok := h.channelID(c)
	if !ok {
		return
	}
	ch, err := h.table.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	var req capacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid", "error": err.Error()})
		return
	}

	if err := ch.SetCapacity(req.Capacity); err != nil {
		_, wire := status(err)
		h.metrics.RecordResize(id, wire)
		fail(c, err)
		return
	}
	h.metrics.RecordResize(id, monitoring.OutcomeOK)
	h.log.Info("channel resized", zap.Int("channel", id), zap.Int("capacity", req.Capacity))
	c.JSON(http.StatusOK, gin.H{"channel": id, "capacity": req.Capacity})
}

type controlRequest struct {
	Command string `json:"command" binding:"required"`
	Arg     int    `json:"arg"`
}

// Control dispatches one ioctl-style control command against a channel.
func (h *Handlers) Control(c *gin.Context) {
	id, ok := h.channelID(c)
	if !ok {
		return
	}
	ch, err := h.table.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid", "error": err.Error()})
		return
	}
	cmd, err := channel.ParseCommand(req.Command)
	if err != nil {
		fail(c, err)
		return
	}

	result, err := ch.Control(cmd, req.Arg)
	if err != nil {
		if cmd == channel.CmdSetCapacity {
			_, wire := status(err)
			h.metrics.RecordResize(id, wire)
		}
		fail(c, err)
		return
	}
	if cmd == channel.CmdSetCapacity {
		h.metrics.RecordResize(id, monitoring.OutcomeOK)
	}
	c.JSON(http.StatusOK, gin.H{
		"channel": id,
		"command": cmd.String(),
		"result":  result,
	})
}

// GetPolicy reads one channel's opener limit.
func (h *Handlers) GetPolicy(c *gin.Context) {
	id, ok := h.channelID(c)
	if !ok {
		return
	}
	n, err := h.table.MaxOpeners(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": id, "max_openers": n})
}

type policyRequest struct {
	MaxOpeners int `json:"max_openers"`
}

// SetPolicy adjusts one channel's opener limit.
func (h *Handlers) SetPolicy(c *gin.Context) {
	id, ok := h.channelID(c)
	if !ok {
		return
	}
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid", "error": err.Error()})
		return
	}
	if err := h.table.SetMaxOpeners(id, req.MaxOpeners); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": id, "max_openers": req.MaxOpeners})
}
