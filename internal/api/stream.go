package api

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// StreamUpdates pushes progress events to the client as server-sent events. The first
// event is a "connected" snapshot of the busy flag; later events are named after their
// bus topic. The subscription is released when the client goes away.
func (h *Handler) StreamUpdates(c *gin.Context) {
	sub := h.bus.Subscribe()
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", h.syncService.GetCurrentSyncStatus())
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(event.Topic), event)
			return true
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return false
			}
			return true
		}
	})

	h.logger.WithField("dropped", sub.Dropped()).Debug("Update stream closed")
}
