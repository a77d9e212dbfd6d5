package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/response"
	"github.com/stemsi/sanmon-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams the school overview to the monitoring page.
type MonitorHandler struct {
	classService *service.ClassService
	refresh      time.Duration
	log          zerolog.Logger
}

func NewMonitorHandler(classService *service.ClassService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		classService: classService,
		refresh:      refreshInterval,
		log:          log.With().Str("component", "monitor_handler").Logger(),
	}
}

// StreamOverview godoc
// GET /api/v1/monitoring/stream
// Sends a snapshot at once, then a fresh snapshot whenever totals change.
func (h *MonitorHandler) StreamOverview(c *gin.Context) {
	reqCtx := c.Request.Context()

	first, err := h.snapshot(reqCtx)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent("snapshot", first)
	c.Writer.Flush()
	last := fingerprint(first)

	refreshTicker := time.NewTicker(h.refresh)
	defer refreshTicker.Stop()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	log := response.Logger(c)
	log.Debug().Msg("client attached to monitoring stream")

	for {
		select {
		case <-reqCtx.Done():
			log.Debug().Msg("client left monitoring stream")
			return

		case <-refreshTicker.C:
			o, err := h.snapshot(reqCtx)
			if err != nil {
				h.log.Warn().Err(err).Msg("failed to refresh overview")
				continue
			}
			if fp := fingerprint(o); fp != last {
				last = fp
				c.SSEvent("snapshot", o)
				c.Writer.Flush()
			}

		case <-keepAliveTicker.C:
			c.SSEvent("ping", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) snapshot(parent context.Context) (*service.Overview, error) {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()
	return h.classService.Overview(ctx)
}

// fingerprint changes whenever any class row, the date or the sent flag does.
func fingerprint(o *service.Overview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%t", o.Date.Format(time.DateOnly), o.ReportSent)
	for _, c := range o.Classes {
		fmt.Fprintf(&b, "|%s:%d:%d:%t", c.NameClass, c.CountClass, c.CountIll, c.Closed)
	}
	return b.String()
}
