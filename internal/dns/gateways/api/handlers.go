package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist"
	"github.com/haukened/rr-relay/internal/dns/repos/dnscache"
	"github.com/haukened/rr-relay/internal/dns/services/relay"
)

type StatusResponse struct {
	Status string `json:"status"`
}

type StatsResponse struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     time.Time       `json:"start_time"`
	Relay         relay.Stats     `json:"relay"`
	Cache         dnscache.Stats  `json:"cache"`
	Denylist      *denylist.Stats `json:"denylist,omitempty"`
}

type CacheEntry struct {
	Domain       string    `json:"domain"`
	Type         string    `json:"type"`
	ExpiresAt    time.Time `json:"expires_at"`
	TTLRemaining int64     `json:"ttl_remaining"`
}

type CacheResponse struct {
	Entries []CacheEntry `json:"entries"`
}

type handler struct {
	relay    RelayStats
	cache    CacheView
	denylist DenylistStats
	clock    clock.Clock
	started  time.Time
}

func registerRoutes(r *gin.Engine, h *handler) {
	v1 := r.Group("/api/v1")
	v1.GET("/health", h.health)
	v1.GET("/stats", h.stats)
	v1.GET("/cache", h.cacheEntries)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *handler) stats(c *gin.Context) {
	resp := StatsResponse{
		UptimeSeconds: int64(h.clock.Now().Sub(h.started).Seconds()),
		StartTime:     h.started,
	}
	if h.relay != nil {
		resp.Relay = h.relay.Stats()
	}
	if h.cache != nil {
		resp.Cache = h.cache.Stats()
	}
	if h.denylist != nil {
		st := h.denylist.Stats()
		resp.Denylist = &st
	}
	c.JSON(http.StatusOK, resp)
}

// cacheEntries reports remaining TTL the way a hit would rewrite it, clamped
// at zero for entries that expired but have not been replaced yet.
func (h *handler) cacheEntries(c *gin.Context) {
	resp := CacheResponse{Entries: []CacheEntry{}}
	if h.cache == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	now := h.clock.Now()
	for _, e := range h.cache.Snapshot() {
		ttl := e.ExpiresAt.Unix() - now.Unix()
		if ttl < 0 {
			ttl = 0
		}
		resp.Entries = append(resp.Entries, CacheEntry{
			Domain:       e.Domain,
			Type:         e.Type.String(),
			ExpiresAt:    e.ExpiresAt,
			TTLRemaining: ttl,
		})
	}
	c.JSON(http.StatusOK, resp)
}
