package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MetricsHandler renders Prometheus-compatible text metrics.
type MetricsHandler struct {
	db      *gorm.DB
	queue   services.TaskQueue
	started time.Time
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue, started: time.Now()}
}

func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "creatorclub_uptime_seconds", "Time since server start in seconds", time.Since(h.started).Seconds())
	writeGauge(&b, "creatorclub_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "creatorclub_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "creatorclub_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "creatorclub_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "creatorclub_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "creatorclub_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// -- Domain metrics --
	db := h.db.WithContext(c.Request.Context())
	var communities, memberships, waitlist, pending int64
	db.Model(&models.Community{}).Count(&communities)
	db.Model(&models.Membership{}).Count(&memberships)
	db.Model(&models.WaitlistEntry{}).Count(&waitlist)
	db.Model(&models.CheckoutSession{}).Where("status = ?", models.CheckoutPending).Count(&pending)

	writeGauge(&b, "creatorclub_communities_total", "Number of communities", float64(communities))
	writeGauge(&b, "creatorclub_memberships_total", "Number of memberships", float64(memberships))
	writeGauge(&b, "creatorclub_waitlist_entries_total", "Number of waitlist entries", float64(waitlist))
	writeGauge(&b, "creatorclub_checkout_sessions_pending", "Checkout sessions awaiting completion", float64(pending))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
