package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/services"
)

const bytesToMB = 1024 * 1024

// MetricsHandler reports process state and the generation surface of the
// API. Counters live on the Prometheus endpoint.
type MetricsHandler struct {
	startTime time.Time
	version   string
	archive   bool
	cache     bool
}

func NewMetricsHandler(version string, archive, cache bool) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		archive:   archive,
		cache:     cache,
	}
}

type MetricsResponse struct {
	Status    string        `json:"status"`
	Uptime    string        `json:"uptime"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
	StartTime string        `json:"start_time"`
	System    SystemMetrics `json:"system"`
	API       APISurface    `json:"api"`
}

type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	MemTotalMB   uint64 `json:"mem_total_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// APISurface lists what callers may request
type APISurface struct {
	Version    string     `json:"version"`
	Forms      []string   `json:"forms"`
	Scales     []string   `json:"scales"`
	Archetypes []string   `json:"archetypes"`
	BPMRange   [2]float64 `json:"bpm_range"`
	Archive    bool       `json:"archive"`
	Cache      bool       `json:"cache"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, MetricsResponse{
		Status:    "healthy",
		Uptime:    time.Since(h.startTime).Round(10 * time.Millisecond).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		StartTime: h.startTime.UTC().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			MemTotalMB:   m.TotalAlloc / bytesToMB,
			NumGC:        m.NumGC,
		},
		API: APISurface{
			Version:    "v1",
			Forms:      []string{services.FormGoldberg, services.FormToccata},
			Scales:     []string{"short", "medium", "long", "full"},
			Archetypes: []string{"dramaticus", "perpetuus", "concertato", "sectionalis"},
			BPMRange:   [2]float64{generator.MinBPM, generator.MaxBPM},
			Archive:    h.archive,
			Cache:      h.cache,
		},
	})
}
