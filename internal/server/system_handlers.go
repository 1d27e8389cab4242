package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/papertrader/internal/database"
	"github.com/aristath/papertrader/internal/di"
	"github.com/aristath/papertrader/internal/reliability"
	"github.com/aristath/papertrader/internal/version"
)

// SystemHandlers serves runtime and store diagnostics
type SystemHandlers struct {
	container *di.Container
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger

	// Swappable in tests
	cpuPercent func() (float64, error)
	memPercent func() (float64, error)
	diskFree   func(path string) (uint64, error)
}

// NewSystemHandlers creates system handlers over the wired container
func NewSystemHandlers(container *di.Container, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container:  container,
		dataDir:    dataDir,
		startedAt:  time.Now(),
		log:        log.With().Str("handler", "system").Logger(),
		cpuPercent: sampleCPU,
		memPercent: sampleMemory,
		diskFree:   freeBytes,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string   `json:"status"` // "healthy" or "degraded"
	Version       string   `json:"version"`
	StoreBackend  string   `json:"store_backend"`
	StoreOK       bool     `json:"store_ok"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Goroutines    int      `json:"goroutines"`
	CPUPercent    float64  `json:"cpu_percent"`
	MemoryPercent float64  `json:"memory_percent"`
	DiskFreeMB    float64  `json:"disk_free_mb,omitempty"`
	ActiveLocks   int      `json:"active_trade_locks"`
	ScheduledJobs []string `json:"scheduled_jobs"`
}

// DatabaseStatsResponse represents sqlite statistics
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Stats       *database.Stats `json:"stats"`
	LastChecked string          `json:"last_checked"`
}

// BackupsResponse lists stored archives
type BackupsResponse struct {
	Backups []reliability.BackupInfo `json:"backups"`
}

// HandleSystemStatus returns runtime, host and store status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       version.Version,
		StoreBackend:  h.container.StoreBackend,
		StoreOK:       true,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		ScheduledJobs: []string{},
	}

	if err := h.container.PingStore(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Store unreachable")
		response.Status = "degraded"
		response.StoreOK = false
	}

	if cpuPct, err := h.cpuPercent(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else {
		response.CPUPercent = cpuPct
	}

	if memPct, err := h.memPercent(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		response.MemoryPercent = memPct
	}

	if h.container.DB != nil {
		if free, err := h.diskFree(h.dataDir); err != nil {
			h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
		} else {
			response.DiskFreeMB = float64(free) / 1024 / 1024
		}
	}

	if h.container.Engine != nil {
		response.ActiveLocks = h.container.Engine.ActiveLocks()
	}

	if h.container.Scheduler != nil {
		response.ScheduledJobs = h.container.Scheduler.Jobs()
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns sqlite file and page statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	db := h.container.DB
	if db == nil {
		h.writeError(w, http.StatusNotFound, "No sqlite store configured")
		return
	}

	stats, err := db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Name:        db.Name(),
		Path:        db.Path(),
		Stats:       stats,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleBackups lists the archives in the backup bucket
func (h *SystemHandlers) HandleBackups(w http.ResponseWriter, r *http.Request) {
	if h.container.BackupService == nil {
		h.writeError(w, http.StatusNotFound, "Backups are not configured")
		return
	}

	backups, err := h.container.BackupService.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeError(w, http.StatusBadGateway, "Backup storage unavailable")
		return
	}
	if backups == nil {
		backups = []reliability.BackupInfo{}
	}

	h.writeJSON(w, http.StatusOK, BackupsResponse{Backups: backups})
}

// sampleCPU measures CPU usage over 100ms, short enough for a request
func sampleCPU() (float64, error) {
	pct, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(pct) == 0 {
		return 0, err
	}
	return pct[0], nil
}

func sampleMemory() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func freeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
