package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/airmove-be/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	statInterval     = 15 * time.Second
	highCPUThreshold = 90.0
	alertCooldown    = 15 * time.Minute
)

// HostStats is a snapshot of the machine running the service.
type HostStats struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemPercent    float64   `json:"memPercent"`
	UptimeSeconds uint64    `json:"uptime"`
	SampledAt     time.Time `json:"sampledAt"`
}

// StatUpdater periodically samples host stats for the health endpoint.
type StatUpdater struct {
	eventSvc services.EventServiceProvider
	sample   func(ctx context.Context) (HostStats, error)
	now      func() time.Time
	done     chan struct{}

	mu        sync.RWMutex
	latest    HostStats
	lastAlert time.Time
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(eventSvc services.EventServiceProvider) *StatUpdater {
	return &StatUpdater{
		eventSvc: eventSvc,
		sample:   sampleHost,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	ticker := time.NewTicker(statInterval)
	defer ticker.Stop()

	su.update()
	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	close(su.done)
}

// Latest returns the most recent sample.
func (su *StatUpdater) Latest() HostStats {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest
}

func (su *StatUpdater) update() {
	ctx, cancel := context.WithTimeout(context.Background(), statInterval)
	defer cancel()

	stats, err := su.sample(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Failed to sample host stats")
		return
	}
	stats.SampledAt = su.now().UTC()

	su.mu.Lock()
	su.latest = stats
	alert := stats.CPUPercent > highCPUThreshold && su.now().Sub(su.lastAlert) >= alertCooldown
	if alert {
		su.lastAlert = su.now()
	}
	su.mu.Unlock()

	if alert {
		msg := fmt.Sprintf("High CPU usage (%.1f%%) detected on the API host.", stats.CPUPercent)
		if err := su.eventSvc.CreateEvent(ctx, "system.alert.cpu", "warn", msg, nil); err != nil {
			log.Error().Err(err).Msg("StatUpdater: Failed to record CPU alert")
		}
	}
}

func sampleHost(ctx context.Context) (HostStats, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return HostStats{}, fmt.Errorf("cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostStats{}, fmt.Errorf("memory: %w", err)
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return HostStats{}, fmt.Errorf("uptime: %w", err)
	}

	stats := HostStats{MemPercent: vm.UsedPercent, UptimeSeconds: uptime}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	return stats, nil
}
