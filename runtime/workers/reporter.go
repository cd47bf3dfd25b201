package workers

import (
	"context"
	"log/slog"
	"time"

	"pong-chat/contract"
	"pong-chat/observability"
)

// ReporterWorker periodically logs relay statistics.
type ReporterWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	registry   contract.IRegistry
	interval   time.Duration
}

func NewReporterWorker(log *slog.Logger, monitoring *observability.MonitoringManager,
	registry contract.IRegistry, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitoring: monitoring, registry: registry, interval: interval}
}

// Run logs a snapshot on every tick and a final one on shutdown.
func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			w.log.Info("Reporter stopped")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *ReporterWorker) report() {
	stats := w.monitoring.Snapshot(w.registry.Count())
	w.log.Info("Relay stats",
		"uptime", stats.Uptime,
		"online_connections", stats.OnlineConnections,
		"messages_sent", stats.MessagesSent,
		"send_failures", stats.SendFailures,
		"deliveries", stats.Deliveries,
		"delivery_failures", stats.DeliveryFailures,
		"events_dropped", stats.EventsDropped,
		"worker_restarts", stats.WorkerRestarts,
		"goroutines", stats.Goroutines,
		"rss_mb", stats.RSSMb,
		"cpu_percent", stats.CPUPercent,
	)
}
