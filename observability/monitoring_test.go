package observability

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"pong-chat/domain"
	"pong-chat/domain/event"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Snapshot_Counts(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))
	var wg sync.WaitGroup

	// Given concurrent increments
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mm.Consume(context.Background(), event.MessageSent{Message: domain.Message{ID: "m"}})
			mm.IncrDeliveries()
		}()
	}
	wg.Wait()
	_ = mm.Consume(context.Background(), event.MessageDeleted{ID: "m"})
	mm.IncrSendFailures()
	mm.IncrEventsDropped()
	mm.IncrWorkerRestarts()

	// When taking a snapshot
	stats := mm.Snapshot(3)

	// Then
	req.Equal(uint64(20), stats.MessagesSent)
	req.Equal(uint64(20), stats.Deliveries)
	req.Equal(uint64(1), stats.MessagesDeleted)
	req.Zero(stats.MessagesRead)
	req.Equal(uint64(1), stats.SendFailures)
	req.Equal(uint64(1), stats.EventsDropped)
	req.Equal(uint64(1), stats.WorkerRestarts)
	req.Equal(3, stats.OnlineConnections)
	req.Positive(stats.Goroutines)
	req.NotEmpty(stats.Uptime)
}
