package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"pong-chat/domain/event"

	"github.com/shirou/gopsutil/process"
)

// RelayStats is a point-in-time view of the relay counters and of the process.
type RelayStats struct {
	Uptime            string  `json:"uptime"`
	OnlineConnections int     `json:"online_connections"`
	ConnectionsOpened uint64  `json:"connections_opened"`
	Identified        uint64  `json:"identified"`
	IdentifyFailures  uint64  `json:"identify_failures"`
	MessagesSent      uint64  `json:"messages_sent"`
	MessagesRead      uint64  `json:"messages_read"`
	MessagesDeleted   uint64  `json:"messages_deleted"`
	SendFailures      uint64  `json:"send_failures"`
	Deliveries        uint64  `json:"deliveries"`
	DeliveryFailures  uint64  `json:"delivery_failures"`
	EventsDropped     uint64  `json:"events_dropped"`
	WorkerRestarts    uint64  `json:"worker_restarts"`
	Goroutines        int     `json:"goroutines"`
	AllocMemMb        uint64  `json:"alloc_mem_mb"`
	RSSMb             uint64  `json:"rss_mb"`
	CPUPercent        float64 `json:"cpu_percent"`
	NumThreads        int32   `json:"num_threads"`
}

// MonitoringManager owns the relay counters. Counters are lock free, the
// process handle is resolved once and reused.
type MonitoringManager struct {
	log       *slog.Logger
	startedAt time.Time

	connectionsOpened uint64
	identified        uint64
	identifyFailures  uint64
	messagesSent      uint64
	messagesRead      uint64
	messagesDeleted   uint64
	sendFailures      uint64
	deliveries        uint64
	deliveryFailures  uint64
	eventsDropped     uint64
	workerRestarts    uint64

	once sync.Once
	proc *process.Process
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, startedAt: time.Now()}
}

func (mm *MonitoringManager) IncrConnectionsOpened() { atomic.AddUint64(&mm.connectionsOpened, 1) }
func (mm *MonitoringManager) IncrIdentified()        { atomic.AddUint64(&mm.identified, 1) }
func (mm *MonitoringManager) IncrIdentifyFailures()  { atomic.AddUint64(&mm.identifyFailures, 1) }
func (mm *MonitoringManager) IncrSendFailures()      { atomic.AddUint64(&mm.sendFailures, 1) }
func (mm *MonitoringManager) IncrDeliveries()        { atomic.AddUint64(&mm.deliveries, 1) }
func (mm *MonitoringManager) IncrDeliveryFailures()  { atomic.AddUint64(&mm.deliveryFailures, 1) }
func (mm *MonitoringManager) IncrEventsDropped()     { atomic.AddUint64(&mm.eventsDropped, 1) }
func (mm *MonitoringManager) IncrWorkerRestarts()    { atomic.AddUint64(&mm.workerRestarts, 1) }

// Consume counts store mutations published on the event fanout.
func (mm *MonitoringManager) Consume(_ context.Context, e event.DomainEvent) error {
	switch e.(type) {
	case event.MessageSent:
		atomic.AddUint64(&mm.messagesSent, 1)
	case event.MessageRead:
		atomic.AddUint64(&mm.messagesRead, 1)
	case event.MessageDeleted:
		atomic.AddUint64(&mm.messagesDeleted, 1)
	}
	return nil
}

// Snapshot reads every counter and samples the process. onlineConnections is
// supplied by the caller since presence lives in the registry.
func (mm *MonitoringManager) Snapshot(onlineConnections int) RelayStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := RelayStats{
		Uptime:            time.Since(mm.startedAt).Round(time.Second).String(),
		OnlineConnections: onlineConnections,
		ConnectionsOpened: atomic.LoadUint64(&mm.connectionsOpened),
		Identified:        atomic.LoadUint64(&mm.identified),
		IdentifyFailures:  atomic.LoadUint64(&mm.identifyFailures),
		MessagesSent:      atomic.LoadUint64(&mm.messagesSent),
		MessagesRead:      atomic.LoadUint64(&mm.messagesRead),
		MessagesDeleted:   atomic.LoadUint64(&mm.messagesDeleted),
		SendFailures:      atomic.LoadUint64(&mm.sendFailures),
		Deliveries:        atomic.LoadUint64(&mm.deliveries),
		DeliveryFailures:  atomic.LoadUint64(&mm.deliveryFailures),
		EventsDropped:     atomic.LoadUint64(&mm.eventsDropped),
		WorkerRestarts:    atomic.LoadUint64(&mm.workerRestarts),
		Goroutines:        runtime.NumGoroutine(),
		AllocMemMb:        m.Alloc / 1024 / 1024,
	}

	p := mm.process()
	if p == nil {
		return stats
	}
	if memInfo, err := p.MemoryInfo(); err == nil {
		stats.RSSMb = memInfo.RSS / 1024 / 1024
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if threads, err := p.NumThreads(); err == nil {
		stats.NumThreads = threads
	}
	return stats
}

func (mm *MonitoringManager) process() *process.Process {
	mm.once.Do(func() {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			mm.log.Warn("Process metrics unavailable", "error", err)
			return
		}
		mm.proc = p
	})
	return mm.proc
}
