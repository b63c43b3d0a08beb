package auditlogs

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1000

	deliveryTimeout = 5 * time.Second
)

// Dispatcher delivers events to a Sink from a pool of background workers.
// Emit never blocks: when the queue is full the event is dropped and
// counted.
type Dispatcher struct {
	logger *logrus.Logger
	sink   Sink
	queue  chan Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sink Sink, logger *logrus.Logger, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		logger: logger,
		sink:   sink,
		queue:  make(chan Event, queueSize),
	}
	d.startWorkers(workers)
	return d
}

func (d *Dispatcher) startWorkers(n int) {
	for i := 0; i < n; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for evt := range d.queue {
				d.deliver(evt)
			}
		}()
	}
}

// Emit queues evt and reports whether it was accepted.
func (d *Dispatcher) Emit(evt Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- evt:
		prometheus.AuditEventsTotal.WithLabelValues(prometheus.AuditQueued).Inc()
		return true
	default:
		prometheus.AuditEventsTotal.WithLabelValues(prometheus.AuditDropped).Inc()
		d.logger.WithFields(logrus.Fields{
			"event_id": evt.ID,
			"kind":     evt.Kind,
		}).Warn("audit queue is full, dropping event")
		return false
	}
}

func (d *Dispatcher) deliver(evt Event) {
	defer func() {
		if r := recover(); r != nil {
			prometheus.AuditEventsTotal.WithLabelValues(prometheus.AuditFailed).Inc()
			d.logger.WithFields(logrus.Fields{
				"event_id": evt.ID,
				"panic":    r,
			}).Error("audit sink panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := d.sink.LogViolation(ctx, evt); err != nil {
		prometheus.AuditEventsTotal.WithLabelValues(prometheus.AuditFailed).Inc()
		d.logger.WithFields(logrus.Fields{
			"event_id": evt.ID,
			"kind":     evt.Kind,
		}).WithError(err).Error("failed to deliver audit event")
		return
	}
	prometheus.AuditEventsTotal.WithLabelValues(prometheus.AuditDelivered).Inc()
}

// Shutdown stops accepting events and waits for queued ones to be
// delivered, or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.logger.Info("draining audit workers")
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("audit workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
