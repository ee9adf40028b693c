// Package audit persists admission decisions in the background.
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/observability"
	"github.com/stepamak/pump-tracker/internal/storage"
)

// Recorder queues admission records and writes them to a store in batches.
// Record never blocks: when the queue is full the record is dropped.
type Recorder struct {
	store         storage.AdmissionStore
	queue         chan *domain.AdmissionRecord
	batchSize     int
	flushInterval time.Duration
	flushTimeout  time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics

	dropped atomic.Uint64
	written atomic.Uint64
}

// Options contains configuration for creating a Recorder.
type Options struct {
	Store         storage.AdmissionStore
	QueueSize     int           // Default: 4096
	BatchSize     int           // Default: 256
	FlushInterval time.Duration // Default: 1s
	FlushTimeout  time.Duration // Default: 10s, bounds each bulk insert
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewRecorder creates a recorder. Call Run to start writing.
func NewRecorder(opts Options) *Recorder {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 4096
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	flushTimeout := opts.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("audit")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	return &Recorder{
		store:         opts.Store,
		queue:         make(chan *domain.AdmissionRecord, queueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		flushTimeout:  flushTimeout,
		logger:        log,
		metrics:       metrics,
	}
}

// Record enqueues rec. It reports false when the record was dropped.
func (r *Recorder) Record(rec domain.AdmissionRecord) bool {
	select {
	case r.queue <- &rec:
		return true
	default:
		r.dropped.Add(1)
		r.metrics.AuditDropped.Inc()
		return false
	}
}

// Dropped returns the number of records dropped on a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Written returns the number of records persisted.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Run writes queued records until ctx is cancelled, then flushes what is
// left in the queue.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*domain.AdmissionRecord, 0, r.batchSize)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-r.queue:
					batch = append(batch, rec)
					if len(batch) >= r.batchSize {
						batch = r.flush(batch)
					}
				default:
					r.flush(batch)
					return
				}
			}

		case rec := <-r.queue:
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				batch = r.flush(batch)
			}

		case <-ticker.C:
			batch = r.flush(batch)
		}
	}
}

// flush writes batch and returns it emptied. Failed batches are discarded.
func (r *Recorder) flush(batch []*domain.AdmissionRecord) []*domain.AdmissionRecord {
	if len(batch) == 0 {
		return batch
	}

	// detached from the run context so the final flush still completes
	ctx, cancel := context.WithTimeout(context.Background(), r.flushTimeout)
	defer cancel()

	start := time.Now()
	err := r.store.InsertBulk(ctx, batch)
	r.metrics.RecordAuditFlush(len(batch), time.Since(start), err)
	if err != nil {
		r.logger.Error("audit flush failed", zap.Int("records", len(batch)), logger.FieldErr(err))
	} else {
		r.written.Add(uint64(len(batch)))
	}

	clear(batch)
	return batch[:0]
}
