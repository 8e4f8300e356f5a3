package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 100
)

// Entry is a persisted audit row.
type Entry struct {
	Level     string
	Message   string
	Fields    Fields
	TenantID  string
	UserID    string
	RequestID string
	CreatedAt time.Time
}

// Writer persists batches of entries.
type Writer interface {
	InsertEntries(ctx context.Context, entries []Entry) error
}

// Recorder is a Sink that persists entries asynchronously. Enqueueing never
// blocks: when the buffer is full the entry is dropped and counted.
type Recorder struct {
	writer Writer
	logger *zap.Logger

	queue    chan Entry
	dropped  atomic.Int64
	interval time.Duration
	batch    int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRecorder buffers up to buffer entries; a non-positive buffer means 1024.
func NewRecorder(w Writer, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		writer:   w,
		logger:   logger,
		queue:    make(chan Entry, buffer),
		interval: defaultFlushInterval,
		batch:    defaultBatchSize,
		stopCh:   make(chan struct{}),
	}
}

func (r *Recorder) SetInterval(d time.Duration) {
	r.interval = d
}

// Dropped returns how many entries were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) Info(ctx context.Context, msg string, fields Fields) {
	r.enqueue(ctx, zapcore.InfoLevel, msg, fields)
}

func (r *Recorder) Warn(ctx context.Context, msg string, fields Fields) {
	r.enqueue(ctx, zapcore.WarnLevel, msg, fields)
}

func (r *Recorder) Error(ctx context.Context, msg string, fields Fields) {
	r.enqueue(ctx, zapcore.ErrorLevel, msg, fields)
}

func (r *Recorder) enqueue(ctx context.Context, level zapcore.Level, msg string, fields Fields) {
	e := Entry{
		Level:     level.String(),
		Message:   msg,
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
	if tc, ok := tenancy.Current(ctx); ok {
		e.TenantID = tc.Tenant()
		e.UserID = tc.UserID
		e.RequestID = tc.RequestID
	}

	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
	}
}

// Start runs the background writer.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("audit recorder started", zap.Duration("interval", r.interval))

		pending := make([]Entry, 0, r.batch)
		for {
			select {
			case e := <-r.queue:
				pending = append(pending, e)
				if len(pending) >= r.batch {
					pending = r.flush(pending)
				}
			case <-ticker.C:
				pending = r.flush(pending)
			case <-r.stopCh:
				for {
					select {
					case e := <-r.queue:
						pending = append(pending, e)
					default:
						r.flush(pending)
						r.logger.Info("audit recorder stopped", zap.Int64("dropped", r.dropped.Load()))
						return
					}
				}
			}
		}
	}()
}

// Stop drains the queue and stops the writer. It is safe to call twice.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Recorder) flush(pending []Entry) []Entry {
	if len(pending) == 0 {
		return pending
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.writer.InsertEntries(ctx, pending); err != nil {
		r.logger.Error("failed to persist audit entries", zap.Int("count", len(pending)), zap.Error(err))
	}
	return make([]Entry, 0, r.batch)
}
