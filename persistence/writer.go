package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/topiccache/model"
	"github.com/hupe1980/topiccache/resource"
)

// OpKind identifies a queued gateway mutation.
type OpKind uint8

const (
	OpSave OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	if k == OpSave {
		return "save"
	}
	return "delete"
}

// Op is one queued gateway mutation.
type Op struct {
	Kind   OpKind
	Record model.Record
	Key    model.TopicKey
}

// WriterConfig configures the async writer.
type WriterConfig struct {
	// QueueSize bounds the number of in-flight ops. When the queue is full,
	// new ops are dropped (and logged) rather than blocking cache traffic.
	// Defaults to 256.
	QueueSize int

	// Workers is the number of goroutines draining the queue. With the
	// default of 1 ops reach the gateway in enqueue order; more workers
	// trade ordering for throughput, which idempotent gateways tolerate.
	Workers int

	// Retries is the number of additional attempts per op after the first
	// failure. Defaults to 2.
	Retries int

	// Controller throttles gateway traffic. Optional.
	Controller *resource.Controller

	// Logger receives degraded-mode warnings. Optional.
	Logger *slog.Logger

	// OnResult, if set, is invoked after every processed op with its final
	// outcome. Used by the cache to feed its metrics collector.
	OnResult func(kind OpKind, duration time.Duration, err error)
}

// Writer drains cache mutations to a Gateway in the background.
//
// The cache enqueues ops strictly after releasing its critical section, so a
// slow or failing gateway never blocks lookups or inserts. A full queue
// drops ops: the in-memory store stays authoritative and the gateway catches
// up on the next save of the same key.
type Writer struct {
	gw       Gateway
	cfg      WriterConfig
	ops      chan Op
	wg       sync.WaitGroup
	submitMu sync.RWMutex
	closed   atomic.Bool
	dropped  atomic.Int64

	// pendMu/pendCond guard the in-flight op count. A plain WaitGroup
	// cannot serve here: enqueues keep adding while Flush waits, which the
	// WaitGroup contract forbids.
	pendMu   sync.Mutex
	pendCond *sync.Cond
	pending  int
}

// NewWriter creates a writer pumping into gw. Call Start before enqueueing.
func NewWriter(gw Gateway, cfg WriterConfig) *Writer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	w := &Writer{
		gw:  gw,
		cfg: cfg,
		ops: make(chan Op, cfg.QueueSize),
	}
	w.pendCond = sync.NewCond(&w.pendMu)
	return w
}

// Start launches the worker goroutines.
func (w *Writer) Start() {
	w.wg.Add(w.cfg.Workers)
	for i := 0; i < w.cfg.Workers; i++ {
		go w.worker()
	}
}

// EnqueueSave queues an upsert for rec. Never blocks.
func (w *Writer) EnqueueSave(rec model.Record) {
	w.enqueue(Op{Kind: OpSave, Record: rec, Key: rec.Key})
}

// EnqueueDelete queues a removal for key. Never blocks.
func (w *Writer) EnqueueDelete(key model.TopicKey) {
	w.enqueue(Op{Kind: OpDelete, Key: key})
}

func (w *Writer) enqueue(op Op) {
	w.submitMu.RLock()
	defer w.submitMu.RUnlock()

	if w.closed.Load() {
		return
	}
	w.pendMu.Lock()
	w.pending++
	w.pendMu.Unlock()
	select {
	case w.ops <- op:
	default:
		w.opDone()
		w.dropped.Add(1)
		if w.cfg.Logger != nil {
			w.cfg.Logger.Warn("persistence queue full, dropping op",
				"op", op.Kind.String(),
				"key", op.Key.String(),
				"dropped_total", w.dropped.Load(),
			)
		}
	}
}

func (w *Writer) worker() {
	defer w.wg.Done()
	for op := range w.ops {
		w.process(op)
		w.opDone()
	}
}

// opDone retires one in-flight op and wakes flushers when the pump drains.
func (w *Writer) opDone() {
	w.pendMu.Lock()
	w.pending--
	if w.pending == 0 {
		w.pendCond.Broadcast()
	}
	w.pendMu.Unlock()
}

func (w *Writer) process(op Op) {
	ctx := context.Background()
	start := time.Now()

	var err error
	for attempt := 0; attempt <= w.cfg.Retries; attempt++ {
		if err = w.cfg.Controller.AcquireWorker(ctx); err != nil {
			break
		}
		if err = w.cfg.Controller.WaitWrite(ctx); err != nil {
			w.cfg.Controller.ReleaseWorker()
			break
		}
		err = w.apply(ctx, op)
		w.cfg.Controller.ReleaseWorker()
		if err == nil {
			break
		}
	}

	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op.Kind, op.Key, err)
		if w.cfg.Logger != nil {
			w.cfg.Logger.Warn("persistence degraded, serving from memory only",
				"op", op.Kind.String(),
				"key", op.Key.String(),
				"error", err,
			)
		}
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(op.Kind, time.Since(start), err)
	}
}

func (w *Writer) apply(ctx context.Context, op Op) error {
	switch op.Kind {
	case OpSave:
		return w.gw.Save(ctx, op.Record)
	case OpDelete:
		return w.gw.Delete(ctx, op.Key)
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
}

// Dropped returns the number of ops discarded because the queue was full.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Flush blocks until the pump has no in-flight ops, or ctx is canceled.
// Safe to call while other goroutines keep enqueueing; it returns once a
// fully drained moment is observed.
func (w *Writer) Flush(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.pendMu.Lock()
		w.pendCond.Broadcast()
		w.pendMu.Unlock()
	})
	defer stop()

	w.pendMu.Lock()
	defer w.pendMu.Unlock()
	for w.pending > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.pendCond.Wait()
	}
	return nil
}

// Close drains the queue and stops the workers. Idempotent.
func (w *Writer) Close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.submitMu.Lock()
	close(w.ops)
	w.submitMu.Unlock()
	w.wg.Wait()
}
