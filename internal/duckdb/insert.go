package duckdb

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexumobscura/nexum/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can wait for the
// flush worker.
const DefaultFlushQueueSize = 64

type batchWriter interface {
	Apply(batch []op) error
}

// InsertBuffer batches archive writes and flushes them asynchronously. Its
// Add methods only block when the flush queue is full. It satisfies
// ingest.Archive.
type InsertBuffer struct {
	writer        batchWriter
	mu            sync.Mutex // guards pending
	pending       []op
	state         sync.RWMutex // held shared by writers, exclusively by Stop
	stopped       bool
	flushChan     chan []op
	maxBatch      int
	flushInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup
	onDrop        func()

	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64
}

// InsertBufferConfig tunes the buffer.
type InsertBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
	// OnDrop is called for writes refused after Stop.
	OnDrop func()
}

// NewInsertBuffer starts a buffer writing to store.
func NewInsertBuffer(store *Store, conf InsertBufferConfig) *InsertBuffer {
	return newInsertBuffer(store, conf)
}

func newInsertBuffer(w batchWriter, conf InsertBufferConfig) *InsertBuffer {
	if conf.BatchSize <= 0 {
		conf.BatchSize = 500
	}
	if conf.FlushInterval <= 0 {
		conf.FlushInterval = 250 * time.Millisecond
	}
	if conf.FlushQueueSize <= 0 {
		conf.FlushQueueSize = DefaultFlushQueueSize
	}

	b := &InsertBuffer{
		writer:        w,
		pending:       make([]op, 0, conf.BatchSize),
		flushChan:     make(chan []op, conf.FlushQueueSize),
		maxBatch:      conf.BatchSize,
		flushInterval: conf.FlushInterval,
		done:          make(chan struct{}),
		onDrop:        conf.OnDrop,
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

// AddEntries queues entries for insertion.
func (b *InsertBuffer) AddEntries(entries []model.LogEntry) {
	ops := make([]op, len(entries))
	for i := range entries {
		ops[i] = op{kind: opEntry, entry: entries[i]}
	}
	b.enqueue(ops...)
}

// AddFile queues an uploaded file record.
func (b *InsertBuffer) AddFile(f model.UploadedFile) {
	b.enqueue(op{kind: opFile, file: f})
}

// AddActivity queues an activity entry.
func (b *InsertBuffer) AddActivity(a model.ActivityEntry) {
	b.enqueue(op{kind: opActivity, activity: a})
}

// RemoveSourceFile queues deletion of a file's entries and record.
func (b *InsertBuffer) RemoveSourceFile(name string) {
	b.enqueue(op{kind: opRemoveSource, source: name})
}

func (b *InsertBuffer) enqueue(ops ...op) {
	if len(ops) == 0 {
		return
	}
	b.state.RLock()
	defer b.state.RUnlock()
	if b.stopped {
		if b.onDrop != nil {
			for range ops {
				b.onDrop()
			}
		}
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, ops...)
	if len(b.pending) >= b.maxBatch {
		b.send(b.pending)
		b.pending = make([]op, 0, b.maxBatch)
	}
}

// send hands a batch to the worker. Callers hold b.mu so batches reach the
// worker in the order they were cut. A full queue blocks the caller.
func (b *InsertBuffer) send(batch []op) {
	select {
	case b.flushChan <- batch:
	default:
		b.logBackpressure()
		b.flushChan <- batch
	}
}

func (b *InsertBuffer) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.done:
			b.drainPending()
			return
		}
	}
}

func (b *InsertBuffer) drainPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return
	}
	b.send(b.pending)
	b.pending = make([]op, 0, b.maxBatch)
}

func (b *InsertBuffer) flushWorker() {
	defer b.wg.Done()
	for batch := range b.flushChan {
		if err := b.writer.Apply(batch); err != nil {
			log.Printf("duckdb: flush error: %v", err)
		}
	}
}

// logBackpressure warns at most every 10 seconds.
func (b *InsertBuffer) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure, flush queue full %d times", count)
	}
}

// Stop flushes everything queued and waits for the writes to finish.
// Later writes are dropped.
func (b *InsertBuffer) Stop() {
	b.state.Lock()
	if b.stopped {
		b.state.Unlock()
		return
	}
	b.stopped = true
	b.state.Unlock()

	close(b.done)
	b.tickWg.Wait()
	close(b.flushChan)
	b.wg.Wait()
}
