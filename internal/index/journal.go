package index

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"canvas-index/internal/index/spatial"
)

const (
	journalBufferSize    = 1024                   // Circular buffer size
	journalMaxPerSec     = 10000                  // Global rate limit
	journalBatchSize     = 64                     // Records per batch write
	journalFlushInterval = 100 * time.Millisecond // How often to flush
)

// Op identifies a mutation kind in the journal.
type Op string

const (
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
	OpUpdate   Op = "update"
	OpRebuild  Op = "rebuild"
	OpOptimize Op = "optimize"
	OpBounds   Op = "bounds"
)

// Record is one journaled mutation. Item-level ops carry the id and
// box; whole-structure ops carry the item count instead.
type Record struct {
	Sequence uint64      `json:"seq"`
	TimeNs   int64       `json:"timeNs"`
	Op       Op          `json:"op"`
	ItemID   string      `json:"itemId,omitempty"`
	Box      spatial.Box `json:"box,omitempty"`
	Count    int         `json:"count,omitempty"`
}

// Journal provides bounded, rate-limited mutation logging with
// backpressure. It is an append-only JSONL audit stream, not a recovery
// log: records may be dropped under load and emitting never blocks a
// mutation.
type Journal struct {
	// Circular buffer. ringMu guards the buffer and both heads so
	// that concurrent producers never tear a record under the reader;
	// the critical sections are a handful of word writes.
	ringMu    sync.Mutex
	buffer    [journalBufferSize]Record
	writeHead uint64 // producer position, guarded by ringMu
	readHead  uint64 // consumer position, guarded by ringMu

	limiter *rate.Limiter

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	filePath string
	file     *os.File
	fileMu   sync.Mutex

	// Stats for monitoring
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewJournal creates a stopped journal. Call Start to begin writing.
func NewJournal() *Journal {
	return &Journal{
		limiter:  rate.NewLimiter(journalMaxPerSec, journalMaxPerSec/10),
		stopChan: make(chan struct{}),
	}
}

// Start opens the output file and begins the async writer goroutine.
func (j *Journal) Start(filePath string) error {
	if j.running.Load() {
		return nil
	}

	j.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		j.file = file
	}

	j.running.Store(true)
	j.writerWg.Add(1)
	go j.writerLoop()

	return nil
}

// Stop gracefully shuts down the journal, flushing pending records.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Emit appends a record with rate limiting. Safe for concurrent
// producers. Returns false if rate limited or the journal is not
// running; the caller's mutation proceeds either way.
func (j *Journal) Emit(rec Record) bool {
	if !j.running.Load() {
		return false
	}

	if !j.limiter.Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}

	j.ringMu.Lock()
	// Buffer full: drop the oldest record (rolling window)
	if j.writeHead-j.readHead >= journalBufferSize {
		j.readHead++
		atomic.AddUint64(&j.droppedCount, 1)
	}

	rec.Sequence = j.writeHead + 1
	rec.TimeNs = time.Now().UnixNano()
	j.buffer[j.writeHead%journalBufferSize] = rec
	// Advance the head only after the slot is fully written, so the
	// reader can never observe a half-written record.
	j.writeHead++
	j.ringMu.Unlock()

	atomic.AddUint64(&j.totalCount, 1)
	return true
}

// writerLoop batches and writes records to disk asynchronously.
func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(journalFlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, journalBatchSize)

	for {
		select {
		case <-j.stopChan:
			// Final flush, draining everything still buffered
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flushBatch(batch)
			}

		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

// collectBatch reads available records from the circular buffer.
func (j *Journal) collectBatch(batch []Record) []Record {
	j.ringMu.Lock()
	defer j.ringMu.Unlock()

	start := len(batch)
	for i := j.readHead; i < j.writeHead && len(batch) < journalBatchSize; i++ {
		batch = append(batch, j.buffer[i%journalBufferSize])
	}
	j.readHead += uint64(len(batch) - start)

	return batch
}

// flushBatch writes records to disk (append-only, newline-delimited JSON).
func (j *Journal) flushBatch(batch []Record) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.file == nil {
		return
	}

	for _, rec := range batch {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		j.file.Write(data)
		j.file.Write([]byte("\n"))
	}
}

// GetStats returns journal counters for monitoring.
func (j *Journal) GetStats() map[string]interface{} {
	j.ringMu.Lock()
	head := j.writeHead
	tail := j.readHead
	j.ringMu.Unlock()

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&j.totalCount),
		"dropped": atomic.LoadUint64(&j.droppedCount),
		"pending": head - tail,
		"running": j.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped records.
func (j *Journal) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&j.droppedCount)
}

// GetTotalCount returns the total number of records accepted.
func (j *Journal) GetTotalCount() uint64 {
	return atomic.LoadUint64(&j.totalCount)
}
