// Package queue holds bounded per-shard queues of game updates.
//
// Every update for a game id lands on the same shard, so a single consumer per
// shard sees a game's updates in arrival order and never concurrently.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultShardCount    = 8
)

// Job is one accepted update waiting to be evaluated.
type Job struct {
	Update   *model.GameUpdate
	Source   string
	Received time.Time
}

// Queue provides non-blocking enqueue and per-shard channel dequeue.
type Queue interface {
	// Enqueue routes j to its game's shard. It never blocks; a full shard
	// returns ErrQueueFull.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns the channel for one shard. The channel is closed when
	// the queue is closed and drained.
	Dequeue(ctx context.Context, shard int) <-chan Job

	// Shards returns the number of shards.
	Shards() int

	// Len returns the number of queued jobs across all shards.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// ShardedQueue implements Queue using one buffered channel per shard.
type ShardedQueue struct {
	shards     []chan Job
	labels     []string
	capacity   int
	shardCount int

	mu     sync.RWMutex
	closed bool
}

// NewShardedQueue creates a queue with configuration options.
func NewShardedQueue(opts ...Option) *ShardedQueue {
	q := &ShardedQueue{
		capacity:   defaultQueueCapacity,
		shardCount: defaultShardCount,
	}
	for _, opt := range opts {
		opt(q)
	}

	per := q.capacity / q.shardCount
	if per < 1 {
		per = 1
	}
	q.shards = make([]chan Job, q.shardCount)
	q.labels = make([]string, q.shardCount)
	for i := range q.shards {
		q.shards[i] = make(chan Job, per)
		q.labels[i] = strconv.Itoa(i)
		metrics.UpdateQueueSize(q.labels[i], 0)
	}
	return q
}

// ShardFor maps a game id onto one of n shards.
func ShardFor(gameID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(gameID))
	return int(h.Sum32() % uint32(n))
}

// Enqueue implements Queue.Enqueue.
func (q *ShardedQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}

	i := ShardFor(j.Update.ID, len(q.shards))
	select {
	case q.shards[i] <- j:
		metrics.UpdateQueueSize(q.labels[i], len(q.shards[i]))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return ErrQueueFull
	}
}

// Dequeue implements Queue.Dequeue.
func (q *ShardedQueue) Dequeue(ctx context.Context, shard int) <-chan Job {
	src := q.shards[shard]
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range src {
			select {
			case out <- j:
				metrics.UpdateQueueSize(q.labels[shard], len(src))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Shards implements Queue.Shards.
func (q *ShardedQueue) Shards() int { return len(q.shards) }

// Len implements Queue.Len.
func (q *ShardedQueue) Len(_ context.Context) int {
	n := 0
	for i, ch := range q.shards {
		size := len(ch)
		metrics.UpdateQueueSize(q.labels[i], size)
		n += size
	}
	return n
}

// Close implements Queue.Close.
func (q *ShardedQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	for _, ch := range q.shards {
		close(ch)
	}
	q.closed = true
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *ShardedQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
