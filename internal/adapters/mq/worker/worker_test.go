package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/courtside/internal/adapters/mq/queue"
	worker "github.com/okian/courtside/internal/adapters/mq/worker"
	model "github.com/okian/courtside/internal/domain/model"
	logging "github.com/okian/courtside/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockQueue serves a single shard from a buffered channel.
type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(_ context.Context, _ int) <-chan queue.Job { return mq.jobs }
func (mq *mockQueue) Shards() int                                       { return 1 }
func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

func (mq *mockQueue) add(gameID string) {
	mq.jobs <- queue.Job{Update: &model.GameUpdate{ID: gameID}, Source: "test", Received: time.Now()}
}

// recorder remembers the order in which game ids were processed.
type recorder struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func newRecorder() *recorder { return &recorder{fail: make(map[string]error)} }

func (r *recorder) Process(_ context.Context, j queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[j.Update.ID]; ok {
		return err
	}
	r.seen = append(r.seen, j.Update.ID)
	return nil
}

func (r *recorder) processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestShardWorker(t *testing.T) {
	convey.Convey("Given a shard worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		rec := newRecorder()
		w := worker.NewShardWorker(q, 0, rec, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When updates arrive", func() {
			q.add("g-1")
			q.add("g-2")
			q.add("g-1")

			convey.Convey("Then they are processed in arrival order", func() {
				convey.So(waitFor(func() bool { return len(rec.processed()) == 3 }), convey.ShouldBeTrue)
				convey.So(rec.processed(), convey.ShouldResemble, []string{"g-1", "g-2", "g-1"})
			})
		})

		convey.Convey("When processing fails", func() {
			rec.mu.Lock()
			rec.fail["bad"] = errors.New("boom")
			rec.mu.Unlock()
			q.add("bad")
			q.add("g-3")

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return len(rec.processed()) == 1 }), convey.ShouldBeTrue)
				convey.So(rec.processed(), convey.ShouldResemble, []string{"g-3"})
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a sharded queue", t, func() {
		_ = logging.Init()

		q := queue.NewShardedQueue(queue.WithShards(4), queue.WithCapacity(100))
		rec := newRecorder()
		pool := worker.NewPool(q, rec)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(ctx)

		convey.Convey("When updates for several games are queued", func() {
			ids := []string{"g-1", "g-2", "g-3", "g-4", "g-5", "g-6"}
			for _, id := range ids {
				convey.So(q.Enqueue(ctx, queue.Job{Update: &model.GameUpdate{ID: id}}), convey.ShouldBeNil)
			}

			convey.Convey("Then all of them are processed and the pool shuts down", func() {
				convey.So(waitFor(func() bool { return len(rec.processed()) == len(ids) }), convey.ShouldBeTrue)
				convey.So(rec.processed(), convey.ShouldHaveLength, len(ids))
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
