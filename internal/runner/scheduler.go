// Package runner executes flat queues of probe tasks through a bounded
// worker pool, folding per-round results into live aggregates.
package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ssrsss/API-Check/internal/models"
)

// MaxWorkers caps the user-configurable pool size.
const MaxWorkers = 100

// DefaultWorkers is used when the caller supplies no worker count.
const DefaultWorkers = 50

// Task is one unit of work: probe one (credential, model) pair. Config is a
// reference to the owning endpoint's shape and is never mutated.
type Task struct {
	Key    string
	Model  string
	Config *models.ApiConfig
}

// ID keys the task's slot in the result table.
func (t Task) ID() string {
	if t.Key != "" {
		return t.Key + "|" + t.Model
	}
	return t.Model
}

// Progress is a monotonically increasing completion counter.
type Progress struct {
	Completed int
	Total     int
}

// ProbeFunc runs one round of one task and classifies the outcome. It must
// never panic; failures are carried inside the result.
type ProbeFunc func(ctx context.Context, task Task, round int) models.ProbeResult

// Scheduler drains a task queue through a fixed pool of workers. Each run
// owns its queue and worker set; there is no shared state across runs and no
// mid-flight cancellation beyond the per-call timeout inside the probe.
type Scheduler struct {
	Workers int
	Rounds  int

	// OnProgress is called after each task (all of its rounds) finishes.
	OnProgress func(Progress)
	// OnUpdate is called after each completed round with the task's current
	// aggregate.
	OnUpdate func(Task, models.AggregatedResult)
}

// Run executes all tasks and returns the final aggregate per task id. It
// returns only once every worker has drained the queue. A task's failure
// never stops the batch; it is captured in that task's result slot.
func (s *Scheduler) Run(ctx context.Context, tasks []Task, probe ProbeFunc) map[string]models.AggregatedResult {
	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	rounds := s.Rounds
	if rounds < 1 {
		rounds = 1
	}

	results := make(map[string]models.AggregatedResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	// The channel is the shared queue: receive is the atomic pop, so no task
	// is ever assigned to two workers, and dequeue order is FIFO.
	queue := make(chan Task, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	var mu sync.Mutex
	var completed atomic.Int64
	total := len(tasks)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for task := range queue {
				s.runTask(ctx, task, rounds, probe, results, &mu)
				done := completed.Add(1)
				if s.OnProgress != nil {
					s.OnProgress(Progress{Completed: int(done), Total: total})
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runTask executes the task's rounds sequentially, folding each completed
// round into the task's aggregate.
func (s *Scheduler) runTask(ctx context.Context, task Task, rounds int, probe ProbeFunc, results map[string]models.AggregatedResult, mu *sync.Mutex) {
	var history []models.ProbeResult
	var agg models.AggregatedResult

	for r := 0; r < rounds; r++ {
		res := probe(ctx, task, r)
		history, agg = Fold(history, res)

		mu.Lock()
		results[task.ID()] = agg
		mu.Unlock()

		if s.OnUpdate != nil {
			s.OnUpdate(task, agg)
		}
	}
}
