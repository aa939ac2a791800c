package timer

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSchedulerStopped is returned when scheduling on a stopped scheduler
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Task is a unit of work scheduled for a future instant
type Task struct {
	ID    string
	RunAt time.Time
	// Every re-arms the task after each run when positive
	Every time.Duration
	Run   func(ctx context.Context)
	index int // index in the heap (for heap.Interface)
}

// taskHeap is a min-heap of Tasks ordered by RunAt
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].RunAt.Before(h[j].RunAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*h)
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*h = old[:n-1]
	return task
}

// Scheduler runs tasks at their due time on a fixed pool of workers. A
// task with the same ID replaces the pending one.
type Scheduler struct {
	mu      sync.Mutex
	heap    taskHeap
	tasks   map[string]*Task
	wakeup  chan struct{}
	jobs    chan *Task
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewScheduler creates a scheduler with the given number of workers
func NewScheduler(workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		heap:    make(taskHeap, 0),
		tasks:   make(map[string]*Task),
		wakeup:  make(chan struct{}, 1),
		jobs:    make(chan *Task, workers),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
	heap.Init(&s.heap)
	return s
}

// Start launches the dispatch loop and the workers
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.wg.Add(1)
	go s.run()
}

// Stop cancels running tasks' context and waits for workers to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

// Schedule runs fn once at runAt
func (s *Scheduler) Schedule(id string, runAt time.Time, fn func(ctx context.Context)) error {
	return s.add(&Task{ID: id, RunAt: runAt, Run: fn})
}

// Every runs fn every interval, first after one interval has elapsed
func (s *Scheduler) Every(id string, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	return s.add(&Task{ID: id, RunAt: time.Now().Add(interval), Every: interval, Run: fn})
}

func (s *Scheduler) add(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.tasks[task.ID]; ok {
		heap.Remove(&s.heap, existing.index)
	}
	heap.Push(&s.heap, task)
	s.tasks[task.ID] = task

	if s.heap[0] == task {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a pending task
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, task.index)
	delete(s.tasks, id)
	return true
}

// Pending returns the number of scheduled tasks
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		wait := 24 * time.Hour
		if s.heap.Len() > 0 {
			next := s.heap[0]
			wait = time.Until(next.RunAt)
			if wait <= 0 {
				task := heap.Pop(&s.heap).(*Task)
				if task.Every > 0 {
					rearmed := &Task{ID: task.ID, RunAt: task.RunAt.Add(task.Every), Every: task.Every, Run: task.Run}
					if now := time.Now(); rearmed.RunAt.Before(now) {
						rearmed.RunAt = now.Add(task.Every)
					}
					heap.Push(&s.heap, rearmed)
					s.tasks[task.ID] = rearmed
				} else {
					delete(s.tasks, task.ID)
				}
				s.mu.Unlock()

				select {
				case s.jobs <- task:
				case <-s.ctx.Done():
					return
				}
				continue
			}
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.jobs:
			task.Run(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}
