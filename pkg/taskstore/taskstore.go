// Package taskstore holds outstanding proof-of-work tasks in memory and
// guarantees a task is consumed at most once: ConsumeIf removes the entry
// before checking its validity, so two concurrent verify attempts for the
// same task can never both succeed.
package taskstore

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no task is registered under the given ID,
// whether because it never existed, was already consumed, or was swept.
var ErrNotFound = errors.New("task not found or expired")

// ErrExpired is returned when the task exists but its Exp has already
// passed at consume time.
var ErrExpired = errors.New("task expired")

// Task is a single issued puzzle, keyed by its ID.
type Task struct {
	Seed       string
	Exp        int64
	Bits       int
	Scope      string
	UAHash     string
	IPHash     string
	WorkerType string
}

// Store is a concurrency-safe map of outstanding tasks with a background
// sweep for expired entries.
type Store struct {
	log   logrus.FieldLogger
	tasks map[string]*Task
	mu    sync.RWMutex

	sweepInterval time.Duration

	ctx    chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	nowFn  func() time.Time
	closed bool
}

// DefaultSweepInterval matches the 300 second sweep cadence used to evict
// expired tasks that were never consumed.
const DefaultSweepInterval = 300 * time.Second

// New creates an empty store. Call Start to begin the background sweep.
func New(log logrus.FieldLogger) *Store {
	return &Store{
		log:           log.WithField("component", "taskstore"),
		tasks:         make(map[string]*Task),
		sweepInterval: DefaultSweepInterval,
		ctx:           make(chan struct{}),
		nowFn:         time.Now,
	}
}

// Insert records a task under id, overwriting any existing entry.
func (s *Store) Insert(id string, task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[id] = task
}

// take removes the task for id, if present, and returns it. A task is
// returned at most once: a second call with the same id always misses,
// whether or not the first call's caller went on to accept the solution.
func (s *Store) take(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}

	delete(s.tasks, id)

	return task, true
}

// ConsumeIf atomically removes the task for id, then checks its expiry
// against now, then runs validate against it. The removal happens before
// either check, so the task is gone regardless of how this call resolves:
// a second call with the same id always returns ErrNotFound. validate must
// not perform blocking I/O — it runs while holding the exclusive removal
// result, and the store's at-most-once guarantee depends on the whole
// sequence completing synchronously.
func (s *Store) ConsumeIf(id string, now time.Time, validate func(*Task) error) (*Task, error) {
	task, ok := s.take(id)
	if !ok {
		return nil, ErrNotFound
	}

	if task.Exp < now.Unix() {
		return nil, ErrExpired
	}

	if err := validate(task); err != nil {
		return nil, err
	}

	return task, nil
}

// Size returns the number of outstanding tasks.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tasks)
}

// Start launches the background sweep loop that evicts tasks whose Exp has
// passed. It returns immediately; call Stop to terminate the loop.
func (s *Store) Start() {
	s.wg.Add(1)

	go s.run()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Store) Stop() {
	s.once.Do(func() {
		close(s.ctx)
	})

	s.wg.Wait()
}

func (s *Store) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := s.nowFn().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0

	for id, task := range s.tasks {
		if task.Exp < now {
			delete(s.tasks, id)
			evicted++
		}
	}

	if evicted > 0 {
		s.log.WithField("evicted", evicted).Debug("swept expired tasks")
	}
}
