// Package scheduler runs named periodic tasks on a cron engine. Every task is
// reachable through a Handle so its owner can cancel it explicitly.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// TaskFunc is the body of a scheduled task. The context is cancelled when the
// scheduler stops.
type TaskFunc func(ctx context.Context) error

// SchedulerConfig defines the configuration for a scheduler
type SchedulerConfig struct {
	// Maximum number of scheduled tasks; zero means unlimited.
	MaxTasks int

	Logger log.Logger
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	config SchedulerConfig
	cron   *cron.Cron
	logger log.Logger

	mu      sync.RWMutex
	tasks   map[string]*ScheduledTask
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// ScheduledTask is the bookkeeping of one task.
type ScheduledTask struct {
	Name      string
	Interval  time.Duration
	LastRun   time.Time
	Runs      int
	Failures  int
	LastError error

	entryID cron.EntryID
	fn      TaskFunc
}

// TaskInfo is a read-only copy of a task's state.
type TaskInfo struct {
	Name     string
	Interval time.Duration
	LastRun  time.Time
	NextRun  time.Time
	Runs     int
	Failures int
}

// NewScheduler creates a new scheduler with the given configuration
func NewScheduler(config SchedulerConfig) *Scheduler {
	logger := config.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	logger = logger.WithComponent("scheduler")

	cronLogger := cron.PrintfLogger(log.ToStdLogger(logger, log.DebugLevel))

	c := cron.New(
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		cron.WithLogger(cronLogger),
	)

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		config: config,
		cron:   c,
		logger: logger,
		tasks:  make(map[string]*ScheduledTask),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler. Tasks may be added before or after Start.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop cancels the task context, removes every task and waits for running
// tasks to return. A stopped scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for name, task := range s.tasks {
		s.cron.Remove(task.entryID)
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
}

// ScheduleInterval runs fn every interval, first one interval from now. A task
// with the same name is replaced.
func (s *Scheduler) ScheduleInterval(name string, interval time.Duration, fn TaskFunc) (*Handle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be greater than 0")
	}
	task := &ScheduledTask{Name: name, Interval: interval, fn: fn}
	return s.add(task, intervalSchedule(interval))
}

func (s *Scheduler) add(task *ScheduledTask, schedule cron.Schedule) (*Handle, error) {
	if task.Name == "" {
		return nil, fmt.Errorf("task name must not be empty")
	}
	if task.fn == nil {
		return nil, fmt.Errorf("task %s has no function", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, fmt.Errorf("scheduler is stopped")
	}

	if old, ok := s.tasks[task.Name]; ok {
		s.cron.Remove(old.entryID)
		delete(s.tasks, task.Name)
	}

	if s.config.MaxTasks > 0 && len(s.tasks) >= s.config.MaxTasks {
		return nil, fmt.Errorf("maximum number of tasks reached")
	}

	task.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(task) }))
	s.tasks[task.Name] = task

	s.logger.Debug("Task scheduled",
		log.Str("task", task.Name),
		log.Duration("interval", task.Interval))

	return &Handle{scheduler: s, task: task}, nil
}

func (s *Scheduler) run(task *ScheduledTask) {
	err := task.fn(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	task.LastRun = time.Now()
	task.Runs++
	if err != nil {
		task.Failures++
		task.LastError = err
		s.logger.Warn("Scheduled task failed", log.Str("task", task.Name), log.Err(err))
	}
}

// List returns a snapshot of all scheduled tasks ordered by name.
func (s *Scheduler) List() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		infos = append(infos, TaskInfo{
			Name:     t.Name,
			Interval: t.Interval,
			LastRun:  t.LastRun,
			NextRun:  s.cron.Entry(t.entryID).Next,
			Runs:     t.Runs,
			Failures: t.Failures,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Handle controls one scheduled task.
type Handle struct {
	scheduler *Scheduler
	task      *ScheduledTask
}

// Name returns the task name.
func (h *Handle) Name() string {
	return h.task.Name
}

// Stop cancels the task. It is safe to call more than once and after the
// scheduler itself stopped.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	s := h.scheduler

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.tasks[h.task.Name]; ok && current == h.task {
		s.cron.Remove(h.task.entryID)
		delete(s.tasks, h.task.Name)
	}
}

// Active reports whether the task is still scheduled.
func (h *Handle) Active() bool {
	if h == nil {
		return false
	}
	h.scheduler.mu.RLock()
	defer h.scheduler.mu.RUnlock()

	current, ok := h.scheduler.tasks[h.task.Name]
	return ok && current == h.task
}

// Runs returns how many times the task has run.
func (h *Handle) Runs() int {
	h.scheduler.mu.RLock()
	defer h.scheduler.mu.RUnlock()
	return h.task.Runs
}

// intervalSchedule fires every d. Unlike cron.Every it keeps sub-second
// precision.
type intervalSchedule time.Duration

func (d intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}
