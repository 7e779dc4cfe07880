package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/yt-web/internal/artifact"
	"github.com/ytget/yt-web/internal/engine"
	"github.com/ytget/yt-web/internal/logging"
	"github.com/ytget/yt-web/internal/model"
)

// Selection and message constants
const (
	// SelectorSuffix merges the chosen stream with the best audio, falling
	// back to the best single combined stream
	SelectorSuffix = "+bestaudio/best"

	TaskIDPrefix     = "task-"
	TimedOutMessage  = "download timed out"
	CancelledMessage = "download cancelled"
	EmptyMessage     = "download produced no data"
)

// Defaults used when Options leave a field unset
const (
	DefaultMaxParallel   = 2
	DefaultQueueCapacity = 32
)

var (
	ErrURLRequired    = errors.New("url is required")
	ErrFormatRequired = errors.New("format is required")
	ErrQueueFull      = errors.New("fetch queue is full")
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotActive  = errors.New("task is not active")
)

// FetchError is the single opaque fetch failure class
type FetchError struct {
	TaskID  string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures the worker pool
type Options struct {
	MaxParallel   int
	QueueCapacity int           // pending tasks beyond the running ones
	FetchTimeout  time.Duration // zero disables the deadline
	Retention     time.Duration // how long finished tasks stay visible
}

// Stats is a point-in-time view of the pool
type Stats struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// job is a task plus the state only the service sees
type job struct {
	task    *model.FetchTask
	cookies model.CookieMaterial
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// Service handles fetch operations
type Service struct {
	tasks       map[string]*job
	queue       []string // pending task ids, FIFO
	tasksMutex  sync.RWMutex
	opts        Options
	activeCount int
	fetcher     Fetcher
	store       *artifact.Store
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a fetch service writing artifacts into store
func NewService(fetcher Fetcher, store *artifact.Store, opts Options, logger *slog.Logger) *Service {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.QueueCapacity < 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	return &Service{
		tasks:   make(map[string]*job),
		opts:    opts,
		fetcher: fetcher,
		store:   store,
		logger:  logging.Ensure(logger).With("component", "download"),
		now:     time.Now,
	}
}

// Selector returns the yt-dlp selection expression for formatID
func Selector(formatID string) string {
	return formatID + SelectorSuffix
}

// Fetch submits req and blocks until the artifact is ready or the fetch
// failed. Cancelling ctx stops the task.
func (s *Service) Fetch(ctx context.Context, req model.FetchRequest) (model.ArtifactToken, error) {
	j, err := s.submit(req)
	if err != nil {
		return "", err
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		if stopErr := s.StopTask(j.id()); stopErr != nil && !errors.Is(stopErr, ErrTaskNotActive) {
			s.logger.Warn("failed to stop abandoned task", "task_id", j.id(), "error", stopErr)
		}
		return "", ctx.Err()
	}

	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	if j.task.Status != model.TaskStatusCompleted {
		return "", &FetchError{TaskID: j.task.ID, Message: j.task.LastError, Err: j.err}
	}
	return j.task.Token, nil
}

// Submit queues req and returns a snapshot of the new task
func (s *Service) Submit(req model.FetchRequest) (*model.FetchTask, error) {
	j, err := s.submit(req)
	if err != nil {
		return nil, err
	}
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	snapshot := *j.task
	return &snapshot, nil
}

func (s *Service) submit(req model.FetchRequest) (*job, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.FormatID = strings.TrimSpace(req.FormatID)
	if req.URL == "" {
		return nil, ErrURLRequired
	}
	if err := model.ValidateVideoURL(req.URL); err != nil {
		return nil, err
	}
	if req.FormatID == "" {
		return nil, ErrFormatRequired
	}

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if s.activeCount >= s.opts.MaxParallel && len(s.queue) >= s.opts.QueueCapacity {
		return nil, ErrQueueFull
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		task: &model.FetchTask{
			ID:        generateTaskID(),
			URL:       req.URL,
			FormatID:  req.FormatID,
			Status:    model.TaskStatusPending,
			CreatedAt: s.now(),
		},
		cookies: req.Cookies,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.tasks[j.task.ID] = j
	s.queue = append(s.queue, j.task.ID)
	s.logger.Info("task queued",
		"task_id", j.task.ID,
		"url", req.URL,
		"format_id", req.FormatID,
		"cookies", req.Cookies.String())

	s.startPendingLocked()
	return j, nil
}

// Wait blocks until task id finishes or ctx is done
func (s *Service) Wait(ctx context.Context, id string) (*model.FetchTask, error) {
	s.tasksMutex.RLock()
	j, exists := s.tasks[id]
	s.tasksMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	snapshot := *j.task
	return &snapshot, nil
}

// GetTask returns a snapshot of a task by ID
func (s *Service) GetTask(id string) (*model.FetchTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	j, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	snapshot := *j.task
	return &snapshot, true
}

// GetAllTasks returns snapshots of all tasks, oldest first
func (s *Service) GetAllTasks() []*model.FetchTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.FetchTask, 0, len(s.tasks))
	for _, j := range s.tasks {
		snapshot := *j.task
		tasks = append(tasks, &snapshot)
	}
	sort.Slice(tasks, func(a, b int) bool {
		return tasks[a].CreatedAt.Before(tasks[b].CreatedAt)
	})
	return tasks
}

// StopTask cancels a pending or running task
func (s *Service) StopTask(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	j, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	switch {
	case j.task.Status == model.TaskStatusPending:
		s.dequeueLocked(id)
		j.cancel()
		s.finishLocked(j, model.TaskStatusStopped, context.Canceled)
	case j.task.Status.IsActive():
		// the worker observes the cancel and records the final status
		j.task.Status = model.TaskStatusStopping
		j.cancel()
	default:
		return fmt.Errorf("%w: %s", ErrTaskNotActive, j.task.Status)
	}

	s.logger.Info("task stop requested", "task_id", id)
	return nil
}

// RemoveTask forgets a task, stopping it first if needed. An artifact that
// was never served is discarded with it.
func (s *Service) RemoveTask(id string) error {
	if err := s.StopTask(id); err != nil && !errors.Is(err, ErrTaskNotActive) {
		return err
	}

	s.tasksMutex.Lock()
	j, exists := s.tasks[id]
	if exists {
		delete(s.tasks, id)
	}
	s.tasksMutex.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	// a running task discards its own artifact once the tool returns
	s.tasksMutex.RLock()
	token := j.task.Token
	completed := j.task.Status == model.TaskStatusCompleted
	s.tasksMutex.RUnlock()
	if completed && token != "" {
		s.store.Discard(token)
	}
	return nil
}

// Stats reports running and queued task counts
func (s *Service) Stats() Stats {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	return Stats{Active: s.activeCount, Pending: len(s.queue), Total: len(s.tasks)}
}

// Prune forgets finished tasks older than the retention period
func (s *Service) Prune() int {
	if s.opts.Retention <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.opts.Retention)

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	pruned := 0
	for id, j := range s.tasks {
		if j.task.Status.IsFinished() && j.task.FinishedAt.Before(cutoff) {
			delete(s.tasks, id)
			pruned++
		}
	}
	return pruned
}

// RunPruner calls Prune every interval until ctx is done
func (s *Service) RunPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				s.logger.Debug("pruned finished tasks", "count", n)
			}
		}
	}
}

// startPendingLocked starts queued tasks while there is capacity
func (s *Service) startPendingLocked() {
	for s.activeCount < s.opts.MaxParallel && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]

		j, exists := s.tasks[id]
		if !exists || j.task.Status != model.TaskStatusPending {
			continue
		}

		s.activeCount++
		j.task.Status = model.TaskStatusStarting
		j.task.StartedAt = s.now()
		go s.startTask(j)
	}
}

// startTask runs one task on a worker slot
func (s *Service) startTask(j *job) {
	defer func() {
		s.tasksMutex.Lock()
		s.activeCount--
		s.startPendingLocked()
		s.tasksMutex.Unlock()
	}()

	ctx := j.ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	token, path, err := s.store.Reserve()
	if err != nil {
		s.tasksMutex.Lock()
		s.finishLocked(j, model.TaskStatusError, err)
		s.tasksMutex.Unlock()
		return
	}

	s.tasksMutex.Lock()
	if j.task.Status == model.TaskStatusStarting {
		j.task.Status = model.TaskStatusDownloading
	}
	url, formatID := j.task.URL, j.task.FormatID
	s.tasksMutex.Unlock()

	err = s.fetcher.Download(ctx, engine.DownloadOptions{
		URL:         url,
		Selector:    Selector(formatID),
		Output:      path,
		MergeFormat: s.store.Container(),
		Cookies:     j.cookies,
	})
	if err == nil {
		err = s.commit(token)
	}

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	switch {
	case err == nil:
		// the token is published only once the artifact is servable
		j.task.Token = token
		s.finishLocked(j, model.TaskStatusCompleted, nil)
		s.logger.Info("fetch completed", "task_id", j.task.ID, "video_id", token, "elapsed", j.task.Elapsed(s.now()))
		if _, tracked := s.tasks[j.task.ID]; !tracked {
			// removed while running, nobody can retrieve it
			s.store.Discard(token)
		}
		return
	case j.ctx.Err() != nil:
		s.finishLocked(j, model.TaskStatusStopped, errors.Join(err, context.Canceled))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.finishLocked(j, model.TaskStatusError, errors.Join(err, context.DeadlineExceeded))
	default:
		s.finishLocked(j, model.TaskStatusError, err)
	}

	s.store.Discard(token)
	s.logger.Warn("fetch failed",
		"task_id", j.task.ID,
		"url", url,
		"format_id", formatID,
		"status", j.task.Status,
		"error", j.task.LastError,
		"elapsed", j.task.Elapsed(s.now()))
}

// commit checks the tool left a non-empty file at the reserved path and
// makes it servable
func (s *Service) commit(token model.ArtifactToken) error {
	_, err := s.store.Commit(token)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, artifact.ErrEmpty):
		return errors.New(EmptyMessage)
	default:
		return fmt.Errorf("artifact missing after download: %w", err)
	}
}

// finishLocked records a terminal status and wakes waiters
func (s *Service) finishLocked(j *job, status model.TaskStatus, err error) {
	j.task.Status = status
	j.task.FinishedAt = s.now()
	j.err = err
	if err != nil {
		j.task.LastError = failureMessage(err)
	}
	j.cancel()
	close(j.done)
}

// dequeueLocked drops id from the pending queue
func (s *Service) dequeueLocked(id string) {
	for i, queued := range s.queue {
		if queued == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// id is immutable after submit
func (j *job) id() string {
	return j.task.ID
}

// failureMessage maps a failure to the message reported to clients
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return CancelledMessage
	case errors.Is(err, context.DeadlineExceeded):
		return TimedOutMessage
	}
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		return engineErr.Error()
	}
	return err.Error()
}

// generateTaskID generates a unique task ID
func generateTaskID() string {
	return TaskIDPrefix + uuid.NewString()
}
