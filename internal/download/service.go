package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytget/phin/internal/catalog"
	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/model"
	"github.com/ytget/phin/internal/platform"
)

// Fetch constants
const (
	TaskIDPrefix        = "fetch-"
	DefaultRetryBackoff = 2 * time.Second
)

// ErrNoOutputRoot is returned when the service is created without an output root.
var ErrNoOutputRoot = errors.New("output root is not set")

// Options configures a fetch run
type Options struct {
	OutputRoot   string
	Delay        time.Duration
	AudioFormat  string
	AudioQuality string
	SkipExisting bool
	Retries      int
	Thumbnails   bool
	InfoJSON     bool
}

// Service runs the catalog through the downloader, one entry at a time
type Service struct {
	downloader Downloader
	opts       Options
	log        *log.Logger
	recorders  []Recorder
	onUpdate   func(*model.FetchTask) // callback for progress output
	sleep      func(context.Context, time.Duration) error
	backoff    time.Duration
	tasksMutex sync.RWMutex
}

// NewService creates a new fetch service
func NewService(d Downloader, opts Options) (*Service, error) {
	if opts.OutputRoot == "" {
		return nil, ErrNoOutputRoot
	}

	l, err := common.GetLogger(logdomain.Fetch)
	if err != nil {
		return nil, err
	}

	return &Service{
		downloader: d,
		opts:       opts,
		log:        l,
		sleep:      sleepContext,
		backoff:    DefaultRetryBackoff,
	}, nil
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.FetchTask)) {
	s.onUpdate = callback
}

// AddRecorder registers a recorder that is told about every task outcome
func (s *Service) AddRecorder(r Recorder) {
	s.recorders = append(s.recorders, r)
}

// Run downloads every entry of the catalog in order. A failing entry is
// recorded and the loop moves on; the returned error is only non-nil when
// the catalog is invalid, the output root cannot be created, or ctx was
// cancelled. The report is returned in the latter case as well.
func (s *Service) Run(ctx context.Context, cat *catalog.Catalog) (*model.Report, error) {
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	if err := platform.CreateDirectoryIfNotExists(s.opts.OutputRoot); err != nil {
		return nil, fmt.Errorf("failed to create output root %s: %w", s.opts.OutputRoot, err)
	}

	report := &model.Report{
		RunID:      generateRunID(),
		OutputRoot: s.opts.OutputRoot,
		StartedAt:  time.Now(),
	}
	for _, entry := range cat.Entries() {
		report.Tasks = append(report.Tasks, &model.FetchTask{
			ID:         generateTaskID(),
			Entry:      entry,
			Status:     model.TaskStatusPending,
			ETASec:     -1,
			OutputPath: catalog.OutputPath(s.opts.OutputRoot, entry, s.opts.AudioFormat),
		})
	}

	s.log.Printf("[INFO] Run %s: %d entries to %s (delay %s)\n",
		report.RunID, report.Planned(), s.opts.OutputRoot, s.opts.Delay)

	for _, r := range s.recorders {
		if err := r.BeginRun(ctx, report); err != nil {
			s.log.Printf("[ERROR] Cannot record start of run %s: %s\n",
				report.RunID, err.Error())
		}
	}

	var (
		invoked bool
		runErr  error
	)

	for i, task := range report.Tasks {
		if err := ctx.Err(); err != nil {
			runErr = err
			s.stopRemaining(ctx, report, i)
			break
		}

		if s.opts.SkipExisting && s.skipIfExists(task) {
			s.record(ctx, report.RunID, task)
			continue
		}

		if invoked {
			if err := s.sleep(ctx, s.opts.Delay); err != nil {
				runErr = err
				s.stopRemaining(ctx, report, i)
				break
			}
		}
		invoked = true

		s.fetchOne(ctx, task)
		s.record(ctx, report.RunID, task)
	}

	if runErr == nil {
		runErr = ctx.Err()
	}

	report.FinishedAt = time.Now()
	s.log.Printf("[INFO] Run %s finished: %d completed, %d skipped, %d failed of %d\n",
		report.RunID, report.Succeeded(), report.Skipped(), report.Failed(), report.Planned())

	// The run is over; record its end even if ctx is already cancelled.
	finishCtx := context.WithoutCancel(ctx)
	for _, r := range s.recorders {
		if err := r.FinishRun(finishCtx, report); err != nil {
			s.log.Printf("[ERROR] Cannot record end of run %s: %s\n",
				report.RunID, err.Error())
		}
	}

	return report, runErr
} // func (s *Service) Run(ctx context.Context, cat *catalog.Catalog) (*model.Report, error)

// skipIfExists marks the task skipped when its output is already present.
func (s *Service) skipIfExists(task *model.FetchTask) bool {
	exists, err := platform.FileExists(task.OutputPath)
	if err != nil {
		s.log.Printf("[WARN] Cannot check %s: %s\n", task.OutputPath, err.Error())
		return false
	} else if !exists {
		return false
	}

	s.tasksMutex.Lock()
	task.Status = model.TaskStatusSkipped
	task.FileSize = platform.FileSize(task.OutputPath)
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	s.log.Printf("[INFO] Skip %s -- %s exists\n", task.Entry.ID, task.OutputPath)
	s.notifyUpdate(task)
	return true
}

// fetchOne runs the downloader for a single task and stores the outcome.
func (s *Service) fetchOne(ctx context.Context, task *model.FetchTask) {
	dir := filepath.Join(s.opts.OutputRoot, string(task.Entry.Category))
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		s.setTaskError(task, fmt.Errorf("failed to create %s: %w", dir, err))
		return
	}

	s.tasksMutex.Lock()
	task.Status = model.TaskStatusRunning
	task.StartedAt = time.Now()
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	req := Request{
		Entry:        task.Entry,
		OutputStem:   catalog.OutputStem(s.opts.OutputRoot, task.Entry),
		AudioFormat:  s.opts.AudioFormat,
		AudioQuality: s.opts.AudioQuality,
		Overwrite:    !s.opts.SkipExisting,
		Thumbnail:    s.opts.Thumbnails,
		InfoJSON:     s.opts.InfoJSON,
		Progress: func(p Progress) {
			s.updateTaskProgress(task, p)
		},
	}

	err := s.downloadWithRetry(ctx, req, task)

	s.tasksMutex.Lock()
	if err != nil {
		if ctx.Err() != nil {
			task.Status = model.TaskStatusStopped
		} else {
			task.Status = model.TaskStatusError
		}
		task.LastError = err.Error()
	} else {
		task.Status = model.TaskStatusCompleted
		task.Percent = 100
		if found, ferr := platform.FindFileWithFallback(task.OutputPath); ferr == nil {
			task.OutputPath = found
		}
		task.FileSize = platform.FileSize(task.OutputPath)
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	if err != nil {
		s.log.Printf("[ERROR] %s (%s) failed: %s\n",
			task.Entry.ID, task.Entry.Title, err.Error())
	} else {
		s.log.Printf("[INFO] %s -> %s (%s)\n",
			task.Entry.ID, task.OutputPath, platform.FormatSize(task.FileSize))
	}

	s.notifyUpdate(task)
}

// downloadWithRetry attempts download with retry logic
func (s *Service) downloadWithRetry(ctx context.Context, req Request, task *model.FetchTask) error {
	var lastErr error

	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoff); err != nil {
				return err
			}
			s.log.Printf("[INFO] Retrying %s, attempt %d\n", task.Entry.ID, attempt+1)
		}

		s.tasksMutex.Lock()
		task.Attempts++
		s.tasksMutex.Unlock()

		err := s.downloader.Download(ctx, req)
		if err == nil {
			return nil
		}

		lastErr = err
		s.log.Printf("[WARN] Download attempt %d failed for %s: %s\n",
			attempt+1, task.Entry.ID, err.Error())

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return lastErr
}

// updateTaskProgress updates task progress from downloader output
func (s *Service) updateTaskProgress(task *model.FetchTask, p Progress) {
	s.tasksMutex.Lock()
	task.Percent = p.Percent
	if p.Speed != "" {
		task.Speed = p.Speed
	}
	task.ETASec = p.ETASec
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
}

// stopRemaining marks the tasks from index i on as stopped.
func (s *Service) stopRemaining(ctx context.Context, report *model.Report, i int) {
	s.log.Printf("[WARN] Run %s cancelled, %d entries not processed\n",
		report.RunID, len(report.Tasks)-i)

	for _, task := range report.Tasks[i:] {
		s.tasksMutex.Lock()
		task.Status = model.TaskStatusStopped
		s.tasksMutex.Unlock()
		s.record(context.WithoutCancel(ctx), report.RunID, task)
	}
}

func (s *Service) setTaskError(task *model.FetchTask, err error) {
	s.tasksMutex.Lock()
	task.Status = model.TaskStatusError
	task.LastError = err.Error()
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	s.log.Printf("[ERROR] %s: %s\n", task.Entry.ID, err.Error())
	s.notifyUpdate(task)
}

func (s *Service) record(ctx context.Context, runID string, task *model.FetchTask) {
	s.tasksMutex.RLock()
	snapshot := *task
	s.tasksMutex.RUnlock()

	for _, r := range s.recorders {
		if err := r.RecordTask(ctx, runID, &snapshot); err != nil {
			s.log.Printf("[ERROR] Cannot record task %s: %s\n",
				task.ID, err.Error())
		}
	}
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.FetchTask) {
	if s.onUpdate == nil {
		return
	}

	s.tasksMutex.RLock()
	snapshot := *task
	s.tasksMutex.RUnlock()

	s.onUpdate(&snapshot)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// generateRunID generates a time-ordered run ID
func generateRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// generateTaskID generates a unique task ID using UUID v7
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
