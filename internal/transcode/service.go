package transcode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/model"
	"github.com/ytget/phin/internal/platform"
)

// ffprobe and progress constants
const (
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressTimePrefix  = "out_time_us="
	TaskIDPrefix        = "transcode-"
	DefaultPattern      = "*.wav"
)

// ErrNotAFile is returned when the input of a recipe is missing or a directory.
var ErrNotAFile = errors.New("input is not a regular file")

// Service applies recipes with ffmpeg
type Service struct {
	ffmpeg     string
	ffprobe    string
	runner     Runner
	log        *log.Logger
	onUpdate   func(*model.TranscodeTask)
	tasksMutex sync.RWMutex
}

// NewService creates a transcoding service. Empty paths use ffmpeg and
// ffprobe from PATH.
func NewService(ffmpegPath, ffprobePath string) (*Service, error) {
	l, err := common.GetLogger(logdomain.Transcode)
	if err != nil {
		return nil, err
	}

	if ffmpegPath == "" {
		ffmpegPath = platform.FFmpegCommand
	}
	if ffprobePath == "" {
		ffprobePath = platform.FFprobeCommand
	}

	return &Service{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		runner:  execRunner{},
		log:     l,
	}, nil
}

// SetRunner replaces the process runner used for ffmpeg and ffprobe.
func (s *Service) SetRunner(r Runner) {
	s.runner = r
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.TranscodeTask)) {
	s.onUpdate = callback
}

// ProbeDuration returns the duration of a media file in seconds using ffprobe
func (s *Service) ProbeDuration(ctx context.Context, filePath string) (float64, error) {
	args := []string{
		"-v", FFprobeLogLevel,
		"-show_entries", FFprobeShowEntries,
		"-of", FFprobeOutputFormat,
		filePath,
	}

	output, err := s.runner.Output(ctx, s.ffprobe, args)
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe on %s: %w", filePath, err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	return duration, nil
}

// Apply runs recipe on a single file and returns the finished task. The
// error is only set for problems the task cannot describe (bad input,
// cancelled context); ffmpeg failures are reported through the task.
func (s *Service) Apply(ctx context.Context, recipe Recipe, inputPath string, params Params) (*model.TranscodeTask, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAFile, inputPath, err)
	} else if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, inputPath)
	}

	task := &model.TranscodeTask{
		ID:         generateTaskID(),
		Recipe:     recipe.Name,
		InputPath:  inputPath,
		OutputPath: recipe.OutputPath(inputPath),
		Status:     model.TaskStatusPending,
	}

	args, err := recipe.Command(task.InputPath, task.OutputPath, params)
	if err != nil {
		return nil, err
	}

	s.run(ctx, task, recipe, params, args)

	return task, ctx.Err()
}

// run performs the actual ffmpeg invocation
func (s *Service) run(ctx context.Context, task *model.TranscodeTask, recipe Recipe, params Params, args []string) {
	s.tasksMutex.Lock()
	task.Status = model.TaskStatusRunning
	task.StartedAt = time.Now()
	s.tasksMutex.Unlock()
	s.notifyUpdate(task)

	// Progress is reported only when the duration is known.
	duration, err := s.ProbeDuration(ctx, task.InputPath)
	if err != nil {
		s.log.Printf("[DEBUG] No duration for %s, progress unavailable: %s\n",
			task.InputPath, err.Error())
		duration = 0
	}

	s.log.Printf("[DEBUG] %s %s\n", s.ffmpeg, strings.Join(args, " "))

	err = s.runner.Run(ctx, s.ffmpeg, args, func(line string) {
		s.handleProgressLine(task, line, duration)
	})

	if err == nil && ctx.Err() == nil && recipe.Segmented() {
		s.dropShortTail(ctx, task.InputPath, recipe, params)
	}

	s.tasksMutex.Lock()
	if ctx.Err() != nil {
		task.Status = model.TaskStatusStopped
		task.LastError = ctx.Err().Error()
		removeOutputs(task.InputPath, recipe)
	} else if err != nil {
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
		removeOutputs(task.InputPath, recipe)
	} else {
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
	}
	task.FinishedAt = time.Now()
	s.tasksMutex.Unlock()

	switch task.Status {
	case model.TaskStatusCompleted:
		s.log.Printf("[INFO] %s -> %s\n", task.InputPath, task.OutputPath)
	case model.TaskStatusError:
		s.log.Printf("[ERROR] %s failed on %s: %s\n",
			task.Recipe, task.InputPath, task.LastError)
	}

	s.notifyUpdate(task)
}

// Segments returns the segments a segmenting recipe wrote for input, in
// order. ffmpeg numbers them from zero without gaps.
func Segments(input string, recipe Recipe) []string {
	var list []string
	for i := 0; ; i++ {
		p := recipe.SegmentPath(input, i)
		if _, err := os.Stat(p); err != nil {
			return list
		}
		list = append(list, p)
	}
}

// dropShortTail removes the last segment when it is shorter than
// MinSegmentRatio of the segment length. Recordings shorter than that keep
// no segment at all.
func (s *Service) dropShortTail(ctx context.Context, input string, recipe Recipe, params Params) {
	segs := Segments(input, recipe)
	if len(segs) == 0 {
		return
	}

	lengthStr := params.SegmentLength
	if lengthStr == "" {
		lengthStr = DefaultSegmentLength
	}
	length, err := strconv.ParseFloat(lengthStr, 64)
	if err != nil {
		s.log.Printf("[WARN] Segment length %q is not a number, keeping all segments\n", lengthStr)
		return
	}

	last := segs[len(segs)-1]
	d, err := s.ProbeDuration(ctx, last)
	if err != nil {
		s.log.Printf("[WARN] Cannot check length of %s: %s\n", last, err.Error())
		return
	} else if d >= length*MinSegmentRatio {
		return
	}

	s.log.Printf("[DEBUG] Drop short segment %s (%.1fs)\n", last, d)
	if err = os.Remove(last); err != nil {
		s.log.Printf("[ERROR] Cannot remove %s: %s\n", last, err.Error())
	}
}

func removeOutputs(input string, recipe Recipe) {
	if !recipe.Segmented() {
		os.Remove(recipe.OutputPath(input)) // nolint: errcheck
		return
	}
	for _, p := range Segments(input, recipe) {
		os.Remove(p) // nolint: errcheck
	}
}

// ProcessDir applies recipe to every file in dir matching pattern, one at a
// time and in name order. Files that are themselves outputs of a recipe are
// left alone. Per-file failures are recorded in the returned tasks; the
// error is only set when the directory cannot be listed or ctx is done, in
// which case the unprocessed files are returned as stopped tasks.
func (s *Service) ProcessDir(ctx context.Context, dir, pattern string, recipe Recipe, params Params) ([]*model.TranscodeTask, error) {
	if err := recipe.Validate(); err != nil {
		return nil, err
	}

	if pattern == "" {
		pattern = DefaultPattern
	}

	files, err := platform.ListFiles(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", dir, err)
	}

	var inputs []string
	for _, f := range files {
		if !platform.IsAudioFile(f) {
			continue
		} else if isDerived(f, recipe) {
			s.log.Printf("[DEBUG] Skip derived file %s\n", f)
			continue
		}
		inputs = append(inputs, f)
	}

	s.log.Printf("[INFO] Applying %s to %d files in %s\n", recipe.Name, len(inputs), dir)

	tasks := make([]*model.TranscodeTask, 0, len(inputs))
	for i, in := range inputs {
		if ctx.Err() != nil {
			for _, rest := range inputs[i:] {
				tasks = append(tasks, &model.TranscodeTask{
					ID:         generateTaskID(),
					Recipe:     recipe.Name,
					InputPath:  rest,
					OutputPath: recipe.OutputPath(rest),
					Status:     model.TaskStatusStopped,
				})
			}
			return tasks, ctx.Err()
		}

		task, err := s.Apply(ctx, recipe, in, params)
		if task == nil {
			// The input could not even be turned into a task.
			task = &model.TranscodeTask{
				ID:         generateTaskID(),
				Recipe:     recipe.Name,
				InputPath:  in,
				OutputPath: recipe.OutputPath(in),
				Status:     model.TaskStatusError,
				LastError:  err.Error(),
				FinishedAt: time.Now(),
			}
			s.log.Printf("[ERROR] %s: %s\n", in, err.Error())
			if errors.Is(err, ErrMissingParam) {
				tasks = append(tasks, task)
				return tasks, err
			}
		}
		tasks = append(tasks, task)
	}

	return tasks, ctx.Err()
} // func (s *Service) ProcessDir(...)

// Summary counts task outcomes.
type Summary struct {
	Completed int
	Failed    int
	Stopped   int
}

// Summarize counts the outcomes of tasks.
func Summarize(tasks []*model.TranscodeTask) Summary {
	var sum Summary
	for _, t := range tasks {
		switch t.Status {
		case model.TaskStatusCompleted:
			sum.Completed++
		case model.TaskStatusError:
			sum.Failed++
		case model.TaskStatusStopped:
			sum.Stopped++
		}
	}
	return sum
}

// handleProgressLine parses ffmpeg -progress output: out_time_us=123456
func (s *Service) handleProgressLine(task *model.TranscodeTask, line string, totalDuration float64) {
	if totalDuration <= 0 || !strings.HasPrefix(line, ProgressTimePrefix) {
		return
	}

	timeStr := strings.TrimPrefix(line, ProgressTimePrefix)
	timeMicroseconds, err := strconv.ParseInt(timeStr, 10, 64)
	if err != nil {
		return
	}

	progress := float64(timeMicroseconds) / 1000000.0 / totalDuration
	if progress > 1.0 {
		progress = 1.0
	} else if progress < 0 {
		progress = 0
	}

	s.tasksMutex.Lock()
	task.Progress = progress
	task.Percent = int(progress * 100)
	s.tasksMutex.Unlock()

	s.notifyUpdate(task)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.TranscodeTask) {
	if s.onUpdate == nil {
		return
	}

	s.tasksMutex.RLock()
	snapshot := *task
	s.tasksMutex.RUnlock()

	s.onUpdate(&snapshot)
}

// isDerived reports whether path was produced by recipe or any built-in recipe.
func isDerived(path string, recipe Recipe) bool {
	return recipe.IsDerived(path) || IsDerived(path)
}

// generateTaskID generates a unique task ID using UUID v7
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
