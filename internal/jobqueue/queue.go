package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/infra"
	"github.com/MedusaOnMe/Wifity/internal/media"
	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
)

// Remote is the slice of the provider client the queue executes against.
type Remote interface {
	Generate(ctx context.Context, req openai.GenerateRequest) (string, error)
	Edit(ctx context.Context, req openai.EditRequest) (string, error)
}

// Task is one unit of work submitted to the queue. For edit tasks RawPath
// and PNGPath reference staged files whose ownership transfers to the
// queue on a successful Enqueue.
type Task struct {
	Kind    domain.JobKind
	Prompt  string
	Size    domain.ImageSize
	RawPath string
	PNGPath string
}

// Config tunes queue behavior. Zero values fall back to defaults.
type Config struct {
	Workers       int
	RetryAttempts int
	RetryBase     time.Duration
	Retention     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	return c
}

type queued struct {
	jobID string
	task  Task
}

// Queue runs image jobs against the remote service on a bounded worker
// pool. Submission returns immediately; callers observe progress through
// Status. A periodic sweep removes jobs older than the retention window
// together with their staged files.
type Queue struct {
	cfg    Config
	jobs   domain.JobRepository
	images domain.ImageRepository
	remote Remote
	logger infra.Logger

	tasks  chan queued
	wg     sync.WaitGroup
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// New constructs a queue. Call Start before enqueueing.
func New(cfg Config, jobs domain.JobRepository, images domain.ImageRepository, remote Remote, logger infra.Logger) *Queue {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:    cfg,
		jobs:   jobs,
		images: images,
		remote: remote,
		logger: logger,
		tasks:  make(chan queued, cfg.Workers*4),
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
}

// Start launches the worker pool and the hourly retention sweep.
func (q *Queue) Start() {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	_, _ = q.cron.AddFunc("@hourly", func() { q.Sweep(context.Background()) })
	q.cron.Start()
	q.logger.Info().Int("workers", q.cfg.Workers).Msg("jobqueue: started")
}

// Close stops accepting work, drains in-flight jobs and stops the sweep.
func (q *Queue) Close() {
	q.cron.Stop()
	q.cancel()
	close(q.tasks)
	q.wg.Wait()
	q.logger.Info().Msg("jobqueue: stopped")
}

// Enqueue registers a pending job for the task and hands it to the pool.
// The returned identity is immediately resolvable via Status.
func (q *Queue) Enqueue(ctx context.Context, task Task) (string, error) {
	job := &domain.Job{
		ID:      uuid.NewString(),
		Kind:    task.Kind,
		Status:  domain.JobStatusPending,
		Prompt:  task.Prompt,
		RawPath: task.RawPath,
		PNGPath: task.PNGPath,
		Created: q.now(),
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	select {
	case q.tasks <- queued{jobID: job.ID, task: task}:
	case <-q.ctx.Done():
		return "", errors.New("jobqueue: shutting down")
	}
	return job.ID, nil
}

// Status returns a snapshot of the job or domain.ErrNotFound when the
// identity is unknown or already swept.
func (q *Queue) Status(ctx context.Context, id string) (*domain.Job, error) {
	return q.jobs.Get(ctx, id)
}

// Sweep deletes jobs older than the retention window regardless of state
// and releases their staged files.
func (q *Queue) Sweep(ctx context.Context) {
	cutoff := q.now().Add(-q.cfg.Retention)
	removed, err := q.jobs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		q.logger.Error().Err(err).Msg("jobqueue: sweep failed")
		return
	}
	for i := range removed {
		q.removeStagedFiles(&removed[i])
		q.logger.Info().Str("job_id", removed[i].ID).Str("status", string(removed[i].Status)).Msg("jobqueue: swept old job")
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for item := range q.tasks {
		q.process(item.jobID, item.task)
	}
}

func (q *Queue) process(jobID string, task Task) {
	ctx := q.ctx

	job, err := q.jobs.Get(ctx, jobID)
	if err != nil {
		q.logger.Error().Err(err).Str("job_id", jobID).Msg("jobqueue: job vanished before processing")
		return
	}
	job.Status = domain.JobStatusProcessing
	if err := q.jobs.Update(ctx, job); err != nil {
		q.logger.Error().Err(err).Str("job_id", jobID).Msg("jobqueue: mark processing failed")
	}
	q.logger.Info().Str("job_id", jobID).Str("kind", string(task.Kind)).Msg("jobqueue: processing")

	url, err := q.execute(ctx, jobID, task)
	if err != nil {
		q.fail(ctx, job, err)
		return
	}

	image := &domain.Image{
		Prompt: recordPrompt(task),
		URL:    url,
		Size:   recordSize(task),
	}
	if err := q.images.Create(ctx, image); err != nil {
		q.fail(ctx, job, fmt.Errorf("store image record: %w", err))
		return
	}

	now := q.now()
	job.Status = domain.JobStatusCompleted
	job.Completed = &now
	job.Result = image
	if err := q.jobs.Update(ctx, job); err != nil {
		q.logger.Error().Err(err).Str("job_id", jobID).Msg("jobqueue: mark completed failed")
	}
	q.removeStagedFiles(job)
	q.logger.Info().Str("job_id", jobID).Int64("image_id", image.ID).Msg("jobqueue: completed")
}

// execute runs the remote call for the task's capability under the retry
// policy. Edit tasks verify the staged file's byte signature first: the
// staging layer always produces PNG, so a mismatch is an internal bug and
// fails the job without burning retries.
func (q *Queue) execute(ctx context.Context, jobID string, task Task) (string, error) {
	switch task.Kind {
	case domain.JobKindEdit:
		if err := media.VerifyPNG(task.PNGPath); err != nil {
			return "", err
		}
		return q.withRetry(ctx, jobID, func(ctx context.Context) (string, error) {
			return q.remote.Edit(ctx, openai.EditRequest{ImagePath: task.PNGPath, Prompt: task.Prompt})
		})
	case domain.JobKindGenerate:
		return q.withRetry(ctx, jobID, func(ctx context.Context) (string, error) {
			return q.remote.Generate(ctx, openai.GenerateRequest{Prompt: task.Prompt, Size: string(recordSize(task))})
		})
	default:
		return "", fmt.Errorf("unsupported job kind %q", task.Kind)
	}
}

func (q *Queue) fail(ctx context.Context, job *domain.Job, cause error) {
	msg := cause.Error()
	if msg == "" {
		msg = "unknown error"
	}
	now := q.now()
	job.Status = domain.JobStatusFailed
	job.Completed = &now
	job.Error = msg
	job.Result = nil
	if err := q.jobs.Update(ctx, job); err != nil {
		q.logger.Error().Err(err).Str("job_id", job.ID).Msg("jobqueue: mark failed failed")
	}
	q.removeStagedFiles(job)
	q.logger.Error().Err(cause).Str("job_id", job.ID).Msg("jobqueue: job failed")
}

// removeStagedFiles deletes the job's staged inputs. Cleanup is
// best-effort: failures are logged and a file already gone is fine.
func (q *Queue) removeStagedFiles(job *domain.Job) {
	for _, path := range []string{job.RawPath, job.PNGPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			q.logger.Warn().Err(err).Str("job_id", job.ID).Str("path", path).Msg("jobqueue: staged file cleanup failed")
		}
	}
}

func recordPrompt(task Task) string {
	if task.Kind == domain.JobKindEdit {
		return "Edit: " + task.Prompt
	}
	return task.Prompt
}

func recordSize(task Task) domain.ImageSize {
	if task.Size != "" {
		return task.Size
	}
	return domain.SizeSquare
}
