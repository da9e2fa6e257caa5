package repo

import (
	"context"
	"sync"
	"time"

	"github.com/MedusaOnMe/Wifity/internal/domain"
)

// JobRepositoryMem is the in-memory job table. All accessors copy job
// values so callers never share state with the stored entry.
type JobRepositoryMem struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// NewJobRepositoryMem creates an empty in-memory job repository.
func NewJobRepositoryMem() *JobRepositoryMem {
	return &JobRepositoryMem{jobs: make(map[string]domain.Job)}
}

// Create stores a new job keyed by its identity.
func (r *JobRepositoryMem) Create(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

// Get returns a snapshot of the job or domain.ErrNotFound.
func (r *JobRepositoryMem) Get(ctx context.Context, id string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// Update overwrites the stored job. Updating a swept job is a no-op
// rather than an error: the retention sweep acts on age alone and may
// race a worker writing its terminal state.
func (r *JobRepositoryMem) Update(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return nil
	}
	r.jobs[job.ID] = *job
	return nil
}

// DeleteOlderThan removes jobs created before cutoff and returns them.
func (r *JobRepositoryMem) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.Job
	for id, job := range r.jobs {
		if job.Created.Before(cutoff) {
			removed = append(removed, job)
			delete(r.jobs, id)
		}
	}
	return removed, nil
}

var _ domain.JobRepository = (*JobRepositoryMem)(nil)
