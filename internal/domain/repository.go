package domain

import (
	"context"
	"time"
)

// ImageRepository persists generated image records.
type ImageRepository interface {
	Create(ctx context.Context, image *Image) error
	GetByID(ctx context.Context, id int64) (*Image, error)
	// List returns all records, newest first.
	List(ctx context.Context) ([]Image, error)
}

// JobRepository tracks asynchronous edit jobs. Get and the slice returned
// by DeleteOlderThan hand out snapshots, never the stored value.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	// DeleteOlderThan removes jobs created before cutoff regardless of
	// state and returns the removed jobs so callers can release any
	// staged files they still own.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]Job, error)
}
