package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MedusaOnMe/Wifity/internal/domain"
)

// ImageRepositoryMem keeps image records in process memory. Records live
// for the lifetime of the process; there is no deletion path.
type ImageRepositoryMem struct {
	mu     sync.RWMutex
	images map[int64]domain.Image
	nextID int64
	now    func() time.Time
}

// NewImageRepositoryMem creates an empty in-memory image repository.
func NewImageRepositoryMem() *ImageRepositoryMem {
	return &ImageRepositoryMem{
		images: make(map[int64]domain.Image),
		nextID: 1,
		now:    time.Now,
	}
}

// Create assigns the next identity and timestamp and stores the record.
func (r *ImageRepositoryMem) Create(ctx context.Context, image *domain.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	image.ID = r.nextID
	r.nextID++
	image.CreatedAt = r.now()
	r.images[image.ID] = *image
	return nil
}

// GetByID returns a record copy or domain.ErrNotFound.
func (r *ImageRepositoryMem) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	image, ok := r.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &image, nil
}

// List returns all records, newest first.
func (r *ImageRepositoryMem) List(ctx context.Context) ([]domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Image, 0, len(r.images))
	for _, image := range r.images {
		out = append(out, image)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ domain.ImageRepository = (*ImageRepositoryMem)(nil)
