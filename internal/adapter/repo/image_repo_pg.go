package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MedusaOnMe/Wifity/internal/domain"
)

// ImageRepositoryPG implements domain.ImageRepository on PostgreSQL. It is
// the optional durability boundary: image records survive a restart while
// the job table stays in memory by design.
type ImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewImageRepositoryPG creates an image repository backed by PostgreSQL.
func NewImageRepositoryPG(pool *pgxpool.Pool) *ImageRepositoryPG {
	return &ImageRepositoryPG{pool: pool}
}

// Create inserts a new image record and fills in its assigned identity
// and creation timestamp.
func (r *ImageRepositoryPG) Create(ctx context.Context, image *domain.Image) error {
	query := `
INSERT INTO images (prompt, url, size, user_id)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at;
`
	row := r.pool.QueryRow(ctx, query, image.Prompt, image.URL, image.Size, image.UserID)
	return row.Scan(&image.ID, &image.CreatedAt)
}

// GetByID fetches an image record by its identifier.
func (r *ImageRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	query := `
SELECT id, prompt, url, size, user_id, created_at
FROM images
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var image domain.Image
	if err := row.Scan(&image.ID, &image.Prompt, &image.URL, &image.Size, &image.UserID, &image.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// List returns all image records, newest first.
func (r *ImageRepositoryPG) List(ctx context.Context) ([]domain.Image, error) {
	query := `
SELECT id, prompt, url, size, user_id, created_at
FROM images
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Image
	for rows.Next() {
		var image domain.Image
		if err := rows.Scan(&image.ID, &image.Prompt, &image.URL, &image.Size, &image.UserID, &image.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, image)
	}
	return out, rows.Err()
}

var _ domain.ImageRepository = (*ImageRepositoryPG)(nil)
