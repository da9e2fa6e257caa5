package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/infra"
	"github.com/MedusaOnMe/Wifity/internal/media"
	"github.com/MedusaOnMe/Wifity/internal/storage"
)

// maxDimension bounds the normalized image. The remote edit API charges by
// payload and slows down sharply above this, so everything is fitted into
// a 512x512 square before upload.
const maxDimension = 512

const sniffLen = 512

// Stager validates incoming image uploads and normalizes them into the
// PNG-with-alpha form the remote edit capability requires. A successful
// Stage writes exactly two files into the scratch store: the raw original
// and the normalized derivative. Ownership of both transfers to the
// caller via the returned Staged handle.
type Stager struct {
	store    *storage.FileStore
	maxBytes int64
	logger   infra.Logger
}

// NewStager creates a Stager writing into the given scratch store.
func NewStager(store *storage.FileStore, maxBytes int64, logger infra.Logger) *Stager {
	return &Stager{store: store, maxBytes: maxBytes, logger: logger}
}

// Staged references the two files produced for one upload.
type Staged struct {
	RawPath string
	PNGPath string
}

// Cleanup removes both staged files. It tolerates being called more than
// once; files already gone are not an error.
func (s *Staged) Cleanup() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, path := range []string{s.RawPath, s.PNGPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stage validates one upload and produces its normalized PNG derivative.
// Validation failures wrap domain.ErrInvalidInput and leave no files
// behind.
func (s *Stager) Stage(src io.Reader, filename, contentType string, size int64) (*Staged, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: no image uploaded", domain.ErrInvalidInput)
	}
	if size > s.maxBytes {
		return nil, fmt.Errorf("%w: image exceeds %d MiB limit", domain.ErrInvalidInput, s.maxBytes>>20)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, fmt.Errorf("%w: only image files are allowed", domain.ErrInvalidInput)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	kind, err := media.Detect(head)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not a recognized image", domain.ErrInvalidInput)
	}

	key := stagingKey(filename)
	rawPath, err := s.store.Write(context.Background(), key, io.LimitReader(io.MultiReader(bytes.NewReader(head), src), s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if info, err := os.Stat(rawPath); err == nil && info.Size() > s.maxBytes {
		_ = os.Remove(rawPath)
		return nil, fmt.Errorf("%w: image exceeds %d MiB limit", domain.ErrInvalidInput, s.maxBytes>>20)
	}

	pngPath, err := s.normalize(rawPath)
	if err != nil {
		_ = os.Remove(rawPath)
		return nil, err
	}

	s.logger.Debug().
		Str("kind", string(kind)).
		Str("raw", rawPath).
		Str("png", pngPath).
		Msg("upload: staged image")

	return &Staged{RawPath: rawPath, PNGPath: pngPath}, nil
}

// normalize re-encodes the raw upload as a dimension-bounded PNG. The
// NRGBA pixel format imaging works in carries the alpha channel the
// remote edit API expects.
func (s *Stager) normalize(rawPath string) (string, error) {
	img, err := imaging.Open(rawPath)
	if err != nil {
		return "", fmt.Errorf("%w: image could not be decoded", domain.ErrInvalidInput)
	}
	fitted := imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	pngPath := rawPath + ".png"
	if err := imaging.Save(fitted, pngPath); err != nil {
		_ = os.Remove(pngPath)
		return "", fmt.Errorf("normalize upload: %w", err)
	}
	if info, err := os.Stat(pngPath); err != nil || info.Size() == 0 {
		_ = os.Remove(pngPath)
		return "", errors.New("normalize upload: produced an empty PNG")
	}
	return pngPath, nil
}

func stagingKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == ".png" {
		// Keep the raw and derivative names distinct.
		ext = ".orig.png"
	}
	return uuid.NewString() + ext
}
