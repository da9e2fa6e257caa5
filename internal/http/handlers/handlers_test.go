package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MedusaOnMe/Wifity/internal/adapter/repo"
	"github.com/MedusaOnMe/Wifity/internal/infra"
	"github.com/MedusaOnMe/Wifity/internal/jobqueue"
	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
	"github.com/MedusaOnMe/Wifity/internal/storage"
	"github.com/MedusaOnMe/Wifity/internal/upload"
)

const testAPIKey = "sk-0123456789abcdef0123"

type stubService struct {
	generate func(ctx context.Context, req openai.GenerateRequest) (string, error)
	combine  func(ctx context.Context, req openai.CombineRequest) (string, error)
	edit     func(ctx context.Context, req openai.EditRequest) (string, error)
}

func (s *stubService) Generate(ctx context.Context, req openai.GenerateRequest) (string, error) {
	if s.generate == nil {
		return "https://img.example.com/generated.png", nil
	}
	return s.generate(ctx, req)
}

func (s *stubService) Combine(ctx context.Context, req openai.CombineRequest) (string, error) {
	if s.combine == nil {
		return "https://img.example.com/combined.png", nil
	}
	return s.combine(ctx, req)
}

func (s *stubService) Edit(ctx context.Context, req openai.EditRequest) (string, error) {
	if s.edit == nil {
		return "https://img.example.com/edited.png", nil
	}
	return s.edit(ctx, req)
}

// newTestApp builds a fully wired App on in-memory repos, a temp upload
// directory and the given stub service for both synchronous calls and
// queue workers. The queue is started and stopped with the test.
func newTestApp(t *testing.T, stub *stubService) (*App, *repo.ImageRepositoryMem) {
	t.Helper()

	cfg := &infra.Config{
		OpenAIAPIKey:   testAPIKey,
		MaxUploadBytes: 10 << 20,
		UploadDir:      t.TempDir(),
	}
	logger := zerolog.Nop()

	store, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	images := repo.NewImageRepositoryMem()
	jobs := repo.NewJobRepositoryMem()

	queue := jobqueue.New(jobqueue.Config{Workers: 2, RetryBase: time.Millisecond}, jobs, images, stub, logger)
	queue.Start()
	t.Cleanup(queue.Close)

	app := NewApp(cfg, logger, images, queue, stub, upload.NewStager(store, cfg.MaxUploadBytes, logger))
	app.PollInterval = 5 * time.Millisecond
	app.PollTimeout = 2 * time.Second
	return app, images
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type filePart struct {
	field, name, contentType string
	data                     []byte
}

// multipartBody assembles a form with the given file parts and fields.
func multipartBody(t *testing.T, files []filePart, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
