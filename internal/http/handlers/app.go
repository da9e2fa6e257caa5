package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/infra"
	"github.com/MedusaOnMe/Wifity/internal/jobqueue"
	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
	"github.com/MedusaOnMe/Wifity/internal/upload"
)

// ImageService is the synchronous slice of the provider client the
// gateway calls directly.
type ImageService interface {
	Generate(ctx context.Context, req openai.GenerateRequest) (string, error)
	Combine(ctx context.Context, req openai.CombineRequest) (string, error)
}

// App wires the HTTP handlers to their collaborators.
type App struct {
	Config *infra.Config
	Logger infra.Logger
	Images domain.ImageRepository
	Queue  *jobqueue.Queue
	Remote ImageService
	Stager *upload.Stager

	// Polling knobs for the legacy synchronous edit endpoint.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewApp builds the handler container with default polling settings.
func NewApp(cfg *infra.Config, logger infra.Logger, images domain.ImageRepository, queue *jobqueue.Queue, remote ImageService, stager *upload.Stager) *App {
	return &App{
		Config:       cfg,
		Logger:       logger,
		Images:       images,
		Queue:        queue,
		Remote:       remote,
		Stager:       stager,
		PollInterval: 2 * time.Second,
		PollTimeout:  5 * time.Minute,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"message": message})
}

// remoteError maps a provider failure onto the response: semantic API
// errors pass their status and payload through, anything else is a 500.
func (a *App) remoteError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		a.json(w, status, map[string]any{
			"message": "image service error",
			"error":   apiErr.Message,
		})
		return
	}
	a.error(w, http.StatusInternalServerError, fallback)
}
