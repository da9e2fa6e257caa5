package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/jobqueue"
	"github.com/MedusaOnMe/Wifity/internal/upload"
)

// CreateEditJob accepts an image upload plus instruction and enqueues the
// edit asynchronously. The response carries the job identity; completion
// is observed through the jobs endpoint.
func (a *App) CreateEditJob(w http.ResponseWriter, r *http.Request) {
	staged, prompt, ok := a.acceptEditUpload(w, r)
	if !ok {
		return
	}

	jobID, err := a.Queue.Enqueue(r.Context(), jobqueue.Task{
		Kind:    domain.JobKindEdit,
		Prompt:  prompt,
		RawPath: staged.RawPath,
		PNGPath: staged.PNGPath,
	})
	if err != nil {
		if cleanupErr := staged.Cleanup(); cleanupErr != nil {
			a.Logger.Warn().Err(cleanupErr).Msg("handlers: staging cleanup failed")
		}
		a.Logger.Error().Err(err).Msg("handlers: enqueue edit job failed")
		a.error(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	a.json(w, http.StatusAccepted, map[string]string{
		"jobId":   jobID,
		"status":  string(domain.JobStatusPending),
		"message": "Image edit job created. Check its status via /api/jobs/{id}.",
	})
}

// JobStatus reports a job snapshot. The response shape depends on the
// lifecycle phase: terminal jobs expose their result or error, in-flight
// jobs a progress message.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Queue.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, http.StatusNotFound, map[string]string{
				"message": "Job not found",
				"jobId":   jobID,
			})
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	a.json(w, http.StatusOK, jobResponse(job))
}

// EditImage is the legacy synchronous edit endpoint. It enqueues like
// CreateEditJob but holds the connection and polls until the job
// finishes or the wall-clock window runs out.
func (a *App) EditImage(w http.ResponseWriter, r *http.Request) {
	staged, prompt, ok := a.acceptEditUpload(w, r)
	if !ok {
		return
	}

	jobID, err := a.Queue.Enqueue(r.Context(), jobqueue.Task{
		Kind:    domain.JobKindEdit,
		Prompt:  prompt,
		RawPath: staged.RawPath,
		PNGPath: staged.PNGPath,
	})
	if err != nil {
		if cleanupErr := staged.Cleanup(); cleanupErr != nil {
			a.Logger.Warn().Err(cleanupErr).Msg("handlers: staging cleanup failed")
		}
		a.Logger.Error().Err(err).Msg("handlers: enqueue edit job failed")
		a.error(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	deadline := time.Now().Add(a.PollTimeout)
	ticker := time.NewTicker(a.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			// Client gave up; the job keeps running and its result is
			// reachable through the jobs endpoint.
			return
		case <-ticker.C:
		}

		job, err := a.Queue.Status(r.Context(), jobID)
		if err != nil {
			a.error(w, http.StatusInternalServerError, "job was unexpectedly removed from the queue")
			return
		}
		switch job.Status {
		case domain.JobStatusCompleted:
			a.json(w, http.StatusOK, job.Result)
			return
		case domain.JobStatusFailed:
			a.error(w, http.StatusInternalServerError, "image service error: "+job.Error)
			return
		}
		if time.Now().After(deadline) {
			a.json(w, http.StatusGatewayTimeout, map[string]string{
				"message": "Request timed out. Try again with a smaller image or simpler prompt.",
				"jobId":   jobID,
			})
			return
		}
	}
}

// acceptEditUpload runs the shared validation for the edit endpoints:
// credential check, multipart parsing, prompt presence and staging. On
// failure it has already written the response.
func (a *App) acceptEditUpload(w http.ResponseWriter, r *http.Request) (*upload.Staged, string, bool) {
	if err := a.Config.ValidateOpenAIKey(); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: image service credential invalid")
		a.json(w, http.StatusInternalServerError, map[string]any{
			"message":        "server configuration error: " + err.Error(),
			"api_configured": false,
		})
		return nil, "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "no image uploaded")
		return nil, "", false
	}
	defer file.Close()

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return nil, "", false
	}

	staged, err := a.Stager.Stage(file, header.Filename, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, err.Error())
			return nil, "", false
		}
		a.Logger.Error().Err(err).Msg("handlers: staging failed")
		a.error(w, http.StatusInternalServerError, "failed to process image")
		return nil, "", false
	}
	return staged, prompt, true
}

func jobResponse(job *domain.Job) map[string]any {
	out := map[string]any{
		"jobId":  job.ID,
		"status": string(job.Status),
	}
	switch job.Status {
	case domain.JobStatusCompleted:
		out["result"] = job.Result
		out["completed"] = job.Completed
	case domain.JobStatusFailed:
		out["error"] = job.Error
		out["completed"] = job.Completed
	case domain.JobStatusPending:
		out["message"] = "Job is waiting to be processed"
		out["created"] = job.Created
	default:
		out["message"] = "Job is currently processing"
		out["created"] = job.Created
	}
	return out
}
