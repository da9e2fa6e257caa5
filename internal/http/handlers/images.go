package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
	"github.com/MedusaOnMe/Wifity/internal/upload"
)

const maxPromptLength = 4000

type generateRequest struct {
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Style   string `json:"style"`
}

// validate applies the request schema and returns field-level errors.
// Defaults are filled in place.
func (r *generateRequest) validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Prompt) == "" {
		errs["prompt"] = "prompt is required"
	} else if len(r.Prompt) > maxPromptLength {
		errs["prompt"] = "prompt must be at most 4000 characters"
	}
	if r.Size == "" {
		r.Size = string(domain.SizeSquare)
	} else if !domain.ValidSize(r.Size) {
		errs["size"] = "size must be one of 1024x1024, 1024x1792, 1792x1024"
	}
	switch r.Quality {
	case "", "standard", "hd":
	default:
		errs["quality"] = "quality must be standard or hd"
	}
	switch r.Style {
	case "", "vivid", "natural":
	default:
		errs["style"] = "style must be vivid or natural"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// GenerateImage handles the synchronous text-to-image path. No job is
// involved: generation calls return quickly enough to answer in-line.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := req.validate(); errs != nil {
		a.json(w, http.StatusBadRequest, map[string]any{
			"message": "invalid request parameters",
			"errors":  errs,
		})
		return
	}
	if err := a.Config.ValidateOpenAIKey(); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: image service credential invalid")
		a.error(w, http.StatusInternalServerError, "server configuration error: "+err.Error())
		return
	}

	url, err := a.Remote.Generate(r.Context(), openai.GenerateRequest{
		Prompt:  req.Prompt,
		Size:    req.Size,
		Quality: req.Quality,
		Style:   req.Style,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: image generation failed")
		a.remoteError(w, err, "failed to generate image")
		return
	}

	image := &domain.Image{Prompt: req.Prompt, URL: url, Size: domain.ImageSize(req.Size)}
	if err := a.Images.Create(r.Context(), image); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: store image failed")
		a.error(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	a.json(w, http.StatusOK, image)
}

// CombineImages handles the synchronous two-image combine path.
func (a *App) CombineImages(w http.ResponseWriter, r *http.Request) {
	if err := a.Config.ValidateOpenAIKey(); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: image service credential invalid")
		a.error(w, http.StatusInternalServerError, "server configuration error: "+err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 2*a.Config.MaxUploadBytes+1<<20)

	prompt := ""
	var staged []*upload.Staged
	defer func() {
		for _, s := range staged {
			if err := s.Cleanup(); err != nil {
				a.Logger.Warn().Err(err).Msg("handlers: combine staging cleanup failed")
			}
		}
	}()

	for _, field := range []string{"image1", "image2"} {
		file, header, err := r.FormFile(field)
		if err != nil {
			a.error(w, http.StatusBadRequest, "two images are required")
			return
		}
		s, err := a.Stager.Stage(file, header.Filename, header.Header.Get("Content-Type"), header.Size)
		file.Close()
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				a.error(w, http.StatusBadRequest, err.Error())
				return
			}
			a.Logger.Error().Err(err).Msg("handlers: combine staging failed")
			a.error(w, http.StatusInternalServerError, "failed to process image")
			return
		}
		staged = append(staged, s)
	}

	prompt = strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	url, err := a.Remote.Combine(r.Context(), openai.CombineRequest{Prompt: prompt})
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: image combine failed")
		a.remoteError(w, err, "failed to combine images")
		return
	}

	image := &domain.Image{Prompt: prompt, URL: url, Size: domain.SizeSquare}
	if err := a.Images.Create(r.Context(), image); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: store image failed")
		a.error(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	a.json(w, http.StatusOK, image)
}

// ListImages returns all stored records, newest first.
func (a *App) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := a.Images.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list images failed")
		a.error(w, http.StatusInternalServerError, "failed to fetch images")
		return
	}
	if images == nil {
		images = []domain.Image{}
	}
	a.json(w, http.StatusOK, images)
}

// GetImage returns one record by identity.
func (a *App) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid image ID")
		return
	}
	image, err := a.Images.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "image not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: get image failed")
		a.error(w, http.StatusInternalServerError, "failed to fetch image")
		return
	}
	a.json(w, http.StatusOK, image)
}
