package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/MedusaOnMe/Wifity/internal/domain"
	"github.com/MedusaOnMe/Wifity/internal/providers/openai"
)

func TestGenerateImageStoresRecord(t *testing.T) {
	var gotReq openai.GenerateRequest
	stub := &stubService{
		generate: func(_ context.Context, req openai.GenerateRequest) (string, error) {
			gotReq = req
			return "https://img.example.com/sunset.png", nil
		},
	}
	app, images := newTestApp(t, stub)

	body := `{"prompt":"a sunset over mountains","size":"1792x1024","quality":"hd"}`
	req := httptest.NewRequest(http.MethodPost, "/api/images/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var img domain.Image
	if err := json.Unmarshal(rec.Body.Bytes(), &img); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if img.URL != "https://img.example.com/sunset.png" {
		t.Errorf("url = %q", img.URL)
	}
	if img.Prompt != "a sunset over mountains" {
		t.Errorf("prompt = %q", img.Prompt)
	}
	if img.Size != domain.SizeWide {
		t.Errorf("size = %q", img.Size)
	}
	if gotReq.Quality != "hd" {
		t.Errorf("remote quality = %q", gotReq.Quality)
	}

	stored, err := images.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != img.ID {
		t.Fatalf("stored records = %+v", stored)
	}
}

func TestGenerateImageValidation(t *testing.T) {
	app, _ := newTestApp(t, &stubService{})

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"missing prompt", `{"size":"1024x1024"}`, "prompt"},
		{"long prompt", `{"prompt":"` + strings.Repeat("a", maxPromptLength+1) + `"}`, "prompt"},
		{"bad size", `{"prompt":"hi","size":"640x480"}`, "size"},
		{"bad quality", `{"prompt":"hi","quality":"ultra"}`, "quality"},
		{"bad style", `{"prompt":"hi","style":"anime"}`, "style"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/images/generate", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			app.GenerateImage(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Errors map[string]string `json:"errors"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if _, ok := resp.Errors[tc.field]; !ok {
				t.Errorf("expected error on %q, got %v", tc.field, resp.Errors)
			}
		})
	}
}

func TestGenerateImageMissingKey(t *testing.T) {
	app, _ := newTestApp(t, &stubService{})
	app.Config.OpenAIAPIKey = ""

	req := httptest.NewRequest(http.MethodPost, "/api/images/generate", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "server configuration error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCombineImagesPassesThroughProviderError(t *testing.T) {
	stub := &stubService{
		combine: func(context.Context, openai.CombineRequest) (string, error) {
			return "", &openai.APIError{Status: http.StatusBadRequest, Code: "content_policy_violation", Message: "content policy violation"}
		},
	}
	app, images := newTestApp(t, stub)

	img := pngBytes(t, 32, 32)
	body, contentType := multipartBody(t,
		[]filePart{
			{field: "image1", name: "a.png", contentType: "image/png", data: img},
			{field: "image2", name: "b.png", contentType: "image/png", data: img},
		},
		map[string]string{"prompt": "merge them"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/combine", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.CombineImages(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "content policy violation") {
		t.Errorf("body = %s", rec.Body.String())
	}
	stored, _ := images.List(context.Background())
	if len(stored) != 0 {
		t.Errorf("no record should be stored on failure, got %d", len(stored))
	}
}

func TestCombineImagesRequiresBothFiles(t *testing.T) {
	app, _ := newTestApp(t, &stubService{})

	body, contentType := multipartBody(t,
		[]filePart{{field: "image1", name: "a.png", contentType: "image/png", data: pngBytes(t, 16, 16)}},
		map[string]string{"prompt": "merge"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/combine", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.CombineImages(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "two images are required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListImagesEmpty(t *testing.T) {
	app, _ := newTestApp(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	rec := httptest.NewRecorder()
	app.ListImages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want empty array", body)
	}
}

func TestGetImage(t *testing.T) {
	app, images := newTestApp(t, &stubService{})
	img := &domain.Image{Prompt: "a cat", URL: "https://img.example.com/cat.png", Size: domain.SizeSquare}
	if err := images.Create(context.Background(), img); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.GetImage(rec, imageRequest(t, "1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var got domain.Image
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Prompt != "a cat" {
			t.Errorf("prompt = %q", got.Prompt)
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.GetImage(rec, imageRequest(t, "42"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.GetImage(rec, imageRequest(t, "abc"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

// imageRequest builds a GET request whose chi route context carries the
// given id parameter.
func imageRequest(t *testing.T, id string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/images/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
