package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MedusaOnMe/Wifity/internal/infra"
)

const (
	modelGenerate = "dall-e-3"
	modelEdit     = "gpt-image-1"
	modelCombine  = "gpt-image-1"
)

// combinePrompt is the fixed instruction used by the two-image combine
// capability. The composite scene description lives server-side so the
// result quality does not depend on how the client words the request.
const combinePrompt = "Create a photorealistic composite image that seamlessly combines two distinct characters into one natural scene. The characters should maintain their exact original appearance, facial features, clothing, hairstyles, and all visual characteristics. Place them together in a realistic setting such as standing side by side, sitting on a bench, in a car, at a diner, or another natural environment. The lighting and perspective should be consistent across both characters to create a believable, cohesive scene where both characters look like they naturally belong together while preserving their individual distinctive features completely unchanged."

// Options controls how the client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// Client talks to the OpenAI images API. It exposes the three capability
// profiles the gateway and the job queue need: text-to-image generation,
// text-plus-reference-image editing, and the two-image combine variant.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults. Callers may provide a
// nil HTTP client; one with a generous timeout is created, since edit
// calls routinely take minutes.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		logger:     logger,
	}
}

// GenerateRequest describes a plain text-to-image call.
type GenerateRequest struct {
	Prompt  string
	Size    string
	Quality string
	Style   string
}

// EditRequest describes a text-plus-reference-image call. ImagePath must
// point at a normalized PNG produced by the staging layer.
type EditRequest struct {
	ImagePath string
	Prompt    string
}

// CombineRequest carries the user instruction accompanying a two-image
// combine call. The remote prompt itself is fixed; the instruction is
// kept for the stored record.
type CombineRequest struct {
	Prompt string
}

// Generate performs a synchronous text-to-image call and returns the
// location of the produced image.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	payload := map[string]any{
		"model":  modelGenerate,
		"prompt": req.Prompt,
		"n":      1,
		"size":   req.Size,
	}
	if req.Quality != "" {
		payload["quality"] = req.Quality
	}
	if req.Style != "" {
		payload["style"] = req.Style
	}
	c.logger.Debug().Str("model", modelGenerate).Str("size", req.Size).Msg("openai: generating image")
	return c.postJSON(ctx, "/images/generations", payload)
}

// Edit performs a text-plus-reference-image call against the edits
// endpoint, streaming the staged PNG as multipart form data.
func (c *Client) Edit(ctx context.Context, req EditRequest) (string, error) {
	if c.token == "" {
		return "", &APIError{Status: http.StatusUnauthorized, Message: "API key is missing"}
	}

	f, err := os.Open(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("openai: open staged image: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("model", modelEdit)
	_ = form.WriteField("prompt", req.Prompt)
	_ = form.WriteField("quality", "low")

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="image.png"`)
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("openai: read staged image: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("openai: finish form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug().Str("model", modelEdit).Msg("openai: editing image")
	return c.do(httpReq)
}

// Combine performs the two-image combine variant. It is a generation call
// under the fixed composite prompt.
func (c *Client) Combine(ctx context.Context, req CombineRequest) (string, error) {
	payload := map[string]any{
		"model":   modelCombine,
		"prompt":  combinePrompt,
		"n":       1,
		"quality": "medium",
		"size":    "1024x1024",
	}
	c.logger.Debug().Str("model", modelCombine).Msg("openai: combining images")
	return c.postJSON(ctx, "/images/generations", payload)
}

// Ping verifies the credential against the models listing. Used as a
// startup probe; failures are reported, never fatal.
func (c *Client) Ping(ctx context.Context) error {
	if c.token == "" {
		return &APIError{Status: http.StatusUnauthorized, Message: "API key is missing"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload map[string]any) (string, error) {
	if c.token == "" {
		return "", &APIError{Status: http.StatusUnauthorized, Message: "API key is missing"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", c.decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}
	return extractImage(body)
}

func (c *Client) decodeError(resp *http.Response) error {
	var out struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	code := out.Error.Code
	if code == "" {
		code = out.Error.Type
	}
	return &APIError{Status: resp.StatusCode, Code: code, Message: out.Error.Message}
}
