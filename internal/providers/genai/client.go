// Package genai is a lightweight facade over the Gemini generateContent API
// used for two things: generating backdrop images and analyzing a product
// photo into prompt text. Without an API key, or when the remote call fails,
// image generation falls back to a deterministic synthetic backdrop so the
// pipeline stays fully operational in local and CI environments.
package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"productshot/internal/imaging"
	"productshot/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey      string
	BaseURL     string
	ImageModel  string
	VisionModel string
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// Client talks to Gemini over raw HTTP.
type Client struct {
	apiKey      string
	baseURL     string
	imageModel  string
	visionModel string
	httpClient  *http.Client
	logger      *infra.Logger
}

// ImageRequest asks for a single generated image of the given dimensions.
type ImageRequest struct {
	Prompt string
	Width  int
	Height int
	Seed   int64
}

// GeneratedImage is the normalized result of an image generation call.
type GeneratedImage struct {
	Image     image.Image
	MimeType  string
	Synthetic bool
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with a timeout is created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}
	visionModel := opts.VisionModel
	if visionModel == "" {
		visionModel = "gemini-2.5-flash"
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
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		imageModel:  imageModel,
		visionModel: visionModel,
		httpClient:  client,
		logger:      logger,
	}, nil
}

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string { return c.imageModel }

// HasKey reports whether remote calls are possible.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// GenerateImage produces a backdrop image for the prompt. Remote failures
// degrade to a synthetic gradient rather than failing the render job.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (GeneratedImage, error) {
	if err := ctx.Err(); err != nil {
		return GeneratedImage{}, err
	}
	if c.apiKey == "" {
		return c.syntheticImage(req), nil
	}

	img, mime, err := c.remoteGenerateImage(ctx, req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.imageModel).
			Msg("genai: remote image generation failed; falling back to synthetic backdrop")
		return c.syntheticImage(req), nil
	}
	return GeneratedImage{Image: img, MimeType: mime}, nil
}

// AnalyzeImage sends the image with a text instruction to the vision model
// and returns the text answer. Unlike image generation there is no local
// fallback here; the caller decides what to do without a vision answer.
func (c *Client) AnalyzeImage(ctx context.Context, img image.Image, instruction string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: instruction},
				{InlineData: &geminiInlineData{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(encoded)}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0.7, MaxOutputTokens: 400},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.visionModel, payload, &response); err != nil {
		return "", err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text content returned")
}

func (c *Client) remoteGenerateImage(ctx context.Context, req ImageRequest) (image.Image, string, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImageInstruction(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.imageModel, payload, &response); err != nil {
		return nil, "", err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			data, mime, err := c.decodeInlinePart(ctx, part)
			if err != nil || len(data) == 0 {
				continue
			}
			img, _, err := imaging.Decode(bytes.NewReader(data))
			if err != nil {
				continue
			}
			if mime == "" {
				mime = "image/png"
			}
			return img, mime, nil
		}
	}
	return nil, "", fmt.Errorf("no image content returned")
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) decodeInlinePart(ctx context.Context, part geminiPart) ([]byte, string, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, "", fmt.Errorf("decode inline data: %w", err)
		}
		return data, part.InlineData.MimeType, nil
	}
	if part.FileData != nil && part.FileData.FileURI != "" {
		return c.downloadFile(ctx, part.FileData.FileURI, part.FileData.MimeType)
	}
	return nil, "", nil
}

func (c *Client) downloadFile(ctx context.Context, uri, mime string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}
	return blob, mime, nil
}

func buildImageInstruction(req ImageRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = "A clean professional product photography backdrop"
	}
	b.WriteString(prompt)
	if req.Width > 0 && req.Height > 0 {
		fmt.Fprintf(&b, "\nImage dimensions: %dx%d pixels", req.Width, req.Height)
	}
	return b.String()
}

// syntheticImage renders a deterministic vertical gradient keyed on the
// prompt and seed. It stands in for the remote backdrop in keyless runs.
func (c *Client) syntheticImage(req ImageRequest) GeneratedImage {
	width, height := req.Width, req.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	seed := deterministicSeed(req.Prompt, req.Seed)
	top := colorFromSeed(seed, 0)
	bottom := colorFromSeed(seed, 1)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	denom := float64(height - 1)
	if denom < 1 {
		denom = 1
	}
	for y := 0; y < height; y++ {
		t := float64(y) / denom
		row := color.RGBA{
			R: blendChannel(top.R, bottom.R, t),
			G: blendChannel(top.G, bottom.G, t),
			B: blendChannel(top.B, bottom.B, t),
			A: 255,
		}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, row)
		}
	}

	c.logger.Debug().
		Str("seed", seed).
		Int("width", width).
		Int("height", height).
		Msg("genai: generated synthetic backdrop")

	return GeneratedImage{Image: img, MimeType: "image/png", Synthetic: true}
}

func blendChannel(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t + 0.5)
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: parseHexByte(segment[0:2]),
		G: parseHexByte(segment[2:4]),
		B: parseHexByte(segment[4:6]),
		A: 255,
	}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
