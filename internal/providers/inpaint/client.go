// Package inpaint talks to a diffusion inpainting service. The service
// repaints the white region of the mask from the prompt while leaving the
// black (product) region untouched.
package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"productshot/internal/imaging"
	"productshot/internal/infra"
)

// Diffusion models want dimensions that are multiples of this.
const dimensionStep = 64

// Params are the generation knobs forwarded to the service.
type Params struct {
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Seed           int64
}

// Client calls the inpainting endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient builds an inpainting client. Diffusion runs are slow, so the
// default timeout is long.
func NewClient(baseURL string, httpClient *http.Client, logger *infra.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type inpaintRequest struct {
	Image          string  `json:"image"`
	Mask           string  `json:"mask"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps,omitempty"`
	GuidanceScale  float64 `json:"guidance_scale,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
}

type inpaintResponse struct {
	Image string `json:"image"`
	Error string `json:"error,omitempty"`
}

// Inpaint repaints the masked region of img per the prompt. Dimensions are
// snapped down to multiples of 64 for the model and the result is resized
// back to the source dimensions.
func (c *Client) Inpaint(ctx context.Context, img image.Image, mask *image.Gray, params Params) (image.Image, error) {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	genW, genH := snapDimension(srcW), snapDimension(srcH)

	workImg := imaging.Scale(img, genW, genH)
	workMask := imaging.ToGray(imaging.Scale(mask, genW, genH))

	imgPNG, err := imaging.EncodePNG(workImg)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	maskPNG, err := imaging.EncodePNG(workMask)
	if err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}

	payload := inpaintRequest{
		Image:          base64.StdEncoding.EncodeToString(imgPNG),
		Mask:           base64.StdEncoding.EncodeToString(maskPNG),
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		Width:          genW,
		Height:         genH,
		Steps:          params.Steps,
		GuidanceScale:  params.GuidanceScale,
		Seed:           params.Seed,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inpaint", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call inpainting service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inpainting status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out inpaintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("inpainting failed: %s", out.Error)
	}
	raw, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, fmt.Errorf("decode result image: %w", err)
	}
	result, _, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Dur("elapsed", time.Since(started)).
			Int("gen_width", genW).
			Int("gen_height", genH).
			Msg("inpaint: region repainted")
	}
	if rb := result.Bounds(); rb.Dx() != srcW || rb.Dy() != srcH {
		result = imaging.Scale(result, srcW, srcH)
	}
	return result, nil
}

func snapDimension(v int) int {
	snapped := (v / dimensionStep) * dimensionStep
	if snapped < dimensionStep {
		snapped = dimensionStep
	}
	return snapped
}
