// Package segment talks to a background-removal service (rembg's HTTP
// server or API-compatible alternatives) to extract the product foreground
// from a photo.
package segment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"productshot/internal/domain"
	"productshot/internal/imaging"
	"productshot/internal/infra"
)

// Client calls the removal endpoint and normalizes the result into a
// cutout plus alpha mask.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient builds a segmentation client. A nil HTTP client gets a default
// with a generous timeout; model inference on CPU can take a while.
func NewClient(baseURL string, httpClient *http.Client, logger *infra.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Extract removes the background from the photo. It returns the RGBA cutout
// (transparent where background was) and the alpha mask. An all-transparent
// response yields domain.ErrNoForeground.
func (c *Client) Extract(ctx context.Context, img image.Image) (*image.NRGBA, *image.Gray, error) {
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, nil, fmt.Errorf("encode photo: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "photo.png")
	if err != nil {
		return nil, nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(encoded); err != nil {
		return nil, nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/remove", &body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("call segmentation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("segmentation status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	decoded, _, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode cutout: %w", err)
	}
	cutout := imaging.ToNRGBA(decoded)
	mask := imaging.AlphaMask(cutout)
	if imaging.IsEmpty(mask, 8) {
		return nil, nil, domain.ErrNoForeground
	}

	if c.logger != nil {
		c.logger.Debug().
			Dur("elapsed", time.Since(started)).
			Int("width", cutout.Rect.Dx()).
			Int("height", cutout.Rect.Dy()).
			Msg("segment: foreground extracted")
	}
	return cutout, mask, nil
}
