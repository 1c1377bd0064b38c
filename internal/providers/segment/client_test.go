package segment

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"productshot/internal/domain"
)

func cutoutPNG(t *testing.T, withForeground bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if withForeground {
		for y := 2; y < 6; y++ {
			for x := 2; x < 6; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/remove" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(cutoutPNG(t, true))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	cutout, mask, err := client.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if cutout.Rect.Dx() != 8 || cutout.Rect.Dy() != 8 {
		t.Fatalf("unexpected cutout bounds %v", cutout.Rect)
	}
	if mask.Pix[3*mask.Stride+3] != 255 {
		t.Errorf("expected opaque mask inside the product, got %d", mask.Pix[3*mask.Stride+3])
	}
	if mask.Pix[0] != 0 {
		t.Errorf("expected transparent mask at corner, got %d", mask.Pix[0])
	}
}

func TestExtractNoForeground(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(cutoutPNG(t, false))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, _, err := client.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if !errors.Is(err, domain.ErrNoForeground) {
		t.Fatalf("expected ErrNoForeground, got %v", err)
	}
}

func TestExtractServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, _, err := client.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
