package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestInpaintSnapsDimensions(t *testing.T) {
	var got inpaintRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inpaint" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		result := image.NewRGBA(image.Rect(0, 0, got.Width, got.Height))
		json.NewEncoder(w).Encode(inpaintResponse{Image: encodePNG(t, result)})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	src := image.NewRGBA(image.Rect(0, 0, 300, 200))
	mask := image.NewGray(image.Rect(0, 0, 300, 200))

	out, err := client.Inpaint(context.Background(), src, mask, Params{
		Prompt: "studio scene", Steps: 30, GuidanceScale: 4.0, Seed: 7,
	})
	if err != nil {
		t.Fatalf("Inpaint: %v", err)
	}
	if got.Width != 256 || got.Height != 192 {
		t.Errorf("expected snapped 256x192, got %dx%d", got.Width, got.Height)
	}
	if got.Prompt != "studio scene" || got.Steps != 30 || got.Seed != 7 {
		t.Errorf("params not forwarded: %+v", got)
	}
	if b := out.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("result not resized back, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestInpaintServiceErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inpaintResponse{Error: "out of memory"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, err := client.Inpaint(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 64)), image.NewGray(image.Rect(0, 0, 64, 64)), Params{})
	if err == nil {
		t.Fatal("expected error from error body")
	}
}

func TestSnapDimension(t *testing.T) {
	cases := map[int]int{64: 64, 100: 64, 128: 128, 1000: 960, 10: 64}
	for in, want := range cases {
		if got := snapDimension(in); got != want {
			t.Errorf("snapDimension(%d) = %d, want %d", in, got, want)
		}
	}
}
