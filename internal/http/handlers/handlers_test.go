package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"productshot/internal/domain"
	"productshot/internal/infra"
	"productshot/internal/prompt"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	urls  map[string]string
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte), urls: make(map[string]string)}
}

func (m *memStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *memStore) DownloadURL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.urls[key], nil
}

const testPresetYAML = `
presets:
  studio:
    description: Clean studio backdrop
    prompt: professional studio lighting, seamless backdrop
`

func newTestApp(t *testing.T) (*App, *stubDB, *memStore) {
	t.Helper()
	db := newStubDB()
	store := newMemStore()
	presets, err := prompt.ParsePresets([]byte(testPresetYAML))
	if err != nil {
		t.Fatalf("parse presets: %v", err)
	}
	cfg := &infra.Config{
		MaxImageDimension: 2048,
		DefaultLocale:     "en",
	}
	return NewApp(db, store, presets, zerolog.Nop(), cfg), db, store
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 60, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthReportsQueueDepth(t *testing.T) {
	app, db, _ := newTestApp(t)
	db.addJob(domain.JobStatusQueued, domain.ModeComposite, `{}`)
	db.addJob(domain.JobStatusQueued, domain.ModeInpaint, `{}`)
	db.addJob(domain.JobStatusSucceeded, domain.ModeComposite, `{}`)

	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	queue, ok := body["queue"].(map[string]any)
	if !ok {
		t.Fatalf("expected queue map, got %T", body["queue"])
	}
	if queue["QUEUED"] != float64(2) {
		t.Fatalf("expected 2 queued jobs, got %v", queue["QUEUED"])
	}
}

func TestListPresets(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.ListPresets(rec, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	items, ok := body["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 preset, got %v", body["items"])
	}
	first := items[0].(map[string]any)
	if first["name"] != "studio" {
		t.Fatalf("expected studio preset, got %v", first["name"])
	}
}

func TestUploadImageStoresSourceAsset(t *testing.T) {
	app, db, store := newTestApp(t)

	rec := httptest.NewRecorder()
	app.UploadImage(rec, multipartUpload(t, "shoe.png", pngBytes(t, 40, 30)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	assetID, _ := body["asset_id"].(string)
	if assetID == "" {
		t.Fatal("expected asset_id in response")
	}
	if body["width"] != float64(40) || body["height"] != float64(30) {
		t.Fatalf("unexpected dimensions: %v x %v", body["width"], body["height"])
	}

	asset, ok := db.assets[assetID]
	if !ok {
		t.Fatal("asset row not recorded")
	}
	if asset.Kind != domain.AssetKindSource {
		t.Fatalf("expected SOURCE kind, got %s", asset.Kind)
	}
	if !strings.HasPrefix(asset.StorageKey, "uploads/") {
		t.Fatalf("unexpected storage key %q", asset.StorageKey)
	}
	if !strings.Contains(string(asset.Properties), `"original_filename":"shoe.png"`) {
		t.Fatalf("expected original filename in properties, got %s", asset.Properties)
	}
	if _, err := store.Read(context.Background(), asset.StorageKey); err != nil {
		t.Fatalf("stored bytes missing: %v", err)
	}
}

func TestUploadImageRejectsMissingFile(t *testing.T) {
	app, _, _ := newTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	app.UploadImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadImageRejectsGarbageBytes(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.UploadImage(rec, multipartUpload(t, "junk.bin", []byte("not an image at all")))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRenderQueuesJob(t *testing.T) {
	app, db, _ := newTestApp(t)
	sourceID := db.addAsset("", domain.AssetKindSource, "uploads/source.png")

	payload := fmt.Sprintf(`{"source_asset_id":%q,"mode":"both","prompt":"on a beach","variations":2,"style_preset":"studio"}`, sourceID)
	req := httptest.NewRequest(http.MethodPost, "/v1/renders", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	app.CreateRender(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("expected job_id")
	}
	if body["status"] != string(domain.JobStatusQueued) {
		t.Fatalf("expected QUEUED, got %v", body["status"])
	}

	job, ok := db.jobs[jobID]
	if !ok {
		t.Fatal("job row not recorded")
	}
	if job.Mode != domain.ModeBoth {
		t.Fatalf("expected both mode, got %s", job.Mode)
	}
	var spec domain.RenderSpec
	if err := json.Unmarshal(job.SpecJSON, &spec); err != nil {
		t.Fatalf("unmarshal stored spec: %v", err)
	}
	if spec.Version != domain.DefaultSpecVersion {
		t.Fatalf("expected spec version default, got %q", spec.Version)
	}
	if spec.Variations != 2 || spec.Prompt != "on a beach" {
		t.Fatalf("stored spec lost fields: %+v", spec)
	}
}

func TestCreateRenderValidation(t *testing.T) {
	app, db, _ := newTestApp(t)
	sourceID := db.addAsset("", domain.AssetKindSource, "uploads/source.png")
	resultID := db.addAsset("some-job", domain.AssetKindResult, "renders/result.png")

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing source id", `{"mode":"composite"}`, http.StatusBadRequest},
		{"unknown source", `{"source_asset_id":"11111111-1111-1111-1111-111111111111"}`, http.StatusNotFound},
		{"unknown preset", fmt.Sprintf(`{"source_asset_id":%q,"style_preset":"vaporwave"}`, sourceID), http.StatusBadRequest},
		{"not a source asset", fmt.Sprintf(`{"source_asset_id":%q}`, resultID), http.StatusBadRequest},
		{"malformed json", `{"source_asset_id":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/renders", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			app.CreateRender(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetRender(t *testing.T) {
	app, db, _ := newTestApp(t)
	jobID := db.addJob(domain.JobStatusRunning, domain.ModeComposite, `{"mode":"composite"}`)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/renders/"+jobID, nil), "id", jobID)
	rec := httptest.NewRecorder()
	app.GetRender(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["id"] != jobID {
		t.Fatalf("expected id %s, got %v", jobID, body["id"])
	}
	if body["status"] != string(domain.JobStatusRunning) {
		t.Fatalf("expected RUNNING, got %v", body["status"])
	}
	spec, ok := body["spec"].(map[string]any)
	if !ok || spec["mode"] != "composite" {
		t.Fatalf("expected embedded spec, got %v", body["spec"])
	}
}

func TestGetRenderNotFound(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/renders/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	app.GetRender(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRenderAssets(t *testing.T) {
	app, db, store := newTestApp(t)
	jobID := db.addJob(domain.JobStatusSucceeded, domain.ModeComposite, `{}`)
	db.addAsset(jobID, domain.AssetKindStage, "renders/"+jobID+"/stage_01_original.png")
	resultID := db.addAsset(jobID, domain.AssetKindResult, "renders/"+jobID+"/result_composite.png")
	store.urls["renders/"+jobID+"/result_composite.png"] = "https://cdn.example.com/result.png"

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/renders/"+jobID+"/assets", nil), "id", jobID)
	rec := httptest.NewRecorder()
	app.ListRenderAssets(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	items, ok := body["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 assets, got %v", body["items"])
	}
	var sawURL bool
	for _, raw := range items {
		item := raw.(map[string]any)
		if item["id"] == resultID {
			if item["download_url"] != "https://cdn.example.com/result.png" {
				t.Fatalf("expected presigned url on result, got %v", item["download_url"])
			}
			sawURL = true
		}
	}
	if !sawURL {
		t.Fatal("result asset missing from listing")
	}
}

func TestListRenderAssetsUnknownJob(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/renders/nope/assets", nil), "id", "nope")
	rec := httptest.NewRecorder()
	app.ListRenderAssets(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDownloadAssetStreamsBytes(t *testing.T) {
	app, db, store := newTestApp(t)
	data := pngBytes(t, 8, 8)
	_, _ = store.Write(context.Background(), "renders/job/result.png", data)
	assetID := db.addAsset("job", domain.AssetKindResult, "renders/job/result.png")

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/assets/"+assetID+"/download", nil), "id", assetID)
	rec := httptest.NewRecorder()
	app.DownloadAsset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "result.png") {
		t.Fatalf("expected filename in disposition, got %q", cd)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Fatal("streamed bytes differ from stored bytes")
	}
}

func TestDownloadAssetRedirectsToPresignedURL(t *testing.T) {
	app, db, store := newTestApp(t)
	assetID := db.addAsset("job", domain.AssetKindResult, "renders/job/result.png")
	store.urls["renders/job/result.png"] = "https://cdn.example.com/signed"

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/assets/"+assetID+"/download", nil), "id", assetID)
	rec := httptest.NewRecorder()
	app.DownloadAsset(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://cdn.example.com/signed" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestArchiveRenderBundlesResults(t *testing.T) {
	app, db, store := newTestApp(t)
	jobID := db.addJob(domain.JobStatusSucceeded, domain.ModeBoth, `{}`)
	db.addAsset(jobID, domain.AssetKindStage, "renders/"+jobID+"/stage_03_mask.png")
	for _, name := range []string{"result_inpaint.png", "result_composite.png"} {
		key := "renders/" + jobID + "/" + name
		_, _ = store.Write(context.Background(), key, pngBytes(t, 8, 8))
		db.addAsset(jobID, domain.AssetKindResult, key)
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/renders/"+jobID+"/archive", nil), "id", jobID)
	rec := httptest.NewRecorder()
	app.ArchiveRender(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("expected application/zip, got %q", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["result_inpaint.png"] || !names["result_composite.png"] {
		t.Fatalf("unexpected zip entries: %v", names)
	}
}

func TestArchiveRenderWithoutResults(t *testing.T) {
	app, db, _ := newTestApp(t)
	jobID := db.addJob(domain.JobStatusFailed, domain.ModeComposite, `{}`)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/renders/"+jobID+"/archive", nil), "id", jobID)
	rec := httptest.NewRecorder()
	app.ArchiveRender(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
