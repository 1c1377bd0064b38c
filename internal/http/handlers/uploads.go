package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/segmentio/ksuid"

	"productshot/internal/domain"
	"productshot/internal/imaging"
)

// Uploads larger than this are rejected before decoding.
const maxUploadBytes = 32 << 20

// UploadImage accepts a multipart product photo, normalizes it (flatten to
// RGB over white, cap the longest side) and stores it as a SOURCE asset.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read file")
		return
	}

	photo, format, err := imaging.Normalize(raw, a.Config.MaxImageDimension)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			a.error(w, http.StatusUnsupportedMediaType, "unsupported_format", "image format not supported")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "failed to decode image")
		return
	}

	encoded, err := imaging.EncodePNG(photo)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode image")
		return
	}

	key := fmt.Sprintf("uploads/%s.png", ksuid.New().String())
	storedKey, err := a.Store.Write(r.Context(), key, encoded)
	if err != nil {
		a.Log.Error().Err(err).Msg("upload: store write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store image")
		return
	}

	width, height := photo.Rect.Dx(), photo.Rect.Dy()
	props := fmt.Sprintf(`{"original_filename":%q,"original_format":%q}`, header.Filename, format)
	assetID, err := a.Assets.Insert(r.Context(), domain.Asset{
		Kind:       domain.AssetKindSource,
		StorageKey: storedKey,
		MIME:       "image/png",
		Bytes:      int64(len(encoded)),
		Width:      width,
		Height:     height,
		Properties: []byte(props),
	})
	if err != nil {
		a.Log.Error().Err(err).Msg("upload: asset insert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record asset")
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"asset_id": assetID,
		"width":    width,
		"height":   height,
		"mime":     "image/png",
	})
}
