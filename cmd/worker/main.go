package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"productshot/internal/adapter/repo"
	"productshot/internal/domain"
	"productshot/internal/imaging"
	"productshot/internal/infra"
	"productshot/internal/pipeline"
	"productshot/internal/prompt"
	"productshot/internal/providers/background"
	"productshot/internal/providers/genai"
	"productshot/internal/providers/inpaint"
	"productshot/internal/providers/segment"
	"productshot/internal/storage"
)

const jobPollInterval = 2 * time.Second

type renderWorker struct {
	ctx    context.Context
	jobs   *repo.RenderRepo
	assets *repo.AssetRepo
	store  storage.Store
	pipe   *pipeline.Pipeline
	logger infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			logger.Warn().Err(err).Msg("worker: sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	presets, err := prompt.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PresetsPath).Msg("worker: failed to load style presets")
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		ImageModel:  cfg.GeminiImageModel,
		VisionModel: cfg.GeminiVisionModel,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}
	var vision prompt.Analyzer
	if geminiClient.HasKey() {
		vision = geminiClient
	} else {
		logger.Warn().Msg("worker: gemini api key missing, backdrops are synthetic and prompts come from local analysis")
	}

	modelHTTP := &http.Client{Timeout: 10 * time.Minute}
	pipe := &pipeline.Pipeline{
		Segmenter:  segment.NewClient(cfg.SegmentBaseURL, modelHTTP, &logger),
		Inpainter:  inpaint.NewClient(cfg.InpaintBaseURL, modelHTTP, &logger),
		Background: &background.Gemini{Client: geminiClient},
		Prompts:    &prompt.Generator{Vision: vision, Log: logger},
		Presets:    presets,
		Log:        logger,
		Opts: pipeline.Options{
			MaxImageDimension: cfg.MaxImageDimension,
			MaskExpandPixels:  cfg.MaskExpandPixels,
			MaskFeatherPixels: float64(cfg.MaskFeatherPixels),
			MaskBlurPixels:    float64(cfg.MaskBlurPixels),
			ShadowOffset:      cfg.ShadowOffset,
			ShadowBlur:        float64(cfg.ShadowBlur),
			ShadowOpacity:     cfg.ShadowOpacity,
			InpaintSteps:      cfg.InpaintSteps,
			InpaintGuidance:   cfg.InpaintGuidance,
		},
	}

	worker := &renderWorker{
		ctx:    ctx,
		jobs:   repo.NewRenderRepo(runner),
		assets: repo.NewAssetRepo(runner),
		store:  store,
		pipe:   pipe,
		logger: logger,
	}

	scheduler := cron.New()
	_, _ = scheduler.AddFunc("@every 5m", func() { worker.requeueStale(cfg.StaleJobAfter) })
	_, _ = scheduler.AddFunc("@every 1h", func() { worker.sweepStages(cfg.StageRetention) })
	scheduler.Start()
	defer scheduler.Stop()

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func newStore(ctx context.Context, cfg *infra.Config) (storage.Store, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	path := cfg.StoragePath
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return storage.NewFileStore(path)
}

func (w *renderWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.Claim(w.ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNoJobAvailable) {
				time.Sleep(jobPollInterval)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
			time.Sleep(jobPollInterval)
			continue
		}

		w.handleJob(job)
	}
}

func (w *renderWorker) handleJob(job *domain.RenderJob) {
	w.logger.Info().Str("job_id", job.ID).Str("mode", string(job.Mode)).Msg("worker: picked job")
	if err := w.renderJob(job); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		if failErr := w.jobs.Fail(w.ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("worker: mark failed errored")
		}
		return
	}
	if err := w.jobs.Complete(w.ctx, job.ID); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: mark succeeded errored")
	}
}

func (w *renderWorker) renderJob(job *domain.RenderJob) error {
	var spec domain.RenderSpec
	if err := json.Unmarshal(job.SpecJSON, &spec); err != nil {
		return fmt.Errorf("decode render spec: %w", err)
	}
	spec.Normalize("")

	source, err := w.assets.Get(w.ctx, spec.SourceAssetID)
	if err != nil {
		return fmt.Errorf("load source asset: %w", err)
	}
	data, err := w.store.Read(w.ctx, source.StorageKey)
	if err != nil {
		return fmt.Errorf("read source bytes: %w", err)
	}
	img, _, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode source image: %w", err)
	}

	result, err := w.pipe.RunVariations(w.ctx, img, spec)
	if err != nil {
		return err
	}
	return w.persistOutputs(job.ID, result)
}

func (w *renderWorker) persistOutputs(jobID string, result *pipeline.Result) error {
	props, err := json.Marshal(map[string]any{
		"scene_prompt":      result.ScenePrompt,
		"background_prompt": result.BackgroundPrompt,
		"prompt_source":     result.PromptSource,
		"elapsed_ms":        result.Elapsed.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("encode output properties: %w", err)
	}

	var firstErr error
	for _, out := range result.Outputs {
		encoded, err := imaging.EncodePNG(out.Image)
		if err != nil {
			w.logger.Error().Err(err).Str("output", out.Name).Msg("worker: encode output failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		key := outputKey(jobID, out)
		storedKey, err := w.store.Write(w.ctx, key, encoded)
		if err != nil {
			w.logger.Error().Err(err).Str("key", key).Msg("worker: persist output failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		bounds := out.Image.Bounds()
		assetProps := props
		if out.Method != "" {
			merged := map[string]any{}
			_ = json.Unmarshal(props, &merged)
			merged["method"] = out.Method
			assetProps, _ = json.Marshal(merged)
		}
		if _, err := w.assets.Insert(w.ctx, domain.Asset{
			JobID:      jobID,
			Kind:       out.Kind,
			StorageKey: storedKey,
			MIME:       "image/png",
			Bytes:      int64(len(encoded)),
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
			Properties: assetProps,
		}); err != nil {
			w.logger.Error().Err(err).Str("key", storedKey).Msg("worker: insert output asset failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Stage artifacts live under their own prefix so retention sweeps never
// touch the deliverables.
func outputKey(jobID string, out pipeline.Output) string {
	if out.Kind == domain.AssetKindStage {
		return fmt.Sprintf("stages/%s/%s.png", jobID, out.Name)
	}
	return fmt.Sprintf("renders/%s/%s.png", jobID, out.Name)
}

func (w *renderWorker) requeueStale(maxAge time.Duration) {
	ids, err := w.jobs.RequeueStale(w.ctx, int(maxAge.Seconds()))
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: requeue stale jobs failed")
		return
	}
	if len(ids) > 0 {
		w.logger.Warn().Strs("job_ids", ids).Msg("worker: requeued stale jobs")
	}
}

func (w *renderWorker) sweepStages(retention time.Duration) {
	keys, err := w.assets.DeleteStagesBefore(w.ctx, int(retention.Seconds()))
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: stage retention sweep failed")
		return
	}
	for _, key := range keys {
		if err := w.store.Delete(w.ctx, key); err != nil {
			w.logger.Error().Err(err).Str("key", key).Msg("worker: delete stage blob failed")
		}
	}
	if len(keys) > 0 {
		w.logger.Info().Int("rows", len(keys)).Msg("worker: expired stage assets removed")
	}
	// Catch files whose rows are already gone, filesystem backend only.
	fs, ok := w.store.(*storage.FileStore)
	if !ok {
		return
	}
	cutoff := time.Now().Add(-retention).Unix()
	removed, err := fs.SweepOlderThan(w.ctx, "stages/", func(modUnix int64) bool { return modUnix < cutoff })
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: stage file sweep failed")
		return
	}
	if removed > 0 {
		w.logger.Info().Int("files", removed).Msg("worker: expired stage files removed")
	}
}
