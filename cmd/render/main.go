// Command render runs the product shot pipeline once against a local
// image file, without a database or queue. Useful for tuning prompts and
// mask parameters.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"productshot/internal/domain"
	"productshot/internal/imaging"
	"productshot/internal/infra"
	"productshot/internal/pipeline"
	"productshot/internal/prompt"
	"productshot/internal/providers/background"
	"productshot/internal/providers/genai"
	"productshot/internal/providers/inpaint"
	"productshot/internal/providers/segment"
)

func main() {
	input := flag.String("i", "", "input product photo (png, jpeg, webp, bmp, tiff, gif)")
	outDir := flag.String("o", "./output", "output directory")
	promptText := flag.String("prompt", "", "background description; empty means auto-generate from the photo")
	product := flag.String("product", "", "short product description used in the scene prompt")
	negative := flag.String("negative", "", "extra negative prompt terms")
	mode := flag.String("mode", "composite", "render mode: inpaint, composite or both")
	preset := flag.String("preset", "", "style preset name")
	variations := flag.Int("variations", 1, "number of variations to render")
	saveStages := flag.Bool("save-stages", false, "also write intermediate stage images and the contact sheet")
	seed := flag.Int64("seed", 0, "base seed; 0 picks a random seed per variation")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: render -i photo.jpg [-o dir] [-prompt ...] [-mode composite]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	presets, err := prompt.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PresetsPath).Msg("render: failed to load style presets")
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		ImageModel:  cfg.GeminiImageModel,
		VisionModel: cfg.GeminiVisionModel,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("render: failed to configure gemini client")
	}
	var vision prompt.Analyzer
	if geminiClient.HasKey() {
		vision = geminiClient
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

	img, err := imaging.LoadFile(*input)
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("render: failed to load input image")
	}

	spec := domain.RenderSpec{
		Mode:               *mode,
		Prompt:             *promptText,
		ProductDescription: *product,
		NegativePrompt:     *negative,
		StylePreset:        *preset,
		Variations:         *variations,
		SaveStages:         *saveStages,
		Seed:               *seed,
	}
	spec.Normalize("")
	if spec.StylePreset != "" {
		if _, ok := presets.Get(spec.StylePreset); !ok {
			logger.Fatal().Str("preset", spec.StylePreset).Msg("render: unknown style preset")
		}
	}

	result, err := pipe.RunVariations(context.Background(), img, spec)
	if err != nil {
		logger.Fatal().Err(err).Msg("render: pipeline failed")
	}

	for _, out := range result.Outputs {
		path, err := imaging.SaveFile(out.Image, filepath.Join(*outDir, out.Name+".png"))
		if err != nil {
			logger.Fatal().Err(err).Str("output", out.Name).Msg("render: failed to write output")
		}
		fmt.Println(path)
	}
	logger.Info().
		Str("scene_prompt", result.ScenePrompt).
		Str("prompt_source", result.PromptSource).
		Dur("elapsed", result.Elapsed).
		Int("outputs", len(result.Outputs)).
		Msg("render: done")
}
