// Package pipeline turns one product photo into finished product shots.
// Each run walks six stages: normalize the photo, extract the foreground,
// refine masks, resolve prompts, synthesize the new background (by
// inpainting or standalone generation) and composite the final image.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"strings"
	"time"

	"productshot/internal/domain"
	"productshot/internal/imaging"
	"productshot/internal/infra"
	"productshot/internal/prompt"
	"productshot/internal/providers/inpaint"
)

// Segmenter extracts the product cutout and its alpha mask from a photo.
type Segmenter interface {
	Extract(ctx context.Context, img image.Image) (*image.NRGBA, *image.Gray, error)
}

// Inpainter repaints the white region of the mask from the prompt.
type Inpainter interface {
	Inpaint(ctx context.Context, img image.Image, mask *image.Gray, params inpaint.Params) (image.Image, error)
}

// BackgroundGenerator produces a standalone backdrop of the given size.
type BackgroundGenerator interface {
	GenerateBackground(ctx context.Context, prompt string, width, height int, seed int64) (image.Image, error)
}

// Options carries the tunable processing parameters.
type Options struct {
	MaxImageDimension int
	MaskExpandPixels  int
	MaskFeatherPixels float64
	MaskBlurPixels    float64
	ShadowOffset      int
	ShadowBlur        float64
	ShadowOpacity     float64
	InpaintSteps      int
	InpaintGuidance   float64
}

// Output is one image produced by a run.
type Output struct {
	Kind   domain.AssetKind
	Name   string
	Method string
	Image  image.Image
}

// Result collects everything one run produced, plus the prompts that were
// actually used so they can be stored with the job.
type Result struct {
	Outputs          []Output
	ScenePrompt      string
	BackgroundPrompt string
	PromptSource     string
	Elapsed          time.Duration
}

// Pipeline wires the collaborators together.
type Pipeline struct {
	Segmenter  Segmenter
	Inpainter  Inpainter
	Background BackgroundGenerator
	Prompts    *prompt.Generator
	Presets    *prompt.PresetLibrary
	Log        infra.Logger
	Opts       Options
}

// Run executes the pipeline once for the given spec.
func (p *Pipeline) Run(ctx context.Context, source image.Image, spec domain.RenderSpec) (*Result, error) {
	return p.run(ctx, source, spec, 0, spec.Variations > 1)
}

// RunVariations executes the pipeline spec.Variations times with distinct
// seeds and merges the outputs. A variation that fails does not abort the
// ones already produced unless none succeeded.
func (p *Pipeline) RunVariations(ctx context.Context, source image.Image, spec domain.RenderSpec) (*Result, error) {
	count := spec.Variations
	if count <= 1 {
		return p.Run(ctx, source, spec)
	}

	merged := &Result{}
	var firstErr error
	for i := 0; i < count; i++ {
		res, err := p.run(ctx, source, spec, i, true)
		if err != nil {
			p.Log.Error().Err(err).Int("variation", i+1).Msg("pipeline: variation failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		merged.Outputs = append(merged.Outputs, res.Outputs...)
		merged.ScenePrompt = res.ScenePrompt
		merged.BackgroundPrompt = res.BackgroundPrompt
		merged.PromptSource = res.PromptSource
		merged.Elapsed += res.Elapsed
	}
	if len(merged.Outputs) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("no variations produced output")
	}
	return merged, nil
}

func (p *Pipeline) run(ctx context.Context, source image.Image, spec domain.RenderSpec, variation int, tagged bool) (*Result, error) {
	started := time.Now()
	mode := domain.NormalizeMode(spec.Mode)
	seed := variationSeed(spec.Seed, variation)
	suffix := ""
	if tagged {
		suffix = fmt.Sprintf("_v%d", variation+1)
	}

	// Stage 1: normalize.
	p.Log.Info().Str("mode", string(mode)).Int("variation", variation+1).Msg("pipeline: stage 1/6 normalizing photo")
	photo := imaging.Flatten(imaging.CapDimension(source, p.Opts.MaxImageDimension))
	width, height := photo.Rect.Dx(), photo.Rect.Dy()

	// Stage 2: foreground extraction.
	p.Log.Info().Msg("pipeline: stage 2/6 extracting foreground")
	cutout, mask, err := p.Segmenter.Extract(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("extract foreground: %w", err)
	}

	// Stage 3: mask refinement.
	p.Log.Info().Msg("pipeline: stage 3/6 refining masks")
	compositeMask := imaging.Feather(mask, p.Opts.MaskBlurPixels)
	inpaintMask := imaging.Invert(imaging.Feather(
		imaging.Dilate(mask, p.Opts.MaskExpandPixels), p.Opts.MaskFeatherPixels))

	// Stage 4: prompts.
	p.Log.Info().Msg("pipeline: stage 4/6 resolving prompts")
	res := &Result{}
	p.resolvePrompts(ctx, photo, spec, res)

	// Stages 5 and 6: background synthesis and compositing, per method.
	var methodResults []Output
	if mode == domain.ModeInpaint || mode == domain.ModeBoth {
		p.Log.Info().Msg("pipeline: stage 5/6 inpainting background")
		result, err := p.Inpainter.Inpaint(ctx, photo, inpaintMask, inpaint.Params{
			Prompt:         res.ScenePrompt,
			NegativePrompt: prompt.MergeNegative(spec.NegativePrompt),
			Steps:          p.Opts.InpaintSteps,
			GuidanceScale:  p.Opts.InpaintGuidance,
			Seed:           seed,
		})
		if err != nil {
			return nil, fmt.Errorf("inpaint background: %w", err)
		}
		methodResults = append(methodResults, Output{
			Kind:   domain.AssetKindResult,
			Name:   "result_inpaint" + suffix,
			Method: "inpaint",
			Image:  result,
		})
	}
	var backdrop image.Image
	if mode == domain.ModeComposite || mode == domain.ModeBoth {
		p.Log.Info().Msg("pipeline: stage 5/6 generating backdrop")
		backdrop, err = p.Background.GenerateBackground(ctx, res.BackgroundPrompt, width, height, seed)
		if err != nil {
			return nil, fmt.Errorf("generate backdrop: %w", err)
		}
		p.Log.Info().Msg("pipeline: stage 6/6 compositing")
		shadowed := imaging.Shadow(backdrop, mask, p.Opts.ShadowOffset, p.Opts.ShadowBlur, p.Opts.ShadowOpacity)
		result := imaging.AlphaBlend(cutout, shadowed, compositeMask)
		methodResults = append(methodResults, Output{
			Kind:   domain.AssetKindResult,
			Name:   "result_composite" + suffix,
			Method: "composite",
			Image:  result,
		})
	}

	res.Outputs = append(res.Outputs, methodResults...)

	if spec.SaveStages {
		res.Outputs = append(res.Outputs, p.stageOutputs(photo, cutout, mask, inpaintMask, backdrop, methodResults, mode, suffix)...)
	}
	if mode == domain.ModeBoth && len(methodResults) == 2 {
		res.Outputs = append(res.Outputs, Output{
			Kind:  domain.AssetKindComparison,
			Name:  "methods_comparison" + suffix,
			Image: imaging.Comparison(methodResults[0].Image, methodResults[1].Image),
		})
	}

	res.Elapsed = time.Since(started)
	p.Log.Info().
		Dur("elapsed", res.Elapsed).
		Int("outputs", len(res.Outputs)).
		Msg("pipeline: run complete")
	return res, nil
}

// resolvePrompts fills ScenePrompt and BackgroundPrompt from the spec,
// falling back to automatic analysis of the photo, then applies the style
// preset, palette and locale hints.
func (p *Pipeline) resolvePrompts(ctx context.Context, photo image.Image, spec domain.RenderSpec, res *Result) {
	userPrompt := strings.TrimSpace(spec.Prompt)
	if userPrompt != "" {
		product := strings.TrimSpace(spec.ProductDescription)
		if product == "" {
			product = "the product"
		}
		res.ScenePrompt = prompt.ScenePrompt(product, userPrompt, "")
		res.BackgroundPrompt = prompt.BackgroundPrompt(userPrompt, nil, spec.ColorPalette)
		res.PromptSource = "user"
	} else {
		a := p.Prompts.Analyze(ctx, photo)
		product := strings.TrimSpace(spec.ProductDescription)
		if product == "" {
			product = a.Product
		}
		res.ScenePrompt = prompt.ScenePrompt(product, a.Background, a.Style)
		res.BackgroundPrompt = prompt.BackgroundPrompt(a.Background, splitStyle(a.Style), spec.ColorPalette)
		res.PromptSource = a.Source
	}
	if p.Presets != nil && spec.StylePreset != "" {
		res.ScenePrompt = p.Presets.Apply(res.ScenePrompt, spec.StylePreset)
		res.BackgroundPrompt = p.Presets.Apply(res.BackgroundPrompt, spec.StylePreset)
	}
	if hint := prompt.LanguageHint(spec.Locale); hint != "" {
		res.ScenePrompt += ", " + hint
		res.BackgroundPrompt += ", " + hint
	}
}

// stageOutputs builds the intermediate visualization assets: each stage as
// its own image plus a contact sheet, and a before/after comparison per
// method result.
func (p *Pipeline) stageOutputs(photo *image.RGBA, cutout *image.NRGBA, mask, inpaintMask *image.Gray, backdrop image.Image, results []Output, mode domain.RenderMode, suffix string) []Output {
	stages := []imaging.Stage{
		{Name: "original", Image: photo},
		{Name: "foreground", Image: imaging.Flatten(cutout)},
		{Name: "mask", Image: mask},
	}
	if mode == domain.ModeInpaint || mode == domain.ModeBoth {
		stages = append(stages, imaging.Stage{Name: "inpaint_mask", Image: inpaintMask})
	}
	if backdrop != nil {
		stages = append(stages, imaging.Stage{Name: "backdrop", Image: backdrop})
	}
	for _, r := range results {
		stages = append(stages, imaging.Stage{Name: r.Name, Image: r.Image})
	}

	outputs := make([]Output, 0, len(stages)+1+len(results))
	for i, s := range stages {
		outputs = append(outputs, Output{
			Kind:  domain.AssetKindStage,
			Name:  fmt.Sprintf("stage_%02d_%s%s", i+1, s.Name, suffix),
			Image: s.Image,
		})
	}
	outputs = append(outputs, Output{
		Kind:  domain.AssetKindContactSheet,
		Name:  "pipeline_stages" + suffix,
		Image: imaging.ContactSheet(stages),
	})
	for _, r := range results {
		outputs = append(outputs, Output{
			Kind:   domain.AssetKindComparison,
			Name:   "comparison_" + r.Method + suffix,
			Method: r.Method,
			Image:  imaging.Comparison(photo, r.Image),
		})
	}
	return outputs
}

func variationSeed(base int64, variation int) int64 {
	if base != 0 {
		return base + int64(variation)
	}
	return rand.Int64()
}

func splitStyle(style string) []string {
	parts := strings.Split(style, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
