// Package carbanalyzer estimates the carbohydrate content of a meal from
// a photograph.
//
// The heavy lifting is delegated to an external multimodal completion
// service; this package prepares the image, sends it with a schema-fixing
// prompt, and normalizes whatever text comes back into a structured
// NutritionRecord. Normalization never fails: unparseable responses
// degrade to heuristic recovery and finally to fixed defaults, flagged so
// callers can present the values as approximate.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		carbanalyzer "github.com/menta2k/carb-analyzer"
//	)
//
//	func main() {
//		analyzer := carbanalyzer.NewOpenAI("", "sk-...", "gpt-4o")
//
//		result, err := analyzer.AnalyzeFile(context.Background(), "dinner.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("total carbs: %.0fg\n", result.Record.TotalCarbs)
//		if result.Estimated() {
//			fmt.Println("note: values are approximate")
//		}
//	}
//
// The package consists of four main components:
//
// 1. Imageprep (pkg/imageprep): bounded downscaling and JPEG re-encoding for upload
// 2. Clients (pkg/openai, pkg/ollama): completion backends behind one interface
// 3. Estimator (pkg/estimator): the analysis prompt and one round-trip
// 4. Normalize (pkg/normalize): strict-then-heuristic response parsing
package carbanalyzer

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/carb-analyzer/pkg/client"
	"github.com/menta2k/carb-analyzer/pkg/estimator"
	"github.com/menta2k/carb-analyzer/pkg/imageprep"
	"github.com/menta2k/carb-analyzer/pkg/ollama"
	"github.com/menta2k/carb-analyzer/pkg/openai"
)

// Version of the carb analyzer library
const Version = "1.0.0"

// Analyzer provides a high-level interface for meal photo analysis
type Analyzer struct {
	prep  *imageprep.Preparer
	est   *estimator.Estimator
	model string
}

// New creates an Analyzer over an arbitrary completion backend.
func New(backend client.CompletionClient, model string) *Analyzer {
	return &Analyzer{
		prep:  imageprep.New(),
		est:   estimator.New(backend),
		model: model,
	}
}

// NewOpenAI creates an Analyzer against an OpenAI-compatible server. An
// empty serverURL selects the hosted endpoint.
func NewOpenAI(serverURL, apiKey, model string) *Analyzer {
	return New(openai.NewClient(serverURL, apiKey), model)
}

// NewOllama creates an Analyzer against a local Ollama server.
func NewOllama(serverURL, model string) (*Analyzer, error) {
	backend, err := ollama.NewClient(serverURL)
	if err != nil {
		return nil, err
	}
	return New(backend, model), nil
}

// AnalyzeImage runs one analysis round for an already-decoded image.
func (a *Analyzer) AnalyzeImage(ctx context.Context, img image.Image) (estimator.Result, error) {
	b64, err := a.prep.PrepareBase64(img)
	if err != nil {
		return estimator.Result{}, fmt.Errorf("image preparation failed: %w", err)
	}
	return a.est.EstimateMeal(ctx, a.model, b64)
}

// AnalyzeFile loads an image from a file path or URL and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, source string) (estimator.Result, error) {
	img, err := a.prep.Load(source)
	if err != nil {
		return estimator.Result{}, fmt.Errorf("failed to load image: %w", err)
	}
	return a.AnalyzeImage(ctx, img)
}

// AnalyzeBytes decodes raw image bytes and analyzes them.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte) (estimator.Result, error) {
	img, err := a.prep.Decode(data)
	if err != nil {
		return estimator.Result{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return a.AnalyzeImage(ctx, img)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
