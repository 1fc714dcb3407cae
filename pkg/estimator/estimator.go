// Package estimator drives one meal analysis round: it holds the prompt
// that fixes the output schema, sends the prepared image through a
// completion backend, and normalizes whatever text comes back.
package estimator

import (
	"context"

	"github.com/menta2k/carb-analyzer/pkg/client"
	"github.com/menta2k/carb-analyzer/pkg/normalize"
	"github.com/menta2k/carb-analyzer/pkg/types"
)

// DefaultModel is used when the caller does not pick one.
const DefaultModel = "gpt-4o"

// SystemPrompt fixes the exact output schema. The model is instructed to
// answer with pure JSON; the normalizer copes when it does not.
const SystemPrompt = `You are a nutrition analysis assistant specialized in estimating carbohydrates from meal photos.

Return JSON only, exactly in this shape:
{
  "totalCarbs": 0,
  "breakdown": {"fiber": 0, "sugar": 0, "starch": 0},
  "foodItems": [
    {"name": "string", "weight": 0, "carbs": 0, "confidence": "high|medium|low"}
  ]
}

HARD RULES
- All amounts are grams. Weights are estimated portion sizes.
- totalCarbs covers the whole visible meal; breakdown components are your best split and need not sum exactly.
- List every distinct food you can identify, in order of prominence.
- confidence reflects how sure you are for that item.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// UserPrompt restates the task next to the image part.
const UserPrompt = `Analyze the meal in this photo and estimate its carbohydrate content. Respond with only the JSON object described in the instructions.`

// Result is one completed analysis round.
type Result struct {
	Record types.NutritionRecord `json:"record"`
	Status types.ParseStatus     `json:"status"`
	Raw    string                `json:"-"`
}

// Estimated reports whether heuristic recovery was used, meaning the
// values must be surfaced to the user as approximate.
func (r Result) Estimated() bool {
	return r.Status == types.StatusEstimated
}

// Estimator analyzes meal images using a completion backend.
type Estimator struct {
	client client.CompletionClient
}

// New creates an Estimator over the given backend.
func New(client client.CompletionClient) *Estimator {
	return &Estimator{client: client}
}

// EstimateMeal runs one inference round for an encoded image and returns
// the normalized record. The only hard failures are transport/service
// errors from the backend; unparseable responses degrade to an estimated
// record instead of failing.
func (e *Estimator) EstimateMeal(ctx context.Context, model, imageB64 string) (Result, error) {
	if model == "" {
		model = DefaultModel
	}

	raw, err := e.client.Complete(ctx, model, SystemPrompt, UserPrompt, imageB64)
	if err != nil {
		return Result{}, err
	}

	record, status := normalize.Normalize(raw)
	return Result{Record: record, Status: status, Raw: raw}, nil
}
