// Package normalize converts raw vision model output into a structured
// NutritionRecord. It never fails: strict JSON parsing is attempted first,
// then a JSON object embedded in surrounding prose, and finally a regex
// driven heuristic recovery that falls back to fixed defaults.
package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/menta2k/carb-analyzer/pkg/types"
)

// Defaults used when nothing at all is recoverable from the response text.
const (
	DefaultTotalCarbs = 30.0
	DefaultFiber      = 5.0
	DefaultSugar      = 10.0
	DefaultStarch     = 15.0
	DefaultItemName   = "Unknown food item"
	DefaultItemWeight = 100.0
)

// Normalize turns the raw completion text for one meal image into a
// NutritionRecord. StatusPrecise means the record came from structured
// parsing; StatusEstimated means heuristic recovery was used and the
// caller must surface the values as approximate.
func Normalize(raw string) (types.NutritionRecord, types.ParseStatus) {
	// Direct parse of the entire response.
	if rec, ok := decodeRecord(raw); ok {
		return finalize(rec), types.StatusPrecise
	}

	// The model sometimes wraps the object in prose or code fences.
	// Sanitize and keep only the outermost {...} span.
	if rec, ok := decodeRecord(sanitizeModelJSON(raw)); ok {
		return finalize(rec), types.StatusPrecise
	}

	return finalize(extractHeuristics(raw)), types.StatusEstimated
}

func decodeRecord(raw string) (types.NutritionRecord, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return types.NutritionRecord{}, false
	}

	var rec types.NutritionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return types.NutritionRecord{}, false
	}
	return rec, true
}

// finalize enforces the record invariants: FoodItems non-nil, no negative
// gram values, no nameless items.
func finalize(rec types.NutritionRecord) types.NutritionRecord {
	if rec.TotalCarbs < 0 {
		rec.TotalCarbs = 0
	}
	if rec.Breakdown.Fiber < 0 {
		rec.Breakdown.Fiber = 0
	}
	if rec.Breakdown.Sugar < 0 {
		rec.Breakdown.Sugar = 0
	}
	if rec.Breakdown.Starch < 0 {
		rec.Breakdown.Starch = 0
	}

	items := make([]types.FoodItem, 0, len(rec.FoodItems))
	for _, it := range rec.FoodItems {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		if it.Carbs < 0 {
			it.Carbs = 0
		}
		items = append(items, it)
	}
	rec.FoodItems = items

	return rec
}

var (
	// "30g of carbs", "30 grams carbohydrate"
	reTotalCarbs = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|grams?)\b\s*(?:of\s+)?carb`)

	// "Chicken: 150g, 0g of carbs"
	reFoodItem = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z '\-]*?)\s*:\s*(\d+(?:\.\d+)?)\s*g\b\s*,\s*(\d+(?:\.\d+)?)\s*(?:g|grams?)\b\s*(?:of\s+)?carb`)
)

// componentGrams finds a gram amount keyed to a component word, accepting
// both "fiber: 5g" and "5g of fiber" orderings.
func componentGrams(text, word string) (float64, bool) {
	wordFirst := regexp.MustCompile(`(?i)` + word + `\s*[:\-]?\s*(\d+(?:\.\d+)?)\s*(?:g|grams?)\b`)
	if m := wordFirst.FindStringSubmatch(text); m != nil {
		return parseGrams(m[1])
	}
	numberFirst := regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|grams?)\b\s*(?:of\s+)?` + word)
	if m := numberFirst.FindStringSubmatch(text); m != nil {
		return parseGrams(m[1])
	}
	return 0, false
}

func parseGrams(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// extractHeuristics performs best-effort recovery when no JSON object could
// be parsed out of the response.
func extractHeuristics(text string) types.NutritionRecord {
	total, haveTotal := 0.0, false
	if m := reTotalCarbs.FindStringSubmatch(text); m != nil {
		total, haveTotal = parseGrams(m[1])
	}

	fiber, haveFiber := componentGrams(text, "fiber")
	sugar, haveSugar := componentGrams(text, "sugar")
	starch, haveStarch := componentGrams(text, "starch")
	haveComponent := haveFiber || haveSugar || haveStarch

	if !haveTotal {
		if haveComponent {
			total = fiber + sugar + starch
		} else {
			total = DefaultTotalCarbs
			fiber = DefaultFiber
			sugar = DefaultSugar
			starch = DefaultStarch
		}
	}

	var items []types.FoodItem
	for _, m := range reFoodItem.FindAllStringSubmatch(text, -1) {
		weight, okW := parseGrams(m[2])
		carbs, okC := parseGrams(m[3])
		if !okW || !okC || weight <= 0 {
			continue
		}
		items = append(items, types.FoodItem{
			Name:       strings.TrimSpace(m[1]),
			Weight:     weight,
			Carbs:      carbs,
			Confidence: types.ConfidenceLow,
		})
	}

	if len(items) == 0 {
		items = []types.FoodItem{{
			Name:       DefaultItemName,
			Weight:     DefaultItemWeight,
			Carbs:      total,
			Confidence: types.ConfidenceLow,
		}}
	}

	return types.NutritionRecord{
		TotalCarbs: total,
		Breakdown:  types.Breakdown{Fiber: fiber, Sugar: sugar, Starch: starch},
		FoodItems:  items,
	}
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a model response and keeps only the outermost {...} span.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // comments, but not inside string values ("https://...")
	raw = stripLineComments(raw)

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	return strings.TrimSpace(raw)
}

// stripLineComments drops // comments up to the end of line, tracking
// double-quoted strings so a URL in a JSON value is left intact.
func stripLineComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			b.WriteByte(ch)
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}
