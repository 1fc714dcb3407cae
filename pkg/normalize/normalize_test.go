package normalize

import (
	"encoding/json"
	"testing"

	"github.com/menta2k/carb-analyzer/pkg/types"
)

func TestNormalizeDirectParse(t *testing.T) {
	input := types.NutritionRecord{
		TotalCarbs: 52.5,
		Breakdown:  types.Breakdown{Fiber: 4, Sugar: 18, Starch: 30.5},
		FoodItems: []types.FoodItem{
			{Name: "Pasta", Weight: 180, Carbs: 45, Confidence: types.ConfidenceHigh},
			{Name: "Tomato sauce", Weight: 90, Carbs: 7.5, Confidence: types.ConfidenceMedium},
		},
	}

	raw, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec, status := Normalize(string(raw))
	if status != types.StatusPrecise {
		t.Errorf("expected precise status, got %q", status)
	}

	if rec.TotalCarbs != input.TotalCarbs {
		t.Errorf("expected total %.1f, got %.1f", input.TotalCarbs, rec.TotalCarbs)
	}
	if rec.Breakdown != input.Breakdown {
		t.Errorf("expected breakdown %+v, got %+v", input.Breakdown, rec.Breakdown)
	}
	if len(rec.FoodItems) != 2 {
		t.Fatalf("expected 2 food items, got %d", len(rec.FoodItems))
	}
	for i, it := range rec.FoodItems {
		if it != input.FoodItems[i] {
			t.Errorf("item %d: expected %+v, got %+v", i, input.FoodItems[i], it)
		}
	}
}

func TestNormalizeBackfillsFoodItems(t *testing.T) {
	raw := `{"totalCarbs": 20, "breakdown": {"fiber": 2, "sugar": 8, "starch": 10}}`

	rec, status := Normalize(raw)
	if status != types.StatusPrecise {
		t.Errorf("expected precise status, got %q", status)
	}
	if rec.FoodItems == nil {
		t.Error("foodItems should be backfilled to an empty slice, got nil")
	}
	if len(rec.FoodItems) != 0 {
		t.Errorf("expected empty foodItems, got %d entries", len(rec.FoodItems))
	}
}

func TestNormalizeEmbeddedObject(t *testing.T) {
	embedded := `{"totalCarbs": 61, "breakdown": {"fiber": 6, "sugar": 20, "starch": 35}, "foodItems": [{"name": "Rice bowl", "weight": 250, "carbs": 61, "confidence": "medium"}]}`
	raw := "Here you go: " + embedded + " Thanks!"

	rec, status := Normalize(raw)
	if status != types.StatusPrecise {
		t.Fatalf("expected precise status, got %q", status)
	}

	want, wantStatus := Normalize(embedded)
	if wantStatus != types.StatusPrecise {
		t.Fatalf("embedded object alone should parse precisely")
	}
	if rec.TotalCarbs != want.TotalCarbs || rec.Breakdown != want.Breakdown {
		t.Errorf("embedded parse diverged: got %+v, want %+v", rec, want)
	}
	if len(rec.FoodItems) != 1 || rec.FoodItems[0] != want.FoodItems[0] {
		t.Errorf("embedded items diverged: got %+v, want %+v", rec.FoodItems, want.FoodItems)
	}
}

func TestNormalizeCodeFencedObject(t *testing.T) {
	raw := "```json\n{\"totalCarbs\": 33, \"breakdown\": {\"fiber\": 3, \"sugar\": 10, \"starch\": 20}, \"foodItems\": []}\n```"

	rec, status := Normalize(raw)
	if status != types.StatusPrecise {
		t.Errorf("expected precise status for fenced JSON, got %q", status)
	}
	if rec.TotalCarbs != 33 {
		t.Errorf("expected total 33, got %.1f", rec.TotalCarbs)
	}
}

func TestNormalizeEmbeddedObjectWithSlashes(t *testing.T) {
	raw := "Sure. // my take\n{\"totalCarbs\": 52, \"breakdown\": {\"fiber\": 4, \"sugar\": 18, \"starch\": 30}, \"foodItems\": [{\"name\": \"Pasta\", \"weight\": 200, \"carbs\": 52, \"confidence\": \"high\", \"source\": \"https://example.com/nutrition\"}],}"

	rec, status := Normalize(raw)
	if status != types.StatusPrecise {
		t.Fatalf("a // inside a string value must not break the parse, got status %q", status)
	}
	if rec.TotalCarbs != 52 {
		t.Errorf("expected total 52, got %.1f", rec.TotalCarbs)
	}
	if len(rec.FoodItems) != 1 || rec.FoodItems[0].Name != "Pasta" {
		t.Errorf("expected the Pasta item to survive, got %+v", rec.FoodItems)
	}
}

func TestNormalizeHeuristicTotal(t *testing.T) {
	rec, status := Normalize("The meal contains roughly 42g of carbs in total.")
	if status != types.StatusEstimated {
		t.Errorf("expected estimated status, got %q", status)
	}
	if rec.TotalCarbs != 42 {
		t.Errorf("expected total 42, got %.1f", rec.TotalCarbs)
	}
}

func TestNormalizeHeuristicComponentSum(t *testing.T) {
	rec, status := Normalize("Rough estimate. fiber: 5g and sugar: 10g were identified.")
	if status != types.StatusEstimated {
		t.Errorf("expected estimated status, got %q", status)
	}
	if rec.TotalCarbs != 15 {
		t.Errorf("expected total 15 (sum of components), got %.1f", rec.TotalCarbs)
	}
	if rec.Breakdown.Fiber != 5 || rec.Breakdown.Sugar != 10 || rec.Breakdown.Starch != 0 {
		t.Errorf("expected breakdown 5/10/0, got %+v", rec.Breakdown)
	}
}

func TestNormalizeDefaultsWhenNothingRecoverable(t *testing.T) {
	rec, status := Normalize("I could not tell what is on the plate, sorry.")
	if status != types.StatusEstimated {
		t.Errorf("expected estimated status, got %q", status)
	}
	if rec.TotalCarbs != DefaultTotalCarbs {
		t.Errorf("expected default total %.0f, got %.1f", DefaultTotalCarbs, rec.TotalCarbs)
	}
	want := types.Breakdown{Fiber: DefaultFiber, Sugar: DefaultSugar, Starch: DefaultStarch}
	if rec.Breakdown != want {
		t.Errorf("expected default breakdown %+v, got %+v", want, rec.Breakdown)
	}
	if len(rec.FoodItems) != 1 {
		t.Fatalf("expected single default item, got %d", len(rec.FoodItems))
	}
	it := rec.FoodItems[0]
	if it.Name != DefaultItemName || it.Weight != DefaultItemWeight || it.Carbs != DefaultTotalCarbs {
		t.Errorf("unexpected default item: %+v", it)
	}
	if it.Confidence != types.ConfidenceLow {
		t.Errorf("default item should be low confidence, got %q", it.Confidence)
	}
}

func TestNormalizeHeuristicFoodItems(t *testing.T) {
	raw := "Estimated contents:\nChicken: 150g, 0g of carbs\nRice: 200g, 45g carbs\n"

	rec, status := Normalize(raw)
	if status != types.StatusEstimated {
		t.Fatalf("expected estimated status, got %q", status)
	}
	if len(rec.FoodItems) != 2 {
		t.Fatalf("expected 2 food items, got %d: %+v", len(rec.FoodItems), rec.FoodItems)
	}

	want := []types.FoodItem{
		{Name: "Chicken", Weight: 150, Carbs: 0, Confidence: types.ConfidenceLow},
		{Name: "Rice", Weight: 200, Carbs: 45, Confidence: types.ConfidenceLow},
	}
	for i, it := range rec.FoodItems {
		if it != want[i] {
			t.Errorf("item %d: expected %+v, got %+v", i, want[i], it)
		}
	}
}

func TestNormalizeClampsNegatives(t *testing.T) {
	raw := `{"totalCarbs": -5, "breakdown": {"fiber": -1, "sugar": 2, "starch": -3}, "foodItems": [{"name": "Soup", "weight": 300, "carbs": -4}]}`

	rec, status := Normalize(raw)
	if status != types.StatusPrecise {
		t.Fatalf("expected precise status, got %q", status)
	}
	if rec.TotalCarbs != 0 {
		t.Errorf("negative total should clamp to 0, got %.1f", rec.TotalCarbs)
	}
	if rec.Breakdown.Fiber != 0 || rec.Breakdown.Starch != 0 {
		t.Errorf("negative components should clamp to 0, got %+v", rec.Breakdown)
	}
	if len(rec.FoodItems) != 1 || rec.FoodItems[0].Carbs != 0 {
		t.Errorf("negative item carbs should clamp to 0, got %+v", rec.FoodItems)
	}
}

func TestNormalizeDropsNamelessItems(t *testing.T) {
	raw := `{"totalCarbs": 10, "breakdown": {"fiber": 1, "sugar": 4, "starch": 5}, "foodItems": [{"name": "  ", "weight": 50, "carbs": 10}, {"name": "Toast", "weight": 40, "carbs": 10}]}`

	rec, _ := Normalize(raw)
	if len(rec.FoodItems) != 1 || rec.FoodItems[0].Name != "Toast" {
		t.Errorf("expected only the named item to survive, got %+v", rec.FoodItems)
	}
}

func TestNormalizeGramWordVariants(t *testing.T) {
	tests := []struct {
		input string
		total float64
	}{
		{"about 30 grams carbohydrate", 30},
		{"30g carbs overall", 30},
		{"roughly 12.5 g of carbs", 12.5},
	}

	for _, test := range tests {
		rec, status := Normalize(test.input)
		if status != types.StatusEstimated {
			t.Errorf("Normalize(%q): expected estimated status, got %q", test.input, status)
		}
		if rec.TotalCarbs != test.total {
			t.Errorf("Normalize(%q): expected total %.1f, got %.1f", test.input, test.total, rec.TotalCarbs)
		}
	}
}

func BenchmarkNormalizeHeuristic(b *testing.B) {
	raw := "Estimated contents:\nChicken: 150g, 0g of carbs\nRice: 200g, 45g carbs\nfiber: 3g, sugar: 6g\n"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Normalize(raw)
	}
}
