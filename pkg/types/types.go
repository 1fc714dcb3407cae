package types

// Confidence expresses how sure the model was about a single food item.
// An empty value means the model did not report one; the heuristic
// recovery path always emits ConfidenceLow.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseStatus reports how a NutritionRecord was obtained from the model
// response. StatusEstimated means heuristic text recovery was used and
// callers must present the values as approximate.
type ParseStatus string

const (
	StatusPrecise   ParseStatus = "precise"
	StatusEstimated ParseStatus = "estimated"
)

// Breakdown splits total carbohydrates into sub-components, in grams.
// The components are model estimates and are not forced to sum to the
// record total.
type Breakdown struct {
	Fiber  float64 `json:"fiber"`
	Sugar  float64 `json:"sugar"`
	Starch float64 `json:"starch"`
}

// FoodItem is one identified food in the meal.
type FoodItem struct {
	Name       string     `json:"name"`
	Weight     float64    `json:"weight"`
	Carbs      float64    `json:"carbs"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// NutritionRecord is the structured result of analyzing one meal image.
// FoodItems is always non-nil after normalization, possibly empty.
type NutritionRecord struct {
	TotalCarbs float64    `json:"totalCarbs"`
	Breakdown  Breakdown  `json:"breakdown"`
	FoodItems  []FoodItem `json:"foodItems"`
}
