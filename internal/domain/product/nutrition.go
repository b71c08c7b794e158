package product

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NutritionFacts are the per-100g values the client displays. Nil means the
// upstream document did not report the nutrient.
type NutritionFacts struct {
	Energy        *float64 // kcal
	Carbohydrates *float64
	Sugars        *float64
	Fat           *float64
	SaturatedFat  *float64
	Protein       *float64
	Salt          *float64
	Fiber         *float64
}

// nutrient binds a canonical key to the field it fills.
type nutrient struct {
	key   string
	field func(*NutritionFacts) **float64
}

var nutrients = []nutrient{
	{"energy_kcal", func(n *NutritionFacts) **float64 { return &n.Energy }},
	{"carbohydrates", func(n *NutritionFacts) **float64 { return &n.Carbohydrates }},
	{"sugars", func(n *NutritionFacts) **float64 { return &n.Sugars }},
	{"fat", func(n *NutritionFacts) **float64 { return &n.Fat }},
	{"saturated_fat", func(n *NutritionFacts) **float64 { return &n.SaturatedFat }},
	{"proteins", func(n *NutritionFacts) **float64 { return &n.Protein }},
	{"salt", func(n *NutritionFacts) **float64 { return &n.Salt }},
	{"fiber", func(n *NutritionFacts) **float64 { return &n.Fiber }},
}

// IsEmpty reports whether no nutrient is present.
func (n NutritionFacts) IsEmpty() bool {
	for _, nt := range nutrients {
		if *nt.field(&n) != nil {
			return false
		}
	}
	return true
}

// UnmarshalJSON reads a nutriments object. For each nutrient it accepts the
// plain key, then the _100g key, then the _serving key, with either "-" or
// "_" as the word separator.
func (n *NutritionFacts) UnmarshalJSON(b []byte) error {
	*n = NutritionFacts{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		// Non-object nutriments are treated as absent.
		return nil //nolint:nilerr // tolerate malformed upstream data
	}

	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[strings.ReplaceAll(strings.ToLower(k), "-", "_")] = v
	}

	for _, nt := range nutrients {
		for _, suffix := range []string{"", "_100g", "_serving", "_value"} {
			if v, ok := parseFloatAny(normalized[nt.key+suffix]); ok {
				val := v
				*nt.field(n) = &val
				break
			}
		}
	}
	return nil
}

// MarshalJSON writes the canonical keys of present nutrients.
func (n NutritionFacts) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(nutrients))
	for _, nt := range nutrients {
		if p := *nt.field(&n); p != nil {
			out[nt.key] = *p
		}
	}
	return json.Marshal(out)
}

// Float returns a pointer to v, for building facts in code.
func Float(v float64) *float64 { return &v }
