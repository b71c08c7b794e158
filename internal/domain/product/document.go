// Package product models the product document returned by the lookup
// backend. Parsing is tolerant of the shapes the upstream food database
// produces (numbers as strings, per-100g and per-serving suffixes), and the
// raw payload is kept so a document can be saved and re-read losslessly.
package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is a product document as returned by the lookup endpoint:
// {"code": "...", "status": 1, "product": {...}}. Documents stored in scan
// history sometimes omit the envelope, so a bare product object is accepted too.
type Document struct {
	Code    string
	Status  int
	Product Product

	hasProduct bool
	raw        json.RawMessage
}

// ParseDocument decodes a product document.
func ParseDocument(b []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type envelope struct {
	Code    json.RawMessage `json:"code"`
	Status  json.RawMessage `json:"status"`
	Product json.RawMessage `json:"product"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = Document{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("decode product document: %w", err)
	}

	d.raw = append(json.RawMessage(nil), b...)
	d.Code = rawString(env.Code)
	if n, ok := parseFloatAny(rawAny(env.Status)); ok {
		d.Status = int(n)
	}

	body := env.Product
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		// Bare product object without envelope.
		body = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	delete(fields, "code")
	delete(fields, "status")
	delete(fields, "status_verbose")
	if len(fields) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, &d.Product); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	d.hasProduct = !d.Product.isZero()
	return nil
}

// MarshalJSON returns the payload the document was parsed from, so that
// fields this client does not model survive a save and re-fetch.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	out := map[string]any{"product": d.Product}
	if d.Code != "" {
		out["code"] = d.Code
	}
	if d.Status != 0 {
		out["status"] = d.Status
	}
	return json.Marshal(out)
}

// IsEmpty reports whether the document carries no product information.
func (d *Document) IsEmpty() bool {
	return d == nil || !d.hasProduct
}

// NutritionPayload builds the normalized request body for the enrichment endpoint.
func (d *Document) NutritionPayload() NutritionPayload {
	if d == nil {
		return NutritionPayload{}
	}
	return NutritionPayload{
		FoodName:      d.Product.Name,
		FoodNutrition: d.Product.Nutrition,
	}
}

// NutritionPayload is the body sent to the analysis endpoint.
type NutritionPayload struct {
	FoodName      string         `json:"foodName"`
	FoodNutrition NutritionFacts `json:"foodNutrition"`
}

// Product holds the fields of a product that this client renders.
type Product struct {
	Name        string         `json:"product_name,omitempty"`
	Brand       string         `json:"brands,omitempty"`
	Quantity    string         `json:"quantity,omitempty"`
	ServingSize string         `json:"serving_size,omitempty"`
	Categories  string         `json:"categories,omitempty"`
	ImageURL    string         `json:"image_front_small_url,omitempty"`
	Nutrition   NutritionFacts `json:"nutriments"`
	Allergens   string         `json:"allergens,omitempty"`
	Ingredients string         `json:"ingredients_text,omitempty"`
	NutriScore  Grade          `json:"nutriscore_grade,omitempty"`
	EcoScore    Grade          `json:"ecoscore_grade,omitempty"`
	NovaGroup   NovaGroup      `json:"nova_group,omitempty"`
	Countries   string         `json:"countries,omitempty"`
	Packaging   string         `json:"packaging,omitempty"`
}

// UnmarshalJSON decodes a product object. Text fields accept strings or
// numbers; unknown fields are ignored.
func (p *Product) UnmarshalJSON(b []byte) error {
	*p = Product{}
	var f map[string]json.RawMessage
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	p.Name = rawString(f["product_name"])
	p.Brand = rawString(f["brands"])
	p.Quantity = rawString(f["quantity"])
	p.ServingSize = rawString(f["serving_size"])
	p.Categories = rawString(f["categories"])
	p.ImageURL = rawString(f["image_front_small_url"])
	p.Allergens = rawString(f["allergens"])
	p.Ingredients = rawString(f["ingredients_text"])
	p.NutriScore = NormalizeGrade(rawString(f["nutriscore_grade"]))
	p.EcoScore = NormalizeGrade(rawString(f["ecoscore_grade"]))
	p.Countries = rawString(f["countries"])
	p.Packaging = rawString(f["packaging"])
	if raw, ok := f["nova_group"]; ok {
		_ = p.NovaGroup.UnmarshalJSON(raw)
	}
	if raw, ok := f["nutriments"]; ok {
		_ = p.Nutrition.UnmarshalJSON(raw)
	}
	return nil
}

func (p *Product) isZero() bool {
	return p.Name == "" && p.Brand == "" && p.Quantity == "" && p.ServingSize == "" &&
		p.Categories == "" && p.ImageURL == "" && p.Nutrition.IsEmpty() &&
		p.Allergens == "" && p.Ingredients == "" && p.NutriScore == "" &&
		p.EcoScore == "" && p.NovaGroup == 0 && p.Countries == "" && p.Packaging == ""
}

// Grade is a Nutri-Score or Eco-Score letter, lower-cased. The empty grade
// means the product has none.
type Grade string

// UnmarshalJSON normalizes the grade and drops placeholder values.
func (g *Grade) UnmarshalJSON(b []byte) error {
	*g = NormalizeGrade(rawString(b))
	return nil
}

// NormalizeGrade lower-cases a grade and maps anything outside a..e to "".
func NormalizeGrade(s string) Grade {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'e' {
		return Grade(s)
	}
	return ""
}

// Valid reports whether g is one of a..e.
func (g Grade) Valid() bool {
	return NormalizeGrade(string(g)) != ""
}

// Label is the upper-case letter shown on badges.
func (g Grade) Label() string {
	return strings.ToUpper(string(g))
}

// NovaGroup is the NOVA processing class 1..4. Zero means absent.
type NovaGroup int

// UnmarshalJSON accepts numbers or numeric strings; out-of-range values are dropped.
func (n *NovaGroup) UnmarshalJSON(b []byte) error {
	*n = 0
	v, ok := parseFloatAny(rawAny(b))
	if !ok {
		return nil
	}
	if v >= 1 && v <= 4 && v == float64(int(v)) {
		*n = NovaGroup(int(v))
	}
	return nil
}

// Valid reports whether n is a NOVA group.
func (n NovaGroup) Valid() bool { return n >= 1 && n <= 4 }

func rawAny(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func rawString(b json.RawMessage) string {
	switch t := rawAny(b).(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
