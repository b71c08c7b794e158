package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offDocument = `{
  "code": "3017620422003",
  "status": 1,
  "status_verbose": "product found",
  "product": {
    "product_name": "Nutella",
    "brands": "Ferrero",
    "quantity": "400 g",
    "serving_size": "15 g",
    "image_front_small_url": "https://images.example.com/nutella.jpg",
    "nutriments": {
      "energy-kcal_100g": 539,
      "carbohydrates": "57.5",
      "sugars_100g": 56.3,
      "fat": 30.9,
      "saturated-fat_100g": 10.6,
      "proteins_100g": 6.3,
      "salt_serving": 0.016,
      "fiber": null
    },
    "allergens": "en:milk,en:nuts",
    "ingredients_text": "Sugar, palm oil, hazelnuts",
    "nutriscore_grade": "E",
    "ecoscore_grade": "not-applicable",
    "nova_group": "4",
    "countries": "France",
    "packaging": "Glass jar",
    "ecoscore_data": {"agribalyse": {"code": "31032"}}
  }
}`

func TestParseDocument_OpenFoodFactsShape(t *testing.T) {
	doc, err := ParseDocument([]byte(offDocument))
	require.NoError(t, err)

	assert.Equal(t, "3017620422003", doc.Code)
	assert.Equal(t, 1, doc.Status)
	assert.False(t, doc.IsEmpty())

	p := doc.Product
	assert.Equal(t, "Nutella", p.Name)
	assert.Equal(t, "Ferrero", p.Brand)
	assert.Equal(t, "400 g", p.Quantity)
	assert.Equal(t, Grade("e"), p.NutriScore)
	assert.Equal(t, Grade(""), p.EcoScore)
	assert.Equal(t, NovaGroup(4), p.NovaGroup)

	n := p.Nutrition
	require.NotNil(t, n.Energy)
	assert.InDelta(t, 539, *n.Energy, 1e-9)
	require.NotNil(t, n.Carbohydrates)
	assert.InDelta(t, 57.5, *n.Carbohydrates, 1e-9)
	require.NotNil(t, n.SaturatedFat)
	assert.InDelta(t, 10.6, *n.SaturatedFat, 1e-9)
	require.NotNil(t, n.Salt)
	assert.InDelta(t, 0.016, *n.Salt, 1e-9)
	assert.Nil(t, n.Fiber)
}

func TestDocument_MarshalPreservesUnknownFields(t *testing.T) {
	doc, err := ParseDocument([]byte(offDocument))
	require.NoError(t, err)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "agribalyse")

	again, err := ParseDocument(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Product, again.Product)
}

func TestParseDocument_BareProduct(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"code": 737628064502, "product_name": "Rice Noodles", "nutriments": {"energy_kcal": 385}}`))
	require.NoError(t, err)
	assert.Equal(t, "737628064502", doc.Code)
	assert.Equal(t, "Rice Noodles", doc.Product.Name)
	assert.False(t, doc.IsEmpty())
}

func TestDocument_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"null", `null`},
		{"empty object", `{}`},
		{"not found envelope", `{"code": "123", "status": 0, "status_verbose": "product not found"}`},
		{"empty product", `{"code": "123", "product": {}}`},
		{"placeholder grades only", `{"product": {"nutriscore_grade": "unknown"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.in))
			require.NoError(t, err)
			assert.True(t, doc.IsEmpty())
		})
	}

	var nilDoc *Document
	assert.True(t, nilDoc.IsEmpty())
}

func TestParseDocument_Invalid(t *testing.T) {
	_, err := ParseDocument([]byte(`[1,2,3]`))
	assert.Error(t, err)
}

func TestDocument_MarshalWithoutRaw(t *testing.T) {
	doc := Document{Code: "42", Product: Product{Name: "Water", Nutrition: NutritionFacts{Energy: Float(0)}}}
	out, err := json.Marshal(doc)
	require.NoError(t, err)

	again, err := ParseDocument(out)
	require.NoError(t, err)
	assert.Equal(t, "42", again.Code)
	assert.Equal(t, "Water", again.Product.Name)
	require.NotNil(t, again.Product.Nutrition.Energy)
}

func TestNutritionPayload(t *testing.T) {
	doc, err := ParseDocument([]byte(offDocument))
	require.NoError(t, err)

	payload := doc.NutritionPayload()
	out, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "Nutella", decoded["foodName"])
	facts, ok := decoded["foodNutrition"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 539.0, facts["energy_kcal"], 1e-9)
	assert.InDelta(t, 6.3, facts["proteins"], 1e-9)
	assert.NotContains(t, facts, "fiber")
}

func TestGrade(t *testing.T) {
	assert.Equal(t, Grade("a"), NormalizeGrade(" A "))
	assert.Equal(t, Grade(""), NormalizeGrade("f"))
	assert.Equal(t, Grade(""), NormalizeGrade("not-applicable"))
	assert.True(t, Grade("c").Valid())
	assert.False(t, Grade("").Valid())
	assert.Equal(t, "B", Grade("b").Label())
}

func TestNovaGroup(t *testing.T) {
	var n NovaGroup
	require.NoError(t, json.Unmarshal([]byte(`7`), &n))
	assert.False(t, n.Valid())
	require.NoError(t, json.Unmarshal([]byte(`2`), &n))
	assert.Equal(t, NovaGroup(2), n)
	assert.True(t, n.Valid())
}

func TestNutritionFacts_IsEmpty(t *testing.T) {
	assert.True(t, NutritionFacts{}.IsEmpty())
	assert.False(t, NutritionFacts{Fiber: Float(1)}.IsEmpty())

	var n NutritionFacts
	require.NoError(t, json.Unmarshal([]byte(`"garbage"`), &n))
	assert.True(t, n.IsEmpty())
}
