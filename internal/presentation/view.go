// Package presentation derives view models from the scan and session
// stores and renders them to a terminal. Everything here is a pure
// function of its input except Renderer, which only writes.
package presentation

import (
	"strconv"
	"strings"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
)

// User-facing copy shared by views and tests.
const (
	MessageLoading   = "Loading..."
	MessageNoProduct = "No product information available"
	ActionRetry      = "Try another scan"
	ActionScanAgain  = "Scan another product"
)

// ViewKind selects which result screen is shown.
type ViewKind int

const (
	ViewLoading ViewKind = iota
	ViewEmpty
	ViewProduct
)

func (k ViewKind) String() string {
	switch k {
	case ViewLoading:
		return "loading"
	case ViewEmpty:
		return "empty"
	case ViewProduct:
		return "product"
	default:
		return "unknown"
	}
}

// Row is one labelled line.
type Row struct {
	Label string
	Value string
}

// Badge is a graded score chip.
type Badge struct {
	Label string // upper-case letter
	Color string // #rrggbb background
}

// ResultView is the derived model of the result screen.
type ResultView struct {
	Kind ViewKind

	Code     string
	Title    string
	ImageURL string
	Details  []Row // brand, quantity, serving size, categories
	// Nutrition rows appear in a fixed order; absent nutrients are omitted.
	Nutrition   []Row
	Allergens   string
	Ingredients string
	NutriScore  *Badge
	EcoScore    *Badge
	Additional  []Row // NOVA group, countries, packaging
	Analysis    string

	// Saving is true while the record is shown but not yet persisted.
	Saving bool
	// Message is the body of the loading and empty views.
	Message string
	// Notice explains a failure that does not hide the product.
	Notice string
	Action string
}

// gradeColors are the badge backgrounds for a..e.
var gradeColors = map[product.Grade]string{
	"a": "#1a7f37",
	"b": "#2da44e",
	"c": "#d4a72c",
	"d": "#e16f24",
	"e": "#cf222e",
}

// GradeBadge returns the badge for g, nil when g is not a..e.
func GradeBadge(g product.Grade) *Badge {
	g = product.NormalizeGrade(string(g))
	color, ok := gradeColors[g]
	if !ok {
		return nil
	}
	return &Badge{Label: g.Label(), Color: color}
}

// BuildResultView derives the result screen from a scan state snapshot.
func BuildResultView(st scan.State) ResultView {
	if st.Record == nil || st.Record.Document.IsEmpty() {
		if st.IsLoading() {
			return ResultView{Kind: ViewLoading, Message: MessageLoading}
		}
		return ResultView{
			Kind:    ViewEmpty,
			Message: MessageNoProduct,
			Notice:  noticeFor(st.Failure),
			Action:  ActionRetry,
		}
	}

	v := productView(st.Record)
	v.Saving = st.IsLoading()
	v.Notice = noticeFor(st.Failure)
	v.Action = ActionScanAgain
	return v
}

func productView(r *scan.Record) ResultView {
	p := r.Document.Product
	v := ResultView{
		Kind:        ViewProduct,
		Code:        r.Code,
		Title:       p.Name,
		ImageURL:    p.ImageURL,
		Nutrition:   NutritionRows(p.Nutrition),
		Allergens:   strings.TrimSpace(p.Allergens),
		Ingredients: strings.TrimSpace(p.Ingredients),
		NutriScore:  GradeBadge(p.NutriScore),
		EcoScore:    GradeBadge(p.EcoScore),
		Analysis:    strings.TrimSpace(r.Analysis),
	}
	if v.Title == "" {
		v.Title = r.Code
	}
	v.Details = appendRows(nil,
		Row{"Brand", p.Brand},
		Row{"Quantity", p.Quantity},
		Row{"Serving Size", p.ServingSize},
		Row{"Categories", p.Categories},
	)
	var nova string
	if p.NovaGroup.Valid() {
		nova = strconv.Itoa(int(p.NovaGroup))
	}
	v.Additional = appendRows(nil,
		Row{"NOVA Group", nova},
		Row{"Countries", p.Countries},
		Row{"Packaging", p.Packaging},
	)
	return v
}

// nutritionLabels lists rows in display order with their unit.
var nutritionLabels = []struct {
	label string
	unit  string
	value func(product.NutritionFacts) *float64
}{
	{"Calories", "kcal", func(n product.NutritionFacts) *float64 { return n.Energy }},
	{"Carbohydrates", "g", func(n product.NutritionFacts) *float64 { return n.Carbohydrates }},
	{"Sugars", "g", func(n product.NutritionFacts) *float64 { return n.Sugars }},
	{"Fat", "g", func(n product.NutritionFacts) *float64 { return n.Fat }},
	{"Saturated Fat", "g", func(n product.NutritionFacts) *float64 { return n.SaturatedFat }},
	{"Proteins", "g", func(n product.NutritionFacts) *float64 { return n.Protein }},
	{"Salt", "g", func(n product.NutritionFacts) *float64 { return n.Salt }},
	{"Fiber", "g", func(n product.NutritionFacts) *float64 { return n.Fiber }},
}

// NutritionRows formats the present nutrients. Values keep their full
// precision so a re-fetched document renders identically.
func NutritionRows(n product.NutritionFacts) []Row {
	var rows []Row
	for _, l := range nutritionLabels {
		v := l.value(n)
		if v == nil {
			continue
		}
		rows = append(rows, Row{
			Label: l.label,
			Value: strconv.FormatFloat(*v, 'f', -1, 64) + " " + l.unit,
		})
	}
	return rows
}

// noticeFor returns the message for failures that are not covered by the
// empty view. Lookup failures all share the empty view and return "".
func noticeFor(f *scan.Failure) string {
	if f == nil || f.IsLookupFailure() {
		return ""
	}
	switch f.Kind {
	case scan.FailureAuthRequired:
		return "Sign in to save scans."
	case scan.FailureSaveFailed:
		if f.Detail != "" {
			return f.Detail
		}
		return "Could not save this scan."
	case scan.FailureInvalidInput:
		if f.Detail != "" {
			return f.Detail
		}
		return "This barcode could not be read."
	default:
		return ""
	}
}

func appendRows(dst []Row, rows ...Row) []Row {
	for _, r := range rows {
		if v := strings.TrimSpace(r.Value); v != "" {
			dst = append(dst, Row{Label: r.Label, Value: v})
		}
	}
	return dst
}
