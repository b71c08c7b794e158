package presentation

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// Renderer writes views as plain text. Badges are drawn with ANSI true-colour
// backgrounds when colour is enabled.
type Renderer struct {
	w     io.Writer
	color bool
}

// NewRenderer returns a Renderer for w. Colour is enabled only when w is a
// terminal and NO_COLOR is unset.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, color: isTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// WithColor forces colour on or off.
func (r *Renderer) WithColor(on bool) *Renderer {
	return &Renderer{w: r.w, color: on}
}

// Color reports whether badges are drawn in colour.
func (r *Renderer) Color() bool { return r.color }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Result renders the result screen.
func (r *Renderer) Result(v ResultView) error {
	switch v.Kind {
	case ViewLoading:
		return writeln(r.w, v.Message)
	case ViewEmpty:
		if err := writeln(r.w, v.Message); err != nil {
			return err
		}
		if v.Notice != "" {
			if err := writeln(r.w, v.Notice); err != nil {
				return err
			}
		}
		return writef(r.w, "\n> %s\n", v.Action)
	}

	if err := r.header(v); err != nil {
		return fmt.Errorf("write product header: %w", err)
	}
	if err := r.section("Nutritional Information", v.Nutrition); err != nil {
		return fmt.Errorf("write nutrition: %w", err)
	}
	if err := r.text("Allergens", v.Allergens); err != nil {
		return err
	}
	if err := r.text("Ingredients", v.Ingredients); err != nil {
		return err
	}
	if err := r.scores(v); err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	if err := r.text("Nutrition Analysis", v.Analysis); err != nil {
		return err
	}
	return r.footer(v)
}

func (r *Renderer) header(v ResultView) error {
	if err := writeln(r.w, v.Title); err != nil {
		return err
	}
	if v.Code != "" && v.Code != v.Title {
		if err := writef(r.w, "Barcode: %s\n", v.Code); err != nil {
			return err
		}
	}
	return r.rows(v.Details)
}

func (r *Renderer) section(title string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := writef(r.w, "\n%s\n", title); err != nil {
		return err
	}
	return r.rows(rows)
}

func (r *Renderer) rows(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		if err := writef(tw, "  %s:\t%s\n", row.Label, row.Value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (r *Renderer) text(title, body string) error {
	if body == "" {
		return nil
	}
	if err := writef(r.w, "\n%s\n  %s\n", title, body); err != nil {
		return fmt.Errorf("write %s: %w", strings.ToLower(title), err)
	}
	return nil
}

func (r *Renderer) scores(v ResultView) error {
	var rows []Row
	if v.NutriScore != nil {
		rows = append(rows, Row{"Nutri-Score", r.Badge(*v.NutriScore)})
	}
	if v.EcoScore != nil {
		rows = append(rows, Row{"Eco-Score", r.Badge(*v.EcoScore)})
	}
	rows = append(rows, v.Additional...)
	return r.section("Additional Information", rows)
}

func (r *Renderer) footer(v ResultView) error {
	if v.Saving {
		if err := writeln(r.w, "\nSaving to your history..."); err != nil {
			return err
		}
	}
	if v.Notice != "" {
		if err := writef(r.w, "\n! %s\n", v.Notice); err != nil {
			return err
		}
	}
	if v.Action != "" {
		return writef(r.w, "\n> %s\n", v.Action)
	}
	return nil
}

// Badge formats a badge as " A " on its colour, or "[A]" without colour.
func (r *Renderer) Badge(b Badge) string {
	if !r.color {
		return "[" + b.Label + "]"
	}
	red, green, blue, ok := parseHex(b.Color)
	if !ok {
		return "[" + b.Label + "]"
	}
	return fmt.Sprintf("\x1b[1;97;48;2;%d;%d;%dm %s \x1b[0m", red, green, blue, b.Label)
}

// History renders the history list.
func (r *Renderer) History(v HistoryView) error {
	if err := writeln(r.w, v.Header); err != nil {
		return err
	}
	if v.Empty {
		return nil
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "#\tPRODUCT\tID"); err != nil {
		return fmt.Errorf("write history header row: %w", err)
	}
	for _, item := range v.Items {
		if err := writef(tw, "%d\t%s\t%s\n", item.Index, item.Name, item.ProductID); err != nil {
			return fmt.Errorf("write history row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush history table: %w", err)
	}
	return nil
}

// Profile renders the profile screen.
func (r *Renderer) Profile(v ProfileView) error {
	if err := writeln(r.w, v.Greeting); err != nil {
		return err
	}
	if err := writeln(r.w, "for Exploring My App!"); err != nil {
		return err
	}
	rows := appendRows(nil, Row{"Name", v.Name}, Row{"Email", v.Email})
	if len(rows) > 0 {
		if err := writeln(r.w); err != nil {
			return err
		}
		if err := r.rows(rows); err != nil {
			return err
		}
	}
	if v.Fact != "" {
		return writef(r.w, "\nDid you know? %s\n", v.Fact)
	}
	return nil
}

func parseHex(s string) (uint8, uint8, uint8, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
