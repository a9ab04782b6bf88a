package text

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/nao1215/pseudokit/internal/strategy"
)

// ErrNoRecognizer is returned when named entity categories are requested
// without a Recognizer.
var ErrNoRecognizer = errors.New("named entity categories requested without a recognizer")

var (
	emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\+?[1-9][0-9]{7,14}`)
)

// Entity labels produced by a Recognizer.
const (
	LabelPerson       = "PERSON"
	LabelLocation     = "GPE"
	LabelOrganization = "ORG"
)

var labelCategory = map[string]strategy.Category{
	LabelPerson:       strategy.Names,
	LabelLocation:     strategy.Locations,
	LabelOrganization: strategy.Organizations,
}

// Entity is a labelled span returned by a Recognizer.
type Entity struct {
	Label string
	Text  string
}

// Recognizer finds named entities in text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// CategorySpans holds the distinct spans of one category in order of appearance.
type CategorySpans struct {
	Category strategy.Category
	Spans    []string
}

// ExtractOptions selects which categories to extract.
type ExtractOptions struct {
	// Categories lists the requested categories in processing order.
	Categories []strategy.Category
	// AllNamedEntities adds Names, Locations and Organizations.
	AllNamedEntities bool
	// Patterns are regular expressions whose matches go to PatternCategory.
	Patterns []string
	// PatternCategory defaults to strategy.Others.
	PatternCategory strategy.Category
}

// Selected returns every category the options select, in processing order.
func (o ExtractOptions) Selected() []strategy.Category {
	var cats []strategy.Category
	if o.AllNamedEntities {
		cats = append(cats, strategy.Names, strategy.Locations, strategy.Organizations)
	}
	cats = append(cats, o.Categories...)
	if len(o.Patterns) > 0 {
		cats = append(cats, o.patternCategory())
	}
	return lo.Uniq(cats)
}

func (o ExtractOptions) patternCategory() strategy.Category {
	if o.PatternCategory == "" {
		return strategy.Others
	}
	return o.PatternCategory
}

// Extract collects the spans of every requested category. rec may be nil
// when no named-entity category is requested.
func Extract(ctx context.Context, text string, rec Recognizer, opts ExtractOptions) ([]CategorySpans, error) {
	cats := opts.Selected()
	spans := make(map[strategy.Category][]string, len(cats))
	wanted := lo.Associate(cats, func(c strategy.Category) (strategy.Category, bool) { return c, true })

	var structured []string
	if wanted[strategy.Emails] {
		spans[strategy.Emails] = emailPattern.FindAllString(text, -1)
		structured = append(structured, spans[strategy.Emails]...)
	}
	if wanted[strategy.PhoneNumbers] {
		spans[strategy.PhoneNumbers] = phonePattern.FindAllString(text, -1)
		structured = append(structured, spans[strategy.PhoneNumbers]...)
	}

	if len(opts.Patterns) > 0 {
		pc := opts.patternCategory()
		for _, p := range opts.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
			spans[pc] = append(spans[pc], re.FindAllString(text, -1)...)
		}
	}

	if needsRecognizer(wanted) {
		if rec == nil {
			return nil, ErrNoRecognizer
		}
		ents, err := rec.Recognize(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to recognize entities: %w", err)
		}
		for _, ent := range ents {
			cat, ok := labelCategory[ent.Label]
			if !ok || !wanted[cat] || overlaps(ent.Text, structured) {
				continue
			}
			spans[cat] = append(spans[cat], ent.Text)
		}
	}

	out := make([]CategorySpans, 0, len(cats))
	for _, c := range cats {
		distinct := lo.Uniq(lo.Filter(spans[c], func(s string, _ int) bool { return s != "" }))
		out = append(out, CategorySpans{Category: c, Spans: distinct})
	}
	return out, nil
}

func needsRecognizer(wanted map[strategy.Category]bool) bool {
	return lo.ContainsBy(lo.Values(labelCategory), func(c strategy.Category) bool { return wanted[c] })
}

// overlaps reports whether s and any structured span contain one another.
func overlaps(s string, structured []string) bool {
	return slices.ContainsFunc(structured, func(o string) bool {
		return strings.Contains(o, s) || strings.Contains(s, o)
	})
}
