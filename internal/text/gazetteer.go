package text

import (
	"context"
	"regexp"
	"sort"
)

// Gazetteer is a Recognizer that matches known terms per label as whole
// words. It stands in for a statistical recognizer when the entities of a
// document are known up front, for example from a customer list.
type Gazetteer struct {
	terms []gazetteerTerm
}

type gazetteerTerm struct {
	label string
	text  string
	re    *regexp.Regexp
}

// NewGazetteer builds a recognizer from label -> terms, for example
// {"PERSON": ["Alice", "Bob"]}.
func NewGazetteer(entries map[string][]string) *Gazetteer {
	g := &Gazetteer{}
	labels := make([]string, 0, len(entries))
	for l := range entries {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		for _, term := range entries[l] {
			if term == "" {
				continue
			}
			g.terms = append(g.terms, gazetteerTerm{
				label: l,
				text:  term,
				re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`),
			})
		}
	}
	return g
}

// Recognize implements Recognizer. Entities are returned in order of
// appearance; where terms overlap, the longer one wins.
func (g *Gazetteer) Recognize(_ context.Context, text string) ([]Entity, error) {
	type hit struct {
		start, end int
		label      string
	}
	var hits []hit
	for _, t := range g.terms {
		for _, loc := range t.re.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{start: loc[0], end: loc[1], label: t.label})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end-hits[i].start > hits[j].end-hits[j].start
	})

	var out []Entity
	end := -1
	for _, h := range hits {
		if h.start < end {
			continue
		}
		out = append(out, Entity{Label: h.label, Text: text[h.start:h.end]})
		end = h.end
	}
	return out, nil
}
