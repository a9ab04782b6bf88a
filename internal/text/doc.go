// Package text pseudonymizes entity spans found in free text.
//
// Extraction combines three sources into per-category span lists: a
// Recognizer for named entities (persons, places, organizations), two fixed
// regular expressions for e-mail addresses and phone numbers, and
// caller-supplied patterns. Spans are deduplicated within a category, and
// named-entity spans overlapping an e-mail or phone span are dropped so the
// same characters are never substituted twice.
//
// Substitution replaces every occurrence of each span literally across the
// whole text. Spans that share a substring can interfere with each other;
// the category order decides which replacement wins.
package text
