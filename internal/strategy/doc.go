// Package strategy is the registry of pseudonym generation methods.
//
// The method set is closed: Strategy is an enumeration and Generate
// dispatches with a switch, so every method is visible in one place and can
// be exercised exhaustively by tests. A second registry, keyed by entity
// Category, picks the synthetic value generator for a category of free text
// or a recognizable column name.
//
// Null cells (the empty string) stay null for every per-value method. The
// counter numbers every row, and the row hash skips null fields.
package strategy
