// Package table holds the in-memory tabular model that the pseudonymization
// engines operate on.
//
// A Table is an ordered set of named columns whose cells are text. The empty
// string is the null marker, matching how delimited files carry missing
// values. Typed views (integer, float, date) are derived on demand through
// InferSchema so that the text form of every cell stays byte-for-byte intact
// and a pseudonymize/revert round trip reproduces the input exactly.
//
// Column replacement is done through a Builder which tracks the original
// column positions, instead of editing a live table with delete and insert
// operations.
package table
