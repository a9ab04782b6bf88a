// Package kanon generalizes tables until every combination of
// quasi-identifier values is shared by at least k rows, verifies that
// property, and coarsens single columns into value ranges.
//
// Generalization is irreversible and needs no mapping. Integer, float and
// date columns listed in the depth map are rounded down to a multiple of
// 10^depth (floats are rounded to integers first, dates are reduced to their
// year); other listed columns are masked. Rows whose group is smaller than
// k are suppressed as a whole.
package kanon
