// Package merkle computes a content address for an ordered list of field
// values by reducing their SHA-256 digests pairwise into a single root.
//
// Field order is significant: the same values in another order produce a
// different root in general.
package merkle
