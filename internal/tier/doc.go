// Package tier pseudonymizes selected columns of a table.
//
// Columns are processed in the order the caller lists them. Each column is
// replaced in place by its pseudonym column "Index_<column>", and a mapping
// table pairing originals with pseudonyms is produced (and persisted when
// requested) as soon as the column is done. The counter method chains its
// numbering across columns, so the second column continues where the first
// one stopped.
//
// An optional row filter exempts the matching rows: they are kept unchanged
// and appended after the processed rows, which changes the row order.
package tier
