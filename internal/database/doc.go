// Package database provides SQLite-based storage for pseudokit.
//
// The DB keeps two tables:
//   - runs: one JSON-encoded model.Run per executed job, for the history command
//   - artifacts: mapping tables and secret keys when the sqlite storage
//     backend is selected instead of plain files
//
// The driver is modernc.org/sqlite, so no cgo toolchain is needed.
package database
