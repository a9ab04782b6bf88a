// Package storage provides the backends that hold mapping tables and secret
// keys. Artifacts are addressed by file name (for example
// "secure_key_name.txt"), so every backend honours the same naming
// convention the revert tooling relies on.
//
// Backends:
//   - Dir: plain files in an output directory (the default)
//   - Memory: a map, for tests and dry runs
//   - SQLite: the artifacts table of the history database
//   - Redis: string keys under a namespace prefix
//   - Fallback: reads from a primary backend and then a secondary one
package storage
