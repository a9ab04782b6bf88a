// Package main provides the entry point for the pseudokit CLI.
//
// pseudokit replaces identifying values in tables and free text with
// pseudonyms, keeps the mappings needed to revert them, and generalizes
// tables to k-anonymity.
//
// Usage:
//
//	pseudokit run job.yaml
//	pseudokit pseudonymize -i people.csv -o out -c name,email -m hash
//	pseudokit revert -i out/output.csv -o back -c name
//
// See --help for all available options.
package main

func main() {
	Execute()
}
