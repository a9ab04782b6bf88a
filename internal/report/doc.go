// Package report renders run summaries.
//
// Three writers implement Writer:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: machine-readable output
//   - MarkdownWriter: GitHub flavored Markdown with tables and a mermaid
//     chart of records per column
//
// Summaries never contain cell values. They list columns, record counts,
// artifacts and key files.
package report
