// Package model defines the data structures shared between the engines, the
// job pipeline, the history database and the report writers.
//
// The central type is Run, the record of one pseudonymization, revert,
// generalization or aggregation job. Runs never carry original values, only
// counts, column names and artifact locations, so they are safe to persist
// and print.
package model
