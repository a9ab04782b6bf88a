package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Job.Validate.
var (
	// ErrInvalidBackend is returned for an unknown key backend.
	ErrInvalidBackend = errors.New("invalid key backend: must be dir, sqlite or redis")

	// ErrNoRedisAddr is returned when the redis backend has no address.
	ErrNoRedisAddr = errors.New("redis key backend requires an address")

	// ErrNoDBDir is returned when the sqlite backend has no database directory.
	ErrNoDBDir = errors.New("sqlite key backend requires a database directory")

	// ErrInvalidReportFormat is returned for an unknown report format.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrNoInput is returned when a job has no input_file.
	ErrNoInput = errors.New("job has no input_file")

	// ErrNoOutput is returned when a job that writes artifacts has no output.
	ErrNoOutput = errors.New("job has no output directory")

	// ErrNoColumns is returned when a structured job names no map_columns.
	ErrNoColumns = errors.New("job has no map_columns")

	// ErrNoCategories is returned when a text job selects nothing to replace.
	ErrNoCategories = errors.New("text job selects no pos_type, all_ne or patterns")

	// ErrInvalidPattern is returned when a structured row filter is not
	// [column, operator, value].
	ErrInvalidPattern = errors.New("row filter must be [column, operator, value]")

	// ErrInvalidK is returned for a negative k.
	ErrInvalidK = errors.New("invalid k: must not be negative")

	// ErrInvalidAggregationRange is returned when agg_columns is set without
	// a positive aggregation_range.
	ErrInvalidAggregationRange = errors.New("invalid aggregation_range: must be positive")
)
