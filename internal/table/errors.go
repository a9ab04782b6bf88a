package table

import "errors"

var (
	// ErrEmptyDataset is returned when a table has no rows left after
	// all-null rows and all-null columns are removed.
	ErrEmptyDataset = errors.New("dataset is empty after removing null rows and columns")

	// ErrColumnNotFound is returned when a requested column does not exist.
	ErrColumnNotFound = errors.New("column not found")

	// ErrDuplicateColumn is returned when a header contains the same name twice.
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrRaggedRow is returned when a row does not have one cell per column.
	ErrRaggedRow = errors.New("row length does not match header")

	// ErrInvalidOperator is returned for a row filter operator outside {>, <, ==, !=}.
	ErrInvalidOperator = errors.New("invalid row filter operator")
)
