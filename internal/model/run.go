package model

import (
	"time"

	"github.com/google/uuid"
)

// Mode is the kind of job a Run performed.
type Mode string

// Job modes.
const (
	ModePseudonymize Mode = "pseudonymize"
	ModeText         Mode = "text"
	ModeRevert       Mode = "revert"
	ModeDecrypt      Mode = "decrypt"
	ModeKAnonymize   Mode = "k-anonymize"
	ModeAggregate    Mode = "aggregate"
	ModeVerify       Mode = "verify"
)

// ArtifactKind classifies a file written by a run.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactOutput  ArtifactKind = "output"
	ArtifactMapping ArtifactKind = "mapping"
	ArtifactKey     ArtifactKind = "key"
	ArtifactText    ArtifactKind = "text"
)

// Run describes one executed job.
type Run struct {
	// ID is a random identifier assigned when the run starts.
	ID string `json:"id"`

	// Job is the job name, usually the job file base name.
	Job string `json:"job"`

	Mode     Mode   `json:"mode"`
	Strategy string `json:"strategy,omitempty"`

	// Input is the path of the table or text file that was processed.
	Input string `json:"input,omitempty"`

	// OutputDir is where artifacts were written.
	OutputDir string `json:"output_dir,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// RowsIn counts rows after null removal. RowsExempted counts rows kept
	// unchanged by a row filter.
	RowsIn       int `json:"rows_in"`
	RowsOut      int `json:"rows_out"`
	RowsExempted int `json:"rows_exempted,omitempty"`

	Columns   []ColumnSummary `json:"columns,omitempty"`
	Artifacts []Artifact      `json:"artifacts,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`

	// Verified is set by k-anonymity jobs after verification.
	Verified *bool `json:"verified,omitempty"`

	// ErrorMessage is empty for successful runs.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// ColumnSummary describes one processed column or text category.
type ColumnSummary struct {
	Name      string `json:"name"`
	Tag       string `json:"tag"`
	Records   int    `json:"records"`
	Encrypted bool   `json:"encrypted"`
}

// Artifact is a file produced by a run.
type Artifact struct {
	Name     string       `json:"name"`
	Kind     ArtifactKind `json:"kind"`
	Location string       `json:"location"`
}

// NewRun starts a run record.
func NewRun(job string, mode Mode) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Job:       job,
		Mode:      mode,
		StartedAt: time.Now(),
	}
}

// AddColumn records a processed column.
func (r *Run) AddColumn(c ColumnSummary) {
	r.Columns = append(r.Columns, c)
}

// AddArtifact records a written file.
func (r *Run) AddArtifact(name string, kind ArtifactKind, location string) {
	r.Artifacts = append(r.Artifacts, Artifact{Name: name, Kind: kind, Location: location})
}

// AddWarning records a non-fatal observation.
func (r *Run) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Finish stamps the end time and the error, if any.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now()
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Succeeded reports whether the run finished without error.
func (r *Run) Succeeded() bool {
	return r.ErrorMessage == ""
}

// Duration returns the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// TotalRecords sums the mapping records over all columns.
func (r *Run) TotalRecords() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Records
	}
	return n
}
