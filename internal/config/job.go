package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/pseudokit/internal/model"
	"github.com/nao1215/pseudokit/internal/strategy"
	"github.com/nao1215/pseudokit/internal/table"
)

// Methods that are not pseudonymization strategies.
const (
	MethodRevert  = "revert"
	MethodDecrypt = "decrypt"
)

// StringList accepts either a YAML sequence or a comma separated scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = nil
		for _, part := range strings.Split(n.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*l = append(*l, part)
			}
		}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a comma separated string", n.Line)
	}
}

// Job is one pseudonymization, revert, decrypt, aggregation or
// k-anonymization task read from a job file.
type Job struct {
	// Name identifies the job in history and reports.
	Name string `yaml:"name,omitempty"`

	// Method is a strategy name, MethodRevert or MethodDecrypt. It is
	// ignored by k-anonymity and aggregation jobs.
	Method string `yaml:"map_method"`

	// Columns are the structured columns to process.
	Columns StringList `yaml:"map_columns"`

	InputFile string `yaml:"input_file"`

	// Output is the directory receiving every artifact.
	Output string `yaml:"output"`

	// Mapping keeps mapping tables. Defaults to true.
	Mapping bool `yaml:"mapping"`

	// EncryptMap stores mapping originals encrypted.
	EncryptMap bool `yaml:"encrypt_map"`

	// Seed makes random and synthetic strategies reproducible.
	Seed *uint64 `yaml:"seed"`

	// Start is the first value of the counter strategy.
	Start int64 `yaml:"start,omitempty"`

	// PosType lists the text categories to replace.
	PosType StringList `yaml:"pos_type"`

	// AllNE selects every named-entity category.
	AllNE bool `yaml:"all_ne"`

	// Patterns is a [column, operator, value] row filter for structured
	// input and a list of regular expressions for text.
	Patterns []string `yaml:"patterns"`

	// PatternCategory names the category of pattern matches in text.
	PatternCategory string `yaml:"pattern_category"`

	// Entities feeds the built-in recognizer: label (PERSON, GPE, ORG) to
	// the terms it should find.
	Entities map[string][]string `yaml:"entities"`

	// MappingDir holds the mapping tables used by revert and decrypt jobs.
	// Defaults to Output.
	MappingDir string `yaml:"mapping_dir,omitempty"`

	// Pseudonyms restricts a revert to these pseudonyms.
	Pseudonyms StringList `yaml:"pseudonyms,omitempty"`

	// K enables k-anonymization when positive.
	K int `yaml:"k"`

	// Depths maps quasi-identifier columns to their rounding depth. When
	// empty, every column gets depth K-1.
	Depths map[string]int `yaml:"depths"`

	// MaskOthers masks columns outside Depths.
	MaskOthers bool `yaml:"mask_others"`

	// AggColumns are aggregated before k-anonymization.
	AggColumns StringList `yaml:"agg_columns"`

	// AggregationRange is the bin width for AggColumns.
	AggregationRange int `yaml:"aggregation_range"`

	// VerifyOnly turns a k-anonymity job into a check of InputFile.
	VerifyOnly bool `yaml:"-"`
}

// NewJob returns a Job with default values.
func NewJob() *Job {
	return &Job{
		Method:  strategy.Counter.String(),
		Mapping: true,
	}
}

// Structured reports whether the input is a delimited table.
func (j *Job) Structured() bool {
	return table.IsTabular(j.InputFile)
}

// Mode derives what the job does.
func (j *Job) Mode() model.Mode {
	switch {
	case j.Method == MethodRevert:
		return model.ModeRevert
	case j.Method == MethodDecrypt:
		return model.ModeDecrypt
	case j.VerifyOnly:
		return model.ModeVerify
	case j.K > 0:
		return model.ModeKAnonymize
	case len(j.AggColumns) > 0:
		return model.ModeAggregate
	case !j.Structured():
		return model.ModeText
	default:
		return model.ModePseudonymize
	}
}

// Strategy parses Method. It fails for revert and decrypt jobs.
func (j *Job) Strategy() (strategy.Strategy, error) {
	return strategy.Parse(j.Method)
}

// Filter returns the structured row filter, or nil when none is set.
func (j *Job) Filter() (*table.Filter, error) {
	if len(j.Patterns) == 0 {
		return nil, nil //nolint:nilnil // no filter configured
	}
	if len(j.Patterns) != 3 {
		return nil, fmt.Errorf("%w: got %d elements", ErrInvalidPattern, len(j.Patterns))
	}
	op, err := table.ParseOperator(strings.TrimSpace(j.Patterns[1]))
	if err != nil {
		return nil, err
	}
	return &table.Filter{Column: j.Patterns[0], Operator: op, Value: j.Patterns[2]}, nil
}

// Categories returns the text categories selected by PosType, in order.
func (j *Job) Categories() []strategy.Category {
	cats := make([]strategy.Category, 0, len(j.PosType))
	for _, p := range j.PosType {
		cats = append(cats, strategy.ParseCategory(p))
	}
	return cats
}

// DepthMap returns Depths, or depth K-1 for every column when unset.
func (j *Job) DepthMap(columns []string) map[string]int {
	if len(j.Depths) > 0 {
		return j.Depths
	}
	out := make(map[string]int, len(columns))
	for _, c := range columns {
		out[c] = j.K - 1
	}
	return out
}

// MappingLocation returns the directory holding mapping tables and keys.
func (j *Job) MappingLocation() string {
	if j.MappingDir != "" {
		return j.MappingDir
	}
	return j.Output
}

// Validate returns the first problem found in j.
func (j *Job) Validate() error {
	if j.InputFile == "" {
		return ErrNoInput
	}
	if j.K < 0 {
		return ErrInvalidK
	}
	mode := j.Mode()
	if mode == model.ModeVerify {
		return nil
	}
	if j.Output == "" {
		return ErrNoOutput
	}
	if len(j.AggColumns) > 0 && j.AggregationRange <= 0 {
		return ErrInvalidAggregationRange
	}

	switch mode {
	case model.ModeKAnonymize, model.ModeAggregate:
		return nil
	case model.ModePseudonymize, model.ModeText:
		if _, err := j.Strategy(); err != nil {
			return err
		}
	}

	if j.Structured() {
		if len(j.Columns) == 0 {
			return ErrNoColumns
		}
		if mode == model.ModePseudonymize {
			if _, err := j.Filter(); err != nil {
				return err
			}
		}
		return nil
	}
	if len(j.PosType) == 0 && !j.AllNE && len(j.Patterns) == 0 {
		return ErrNoCategories
	}
	return nil
}
