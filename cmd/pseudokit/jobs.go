package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/pseudokit/internal/config"
	"github.com/nao1215/pseudokit/internal/strategy"
)

// jobBuilder fills a Job from the flags of a mode command.
type jobBuilder func(flags *pflag.FlagSet, job *config.Job) error

// newJobCmd creates a command that runs a single job built from its flags.
func newJobCmd(cmd *cobra.Command, build jobBuilder) *cobra.Command {
	cmd.Args = cobra.NoArgs
	cmd.Flags().StringP("input", "i", "", "Input table (.csv, .tsv) or text file")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		job := config.NewJob()

		var err error
		if job.InputFile, err = flags.GetString("input"); err != nil {
			return err
		}
		if f := flags.Lookup("output"); f != nil {
			job.Output = f.Value.String()
		}
		if err := build(flags, job); err != nil {
			return err
		}
		job.Name = cmd.Name() + "-" + strings.TrimSuffix(filepath.Base(job.InputFile), filepath.Ext(job.InputFile))
		return runJobs(cmd, []*config.Job{job})
	}
	return cmd
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output directory for results, mappings and keys")
}

func addMappingFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("method", "m", strategy.Counter.String(), "Pseudonymization method: "+methodNames())
	cmd.Flags().Bool("no-mapping", false, "Do not keep mapping tables")
	cmd.Flags().Bool("encrypt-map", false, "Encrypt the original values in mapping tables")
	cmd.Flags().Uint64("seed", 0, "Seed for reproducible random and synthetic methods")
	cmd.Flags().Int64("start", 0, "First value of the counter method")
}

func addCategoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("pos-type", "p", nil, "Text categories: Names, Locations, Organizations, Emails, Phone-Numbers or a custom name")
	cmd.Flags().Bool("all-ne", false, "Select Names, Locations and Organizations")
}

func methodNames() string {
	all := strategy.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

func readMappingFlags(flags *pflag.FlagSet, job *config.Job) error {
	var err error
	if job.Method, err = flags.GetString("method"); err != nil {
		return err
	}
	noMapping, err := flags.GetBool("no-mapping")
	if err != nil {
		return err
	}
	job.Mapping = !noMapping
	if job.EncryptMap, err = flags.GetBool("encrypt-map"); err != nil {
		return err
	}
	if flags.Changed("seed") {
		seed, err := flags.GetUint64("seed")
		if err != nil {
			return err
		}
		job.Seed = &seed
	}
	job.Start, err = flags.GetInt64("start")
	return err
}

func readCategoryFlags(flags *pflag.FlagSet, job *config.Job) error {
	posType, err := flags.GetStringSlice("pos-type")
	if err != nil {
		return err
	}
	job.PosType = posType
	job.AllNE, err = flags.GetBool("all-ne")
	return err
}

func readColumns(flags *pflag.FlagSet, job *config.Job) error {
	columns, err := flags.GetStringSlice("columns")
	job.Columns = columns
	return err
}

// parseEntities turns LABEL=term flags into a gazetteer.
func parseEntities(values []string) (map[string][]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string][]string)
	for _, v := range values {
		label, term, ok := strings.Cut(v, "=")
		if !ok || label == "" || term == "" {
			return nil, fmt.Errorf("invalid entity %q: expected LABEL=term", v)
		}
		label = strings.ToUpper(strings.TrimSpace(label))
		out[label] = append(out[label], strings.TrimSpace(term))
	}
	return out, nil
}

// NewPseudonymizeCmd creates the pseudonymize command.
func NewPseudonymizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pseudonymize",
		Short: "Replace table columns with pseudonyms",
		Long: `Pseudonymize replaces the given columns of a CSV or TSV table with pseudonyms
and writes output.csv, one mapping table per column and, for the encrypt method
or --encrypt-map, one secret key per column.

Rows matching --filter are left unchanged and appended after the others.

Examples:
  pseudokit pseudonymize -i people.csv -o out -c name,email -m hash
  pseudokit pseudonymize -i people.csv -o out -c name -m encrypt
  pseudokit pseudonymize -i people.csv -o out -c name --filter age,'>',30`,
	}
	addOutputFlag(cmd)
	addMappingFlags(cmd)
	cmd.Flags().StringSliceP("columns", "c", nil, "Columns to pseudonymize, in order")
	cmd.Flags().StringSlice("filter", nil, "Row filter column,operator,value exempting matching rows")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		if err := readMappingFlags(flags, job); err != nil {
			return err
		}
		filter, err := flags.GetStringSlice("filter")
		if err != nil {
			return err
		}
		job.Patterns = filter
		return readColumns(flags, job)
	})
}

// NewTextCmd creates the text command.
func NewTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text",
		Short: "Replace entities in free text with pseudonyms",
		Long: `Text finds emails, phone numbers, named entities and regular expression
matches in a text file, replaces them with pseudonyms and writes text.txt with
one mapping table per category.

Named entities are found by a built-in gazetteer fed with --entity.

Examples:
  pseudokit text -i note.txt -o out -p emails,phone-numbers
  pseudokit text -i note.txt -o out --all-ne --entity PERSON="Jane Doe" -m faker
  pseudokit text -i note.txt -o out --pattern 'ID-[0-9]+' --pattern-category ids`,
	}
	addOutputFlag(cmd)
	addMappingFlags(cmd)
	addCategoryFlags(cmd)
	cmd.Flags().StringArray("pattern", nil, "Regular expression whose matches are replaced (repeatable)")
	cmd.Flags().String("pattern-category", "", "Category of pattern matches (default Others)")
	cmd.Flags().StringArray("entity", nil, "Gazetteer entry LABEL=term with LABEL one of PERSON, GPE, ORG (repeatable)")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		if err := readMappingFlags(flags, job); err != nil {
			return err
		}
		if err := readCategoryFlags(flags, job); err != nil {
			return err
		}
		var err error
		if job.Patterns, err = flags.GetStringArray("pattern"); err != nil {
			return err
		}
		if job.PatternCategory, err = flags.GetString("pattern-category"); err != nil {
			return err
		}
		entities, err := flags.GetStringArray("entity")
		if err != nil {
			return err
		}
		job.Entities, err = parseEntities(entities)
		return err
	})
}

// NewRevertCmd creates the revert command.
func NewRevertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Restore original values from mapping tables",
		Long: `Revert restores the original values of a pseudonymized table or text using
the mapping tables of an earlier run, found in --mapping-dir (default: the
output directory, then the working directory).

Examples:
  pseudokit revert -i out/output.csv -o back -c name --mapping-dir out
  pseudokit revert -i out/text.txt -o back -p emails --mapping-dir out
  pseudokit revert -i out/output.csv -o back -c name --pseudonyms 3,7 --mapping-dir out`,
	}
	addOutputFlag(cmd)
	addCategoryFlags(cmd)
	cmd.Flags().StringSliceP("columns", "c", nil, "Columns to revert")
	cmd.Flags().String("mapping-dir", "", "Directory or namespace holding the mapping tables")
	cmd.Flags().StringSlice("pseudonyms", nil, "Restrict the revert to these pseudonyms")
	cmd.Flags().Bool("decrypt", false, "Mapping originals are encrypted")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		job.Method = config.MethodRevert
		if err := readCategoryFlags(flags, job); err != nil {
			return err
		}
		var err error
		if job.MappingDir, err = flags.GetString("mapping-dir"); err != nil {
			return err
		}
		pseudonyms, err := flags.GetStringSlice("pseudonyms")
		if err != nil {
			return err
		}
		job.Pseudonyms = pseudonyms
		if job.EncryptMap, err = flags.GetBool("decrypt"); err != nil {
			return err
		}
		return readColumns(flags, job)
	})
}

// NewDecryptCmd creates the decrypt command.
func NewDecryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt columns or text pseudonyms produced by the encrypt method",
		Long: `Decrypt turns ciphertext pseudonyms back into plaintext with the secret key of
each column (secure_key_<column>.txt). Column positions are kept and a leading
Index_ is dropped from the column name.

Examples:
  pseudokit decrypt -i out/output.csv -o plain -c Index_name --mapping-dir out
  pseudokit decrypt -i out/text.txt -o plain -p names --mapping-dir out`,
	}
	addOutputFlag(cmd)
	addCategoryFlags(cmd)
	cmd.Flags().StringSliceP("columns", "c", nil, "Columns to decrypt")
	cmd.Flags().String("mapping-dir", "", "Directory or namespace holding keys and mapping tables")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		job.Method = config.MethodDecrypt
		if err := readCategoryFlags(flags, job); err != nil {
			return err
		}
		var err error
		if job.MappingDir, err = flags.GetString("mapping-dir"); err != nil {
			return err
		}
		return readColumns(flags, job)
	})
}

// NewKAnonCmd creates the kanon command.
func NewKAnonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kanon",
		Short: "Generalize a table to k-anonymity",
		Long: `Kanon rounds quasi-identifier columns down to multiples of 10^depth, drops
rows in groups smaller than k and writes k_anon_output.csv. Without --depth,
every column gets depth k-1.

Examples:
  pseudokit kanon -i people.csv -o out -k 2 --depth age=1,zip=2 --mask-others
  pseudokit kanon -i people.csv -o out -k 3 --agg-columns birthdate --range 10`,
	}
	addOutputFlag(cmd)
	cmd.Flags().IntP("k", "k", 2, "Minimum group size")
	cmd.Flags().StringToInt("depth", nil, "Rounding depth per column")
	cmd.Flags().Bool("mask-others", false, "Mask columns without a depth")
	cmd.Flags().StringSlice("agg-columns", nil, "Columns aggregated into ranges first")
	cmd.Flags().Int("range", 0, "Range width for --agg-columns")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		var err error
		if job.K, err = flags.GetInt("k"); err != nil {
			return err
		}
		if job.Depths, err = flags.GetStringToInt("depth"); err != nil {
			return err
		}
		if job.MaskOthers, err = flags.GetBool("mask-others"); err != nil {
			return err
		}
		agg, err := flags.GetStringSlice("agg-columns")
		if err != nil {
			return err
		}
		job.AggColumns = agg
		job.AggregationRange, err = flags.GetInt("range")
		return err
	})
}

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check whether a table is k-anonymous",
		Long: `Verify reports whether every row of a table shares all its values with at
least k-1 other rows. Nothing is written besides the run summary.

Example:
  pseudokit verify -i out/k_anon_output.csv -k 2`,
	}
	cmd.Flags().IntP("k", "k", 2, "Minimum group size")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		job.VerifyOnly = true
		var err error
		job.K, err = flags.GetInt("k")
		return err
	})
}

// NewAggregateCmd creates the aggregate command.
func NewAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Replace numeric and date columns with ranges",
		Long: `Aggregate bins numeric columns into ranges of the given width (0-10, 11-20, ...)
and turns date columns into years, binned when the width is above 1.

Example:
  pseudokit aggregate -i people.csv -o out -c age,birthdate --range 10`,
	}
	addOutputFlag(cmd)
	cmd.Flags().StringSliceP("columns", "c", nil, "Columns to aggregate")
	cmd.Flags().Int("range", 0, "Range width")

	return newJobCmd(cmd, func(flags *pflag.FlagSet, job *config.Job) error {
		agg, err := flags.GetStringSlice("columns")
		if err != nil {
			return err
		}
		job.AggColumns = agg
		job.AggregationRange, err = flags.GetInt("range")
		return err
	})
}
