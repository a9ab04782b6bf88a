// Package pipeline executes jobs as a sequence of steps.
//
// A job loads its input, runs one engine step (pseudonymize, text, revert,
// decrypt, aggregate, k-anonymize or verify) and writes its output artifact.
// Steps share a State holding the job, its run record and the table or text
// being transformed. Runner wires the engines to the configured key backend,
// executes the pipeline and records the run in the history database.
// BatchProcessor runs independent jobs concurrently with errgroup; jobs must
// write to distinct output directories.
package pipeline
