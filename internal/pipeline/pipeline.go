// Package pipeline implements the staged processing that turns a
// submitted content source into a transcript, summary, and quiz. A
// workflow runs an ordered list of stages; each stage receives the
// accumulated Context value, does its work, and returns an extended
// copy for the next stage.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
)

// ErrCancelled indicates the job was cancelled while a stage was
// running. Stages surface it when a fenced store write is rejected;
// the workflow stops without recording a failure.
var ErrCancelled = errors.New("job cancelled during processing")

// Context carries the data accumulated across pipeline stages for one
// job execution. It is passed and returned by value so stages cannot
// share mutable state.
type Context struct {
	// Source is the job's primary input (URL, file path, or manifest path).
	Source string

	// SourceKind says how Source is acquired.
	SourceKind domain.SourceKind

	// Params are the submission's processing options with defaults applied.
	Params domain.ProcessingParams

	// Title and DurationSeconds are filled by the extraction stage.
	Title           string
	DurationSeconds int

	// Transcript is the extracted text all later stages consume.
	Transcript string

	// Summary and Insights are filled by the analysis stage.
	Summary  string
	Insights []string

	// Questions are filled by the question generation stage.
	Questions []*domain.QuizQuestion
}

// Stage is one step of a processing workflow.
type Stage interface {
	// Name identifies the stage in logs and error messages.
	Name() string

	// Execute runs the stage for the given job, returning the context
	// for the next stage. A returned error aborts the workflow.
	Execute(ctx context.Context, jobID uuid.UUID, pctx Context) (Context, error)
}
