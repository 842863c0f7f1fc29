package store

import (
	"errors"

	"github.com/google/uuid"
)

// Generation states. A generation leaves GenerationSending exactly once.
const (
	GenerationSending   = "sending"
	GenerationSucceeded = "succeeded"
	GenerationFailed    = "failed"
	GenerationCanceled  = "canceled"
)

var (
	// ErrGenerationSuperseded means a newer generation was begun.
	ErrGenerationSuperseded = errors.New("generation superseded")
	// ErrGenerationCanceled means the generation was canceled before it committed.
	ErrGenerationCanceled = errors.New("generation canceled")
)

// Generation is the latest list generation, shared by every process using the
// store. Only the latest generation in GenerationSending may commit.
type Generation struct {
	Seq    int64     `json:"seq"`
	TaskID uuid.UUID `json:"task_id"`
	Event  string    `json:"event"`
	State  string    `json:"state"`
	Error  string    `json:"error,omitempty"`
}

// checkCommit reports why gen may not commit against latest, or nil.
func checkCommit(latest Generation, seq int64) error {
	if latest.Seq != seq {
		return ErrGenerationSuperseded
	}
	if latest.State != GenerationSending {
		return ErrGenerationCanceled
	}
	return nil
}
