// Package pipeline drives a document through classification, extraction and aggregation.
package pipeline

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/artifact"
)

// Document is the input of a job. Detected is set once by the classifier.
type Document struct {
	SourcePath string
	Declared   constants.DeclaredType
	Detected   constants.DocType
}

// Page is the unit of parallel work. Once processed exactly one of Text and Err is meaningful.
type Page struct {
	Index  int
	Source string            // image the page is read from
	Image  artifact.Artifact // normalised image; zero for text-layer pages
	Text   string
	Err    error
}

var transitions = map[constants.JobStatus][]constants.JobStatus{
	constants.JobStatusReceived:       {constants.JobStatusClassified},
	constants.JobStatusClassified:     {constants.JobStatusTextExtracting, constants.JobStatusConverting, constants.JobStatusPreprocessing},
	constants.JobStatusTextExtracting: {constants.JobStatusAggregated},
	constants.JobStatusConverting:     {constants.JobStatusPreprocessing},
	constants.JobStatusPreprocessing:  {constants.JobStatusOCRExtracting},
	constants.JobStatusOCRExtracting:  {constants.JobStatusAggregated},
	constants.JobStatusAggregated:     {constants.JobStatusDone},
}

// Job is a single extraction run. It is owned by one orchestrator goroutine.
type Job struct {
	ID       string
	Document Document
	Status   constants.JobStatus
	History  []constants.JobStatus
}

// NewJob starts a job in Received. An empty id gets a fresh UUID.
func NewJob(id, path string) *Job {
	if id == "" {
		id = uuid.NewString()
	}
	return &Job{
		ID:       id,
		Document: Document{SourcePath: path},
		Status:   constants.JobStatusReceived,
		History:  []constants.JobStatus{constants.JobStatusReceived},
	}
}

// Advance moves the job to the next state. Failed is reachable from any non-terminal state;
// every other move must follow the transition table and no state is entered twice.
func (j *Job) Advance(to constants.JobStatus) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s: already %s", j.ID, j.Status)
	}
	if slices.Contains(j.History, to) {
		return fmt.Errorf("job %s: state %s already visited", j.ID, to)
	}
	if to != constants.JobStatusFailed && !slices.Contains(transitions[j.Status], to) {
		return fmt.Errorf("job %s: invalid transition %s -> %s", j.ID, j.Status, to)
	}
	j.Status = to
	j.History = append(j.History, to)
	return nil
}
