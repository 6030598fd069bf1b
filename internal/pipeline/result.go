package pipeline

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/common"
)

// PageOutcome is the per-page entry of a Result.
type PageOutcome struct {
	Index int
	Text  string
	Err   error
}

func (p PageOutcome) OK() bool { return p.Err == nil }

// Result is what a successful job returns.
type Result struct {
	JobID    string
	Type     constants.DocType
	FullText string
	PerPage  []PageOutcome
	Warnings []string
	History  []constants.JobStatus
}

// JobError is returned when a job ends in Failed. It unwraps to the error that caused it.
type JobError struct {
	JobID    string
	Status   constants.JobStatus // state the job was in when it failed
	Warnings []string
	History  []constants.JobStatus
	Err      error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed in %s: %v", e.JobID, e.Status, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// Aggregate orders pages by index and joins the text of successful pages with constants.PageBreak.
// Failed pages contribute a warning instead of text. If no page succeeded it returns AGGREGATION_FAILURE
// together with the partial result, so the warnings are not lost.
func Aggregate(pages []Page) (Result, error) {
	sorted := slices.Clone(pages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var (
		res   Result
		texts []string
	)
	for _, p := range sorted {
		res.PerPage = append(res.PerPage, PageOutcome{Index: p.Index, Text: p.Text, Err: p.Err})
		if p.Err != nil {
			res.Warnings = append(res.Warnings, pageWarning(p))
			continue
		}
		texts = append(texts, p.Text)
	}
	if len(texts) == 0 {
		return res, common.NewAppError(common.CodeAggregationFailure, "no usable text produced", nil)
	}
	res.FullText = strings.Join(texts, constants.PageBreak)
	return res, nil
}

// recordedWarnings lists the failures pages recorded before the job was interrupted.
// Pages that were only stopped by the interruption are left out.
func recordedWarnings(pages []Page) []string {
	var out []string
	for _, p := range pages {
		if p.Err == nil || common.CodeOf(p.Err) == common.CodeJobCancelled {
			continue
		}
		out = append(out, pageWarning(p))
	}
	return out
}

func pageWarning(p Page) string {
	return fmt.Sprintf("page %d: %s", p.Index, common.SafeMessage(p.Err))
}
