package constants

// JobStatus is the state of an extraction job.
type JobStatus string

const (
	JobStatusReceived       JobStatus = "RECEIVED"
	JobStatusClassified     JobStatus = "CLASSIFIED"
	JobStatusTextExtracting JobStatus = "TEXT_EXTRACTING"
	JobStatusConverting     JobStatus = "CONVERTING"
	JobStatusPreprocessing  JobStatus = "PREPROCESSING"
	JobStatusOCRExtracting  JobStatus = "OCR_EXTRACTING"
	JobStatusAggregated     JobStatus = "AGGREGATED"
	JobStatusDone           JobStatus = "DONE"   // terminal
	JobStatusFailed         JobStatus = "FAILED" // terminal
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}
