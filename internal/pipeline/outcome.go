package pipeline

import "time"

// Attachment is a source document submitted inline with the request.
type Attachment struct {
	Data     []byte
	Filename string
	Size     int64
}

// Request is one job submission. Exactly one of Attachment and SourceURL
// must be populated.
type Request struct {
	RequesterID string
	Attachment  *Attachment
	SourceURL   string
}

// FailKind classifies a terminal failure for presentation and metrics.
type FailKind string

const (
	FailInsufficientCredit FailKind = "insufficient_credit"
	FailBadInput           FailKind = "bad_input"
	FailFileTooLarge       FailKind = "file_too_large"
	FailDownloadFailed     FailKind = "download_failed"
	FailToolTimeout        FailKind = "tool_timeout"
	FailToolRejected       FailKind = "tool_rejected"
	FailInternal           FailKind = "internal_error"
)

// Failure is the terminal record of a job that did not deliver. Cause is a
// short human-readable line safe to show to the requester.
type Failure struct {
	Kind  FailKind
	Cause string
}

func fail(kind FailKind, cause string) *Failure {
	return &Failure{Kind: kind, Cause: cause}
}

// Result is the terminal record of a delivered job. Artifact carries the
// transformed bytes so Presentation never touches staged paths, which are
// already released (or scheduled for release) by the time Process returns.
type Result struct {
	Artifact     []byte
	Filename     string
	OriginalSize int64
	OutputSize   int64
	Duration     time.Duration
	Balance      int
	Charged      bool
	Links        []string
}
